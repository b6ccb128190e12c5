package database

import (
	"database/sql"
	"fmt"
	"time"

	"crescendo/pkg/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Database wraps a *sql.DB providing higher-level helper methods for
// interacting with the application's persistent store. It is safe for
// concurrent use because the underlying *sql.DB is concurrency-safe.
type Database struct {
	conn   *sql.DB
	logger *logrus.Logger

	// Prepared statements for better performance
	countPlaysStmt      *sql.Stmt
	recordPlayStmt      *sql.Stmt
	favouriteIDStmt     *sql.Stmt
	insertFavouriteStmt *sql.Stmt
	deleteFavouriteStmt *sql.Stmt
	listFavouritesStmt  *sql.Stmt
}

// NewDatabase opens (or creates) a SQLite database at the provided path and
// ensures all required tables and indices exist. It also applies lightweight
// performance-oriented pragmas (WAL, cache sizing). Caller should Close() it
// when finished.
func NewDatabase(dbPath string) (*Database, error) {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	conn, err := sql.Open("sqlite3", dbPath+"?cache=shared&mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool - adjusted for SQLite
	conn.SetMaxOpenConns(5) // SQLite works better with fewer connections
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(15 * time.Minute)

	// Enable WAL mode for better concurrency
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=2000;",
		"PRAGMA temp_store=memory;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA auto_vacuum=INCREMENTAL;",
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	db := &Database{
		conn:   conn,
		logger: logger,
	}

	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := db.prepareStatements(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	logger.WithField("db_path", dbPath).Info("Database initialized successfully")
	return db, nil
}

// createTables creates tables and indices if they do not already exist, then
// executes any migrations. This is idempotent and safe to call multiple times.
func (db *Database) createTables() error {
	artistsTable := `
	CREATE TABLE IF NOT EXISTS artists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	albumsTable := `
	CREATE TABLE IF NOT EXISTS albums (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('audio', 'video')),
		artist_id INTEGER NOT NULL,
		cover_art_id TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (artist_id) REFERENCES artists(id) ON DELETE CASCADE,
		UNIQUE (artist_id, title, type)
	);`

	// Audio and video tracks live in physically separate tables with
	// identical shape. Their ids are namespaced per table.
	audioTracksTable := `
	CREATE TABLE IF NOT EXISTS audio_tracks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		album_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		track_number INTEGER DEFAULT 0,
		duration INTEGER,
		thumb_id TEXT,
		file_path TEXT NOT NULL UNIQUE,
		file_size INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (album_id) REFERENCES albums(id) ON DELETE CASCADE
	);`

	videoTracksTable := `
	CREATE TABLE IF NOT EXISTS video_tracks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		album_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		track_number INTEGER DEFAULT 0,
		duration INTEGER,
		thumb_id TEXT,
		file_path TEXT NOT NULL UNIQUE,
		file_size INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (album_id) REFERENCES albums(id) ON DELETE CASCADE
	);`

	// Append-only play log. Rows are never updated or deleted; orphaned
	// entries are tolerated and simply never matched during enrichment.
	playHistoryTable := `
	CREATE TABLE IF NOT EXISTS play_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		media_type TEXT NOT NULL CHECK (media_type IN ('audio', 'video')),
		track_id INTEGER NOT NULL,
		username TEXT,
		played_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	favouritesTable := `
	CREATE TABLE IF NOT EXISTS favourites (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('album', 'track', 'video')),
		entity_id INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (username, kind, entity_id)
	);`

	// Create indices for better performance
	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_albums_type ON albums(type);",
		"CREATE INDEX IF NOT EXISTS idx_albums_artist ON albums(artist_id);",
		"CREATE INDEX IF NOT EXISTS idx_audio_tracks_album ON audio_tracks(album_id);",
		"CREATE INDEX IF NOT EXISTS idx_video_tracks_album ON video_tracks(album_id);",
		"CREATE INDEX IF NOT EXISTS idx_play_history_entity ON play_history(media_type, track_id);", // Aggregation hot path
		"CREATE INDEX IF NOT EXISTS idx_favourites_user ON favourites(username, kind, created_at);",
	}

	tables := []string{artistsTable, albumsTable, audioTracksTable, videoTracksTable, playHistoryTable, favouritesTable}
	for _, table := range tables {
		if _, err := db.conn.Exec(table); err != nil {
			return err
		}
	}

	for _, index := range indices {
		if _, err := db.conn.Exec(index); err != nil {
			return err
		}
	}

	// Run migrations
	if err := db.runMigrations(); err != nil {
		return err
	}

	return nil
}

// runMigrations performs incremental schema updates in-place. Each migration
// should be idempotent and safe to re-run; keep them lightweight.
func (db *Database) runMigrations() error {
	// Migration 1: Add active column to albums table if it doesn't exist
	var columnExists bool
	err := db.conn.QueryRow(`
		SELECT COUNT(*) > 0
		FROM pragma_table_info('albums')
		WHERE name = 'active'`).Scan(&columnExists)

	if err != nil {
		return err
	}

	if !columnExists {
		_, err = db.conn.Exec("ALTER TABLE albums ADD COLUMN active BOOLEAN DEFAULT TRUE")
		if err != nil {
			return err
		}

		db.logger.Info("Added active column to albums table")
	}

	return nil
}

// prepareStatements prepares commonly used SQL statements for better performance
func (db *Database) prepareStatements() error {
	var err error

	// Play count aggregation statement (the home feed hot path)
	db.countPlaysStmt, err = db.conn.Prepare(`
		SELECT track_id, COUNT(*)
		FROM play_history
		WHERE media_type = ?
		GROUP BY track_id`)
	if err != nil {
		return fmt.Errorf("failed to prepare count plays statement: %w", err)
	}

	// Record play statement
	db.recordPlayStmt, err = db.conn.Prepare(`
		INSERT INTO play_history (media_type, track_id, username, played_at)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare record play statement: %w", err)
	}

	// Favourite lookup statement
	db.favouriteIDStmt, err = db.conn.Prepare(`
		SELECT id FROM favourites WHERE username = ? AND kind = ? AND entity_id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare favourite lookup statement: %w", err)
	}

	// Insert favourite statement
	db.insertFavouriteStmt, err = db.conn.Prepare(`
		INSERT INTO favourites (username, kind, entity_id)
		VALUES (?, ?, ?)
		ON CONFLICT(username, kind, entity_id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert favourite statement: %w", err)
	}

	// Delete favourite statement
	db.deleteFavouriteStmt, err = db.conn.Prepare(`
		DELETE FROM favourites WHERE username = ? AND kind = ? AND entity_id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete favourite statement: %w", err)
	}

	// List favourites statement
	db.listFavouritesStmt, err = db.conn.Prepare(`
		SELECT id, username, kind, entity_id, created_at
		FROM favourites
		WHERE username = ? AND kind = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare list favourites statement: %w", err)
	}

	return nil
}

// trackTable maps a media type to its track table name. The argument is
// always one of the MediaType constants, never user input.
func trackTable(mediaType models.MediaType) string {
	if mediaType == models.MediaVideo {
		return "video_tracks"
	}
	return "audio_tracks"
}

// Ping verifies the database connection is still alive.
func (db *Database) Ping() error {
	return db.conn.Ping()
}

// Close closes the underlying database connection and prepared statements.
func (db *Database) Close() error {
	// Close prepared statements
	statements := []*sql.Stmt{
		db.countPlaysStmt,
		db.recordPlayStmt,
		db.favouriteIDStmt,
		db.insertFavouriteStmt,
		db.deleteFavouriteStmt,
		db.listFavouritesStmt,
	}

	for _, stmt := range statements {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				db.logger.WithError(err).Error("Failed to close prepared statement")
			}
		}
	}

	// Close database connection
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
