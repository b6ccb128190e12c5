package database

import (
	"database/sql"
	"fmt"

	"crescendo/pkg/models"
)

// UpsertArtist returns the id of the artist with the given name, creating
// the row if it does not exist yet. The insert races with concurrent import
// workers, so it tolerates the unique-name conflict and looks the row up
// afterwards instead of checking first.
func (db *Database) UpsertArtist(name string) (int64, error) {
	result, err := db.conn.Exec(
		"INSERT INTO artists (name) VALUES (?) ON CONFLICT(name) DO NOTHING", name)
	if err != nil {
		db.logger.WithError(err).WithField("artist", name).Error("Failed to insert artist")
		return 0, err
	}
	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		return result.LastInsertId()
	}

	var id int64
	if err := db.conn.QueryRow("SELECT id FROM artists WHERE name = ?", name).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// UpsertAlbum returns the id of the album matched by (artist, title, type),
// creating the row if needed. The media type is fixed at creation and never
// changes afterwards. Like UpsertArtist, concurrent importers may race to
// create the same album, so the insert absorbs the conflict and falls back
// to a lookup.
func (db *Database) UpsertAlbum(artistID int64, title string, mediaType models.MediaType, coverArtID string) (int64, error) {
	var cover interface{}
	if coverArtID != "" {
		cover = coverArtID
	}
	result, err := db.conn.Exec(`
		INSERT INTO albums (title, type, artist_id, cover_art_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(artist_id, title, type) DO NOTHING`,
		title, string(mediaType), artistID, cover)
	if err != nil {
		db.logger.WithError(err).WithField("album", title).Error("Failed to insert album")
		return 0, err
	}
	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		return result.LastInsertId()
	}

	var id int64
	err = db.conn.QueryRow(
		"SELECT id FROM albums WHERE artist_id = ? AND title = ? AND type = ?",
		artistID, title, string(mediaType)).Scan(&id)
	if err != nil {
		return 0, err
	}
	if coverArtID != "" {
		// Backfill a cover for albums imported before art was seen
		if err := db.SetAlbumCoverIfEmpty(id, coverArtID); err != nil {
			db.logger.WithError(err).WithField("album_id", id).Warn("Failed to backfill album cover")
		}
	}
	return id, nil
}

// SetAlbumActive toggles an album's visibility in the ranked feed. Inactive
// albums keep their tracks; only album-level ranking skips them.
func (db *Database) SetAlbumActive(albumID int64, active bool) error {
	_, err := db.conn.Exec("UPDATE albums SET active = ? WHERE id = ?", active, albumID)
	if err != nil {
		db.logger.WithError(err).WithField("album_id", albumID).Error("Failed to set album active flag")
	}
	return err
}

// SetAlbumCoverIfEmpty assigns cover art to an album that has none yet.
func (db *Database) SetAlbumCoverIfEmpty(albumID int64, coverArtID string) error {
	_, err := db.conn.Exec(
		"UPDATE albums SET cover_art_id = ? WHERE id = ? AND (cover_art_id IS NULL OR cover_art_id = '')",
		coverArtID, albumID)
	return err
}

// InsertTrack inserts a new track or updates an existing track (matched by
// file_path) in the table for the given media type, returning the track's
// database ID.
func (db *Database) InsertTrack(mediaType models.MediaType, track models.Track) (int64, error) {
	table := trackTable(mediaType)

	var duration interface{}
	if track.Duration != nil {
		duration = *track.Duration
	}
	var thumb interface{}
	if track.ThumbID != "" {
		thumb = track.ThumbID
	}

	var existingID int64
	err := db.conn.QueryRow(
		fmt.Sprintf("SELECT id FROM %s WHERE file_path = ?", table), track.FilePath).Scan(&existingID)
	if err == nil {
		// Track exists, update it
		_, err = db.conn.Exec(fmt.Sprintf(`
			UPDATE %s SET album_id = ?, title = ?, track_number = ?, duration = ?, thumb_id = ?, file_size = ?
			WHERE id = ?`, table),
			track.AlbumID, track.Title, track.TrackNumber, duration, thumb, track.FileSize, existingID)
		if err != nil {
			db.logger.WithError(err).WithField("track_id", existingID).Error("Failed to update existing track")
		}
		return existingID, err
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	result, err := db.conn.Exec(fmt.Sprintf(`
		INSERT INTO %s (album_id, title, track_number, duration, thumb_id, file_path, file_size)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, table),
		track.AlbumID, track.Title, track.TrackNumber, duration, thumb, track.FilePath, track.FileSize)
	if err != nil {
		db.logger.WithError(err).WithField("file_path", track.FilePath).Error("Failed to insert new track")
		return 0, err
	}

	return result.LastInsertId()
}

// GetTrackByID returns a single track of the given media type by its ID.
func (db *Database) GetTrackByID(mediaType models.MediaType, id int64) (*models.Track, error) {
	var track models.Track
	var duration sql.NullInt64
	var thumbID sql.NullString

	err := db.conn.QueryRow(fmt.Sprintf(`
		SELECT id, album_id, title, track_number, duration, thumb_id, file_path, file_size
		FROM %s WHERE id = ?`, trackTable(mediaType)), id).Scan(
		&track.ID, &track.AlbumID, &track.Title, &track.TrackNumber,
		&duration, &thumbID, &track.FilePath, &track.FileSize)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s track with ID %d not found", mediaType, id)
		}
		db.logger.WithError(err).WithField("track_id", id).Error("Failed to get track by ID")
		return nil, err
	}

	if duration.Valid {
		d := int(duration.Int64)
		track.Duration = &d
	}
	if thumbID.Valid {
		track.ThumbID = thumbID.String
	}
	return &track, nil
}

// TrackExists returns true if a track of the given media type exists with
// the given file path.
func (db *Database) TrackExists(mediaType models.MediaType, filePath string) (bool, error) {
	var count int
	err := db.conn.QueryRow(
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE file_path = ?", trackTable(mediaType)), filePath).Scan(&count)
	if err != nil {
		db.logger.WithError(err).WithField("file_path", filePath).Error("Failed to check if track exists")
		return false, err
	}
	return count > 0, nil
}

// RemoveTrackByPath deletes a track row identified by its file path.
func (db *Database) RemoveTrackByPath(mediaType models.MediaType, filePath string) error {
	_, err := db.conn.Exec(
		fmt.Sprintf("DELETE FROM %s WHERE file_path = ?", trackTable(mediaType)), filePath)
	if err != nil {
		db.logger.WithError(err).WithField("file_path", filePath).Error("Failed to remove track by path")
	}
	return err
}

// CountTracks returns the number of tracks in the catalog for a media type.
func (db *Database) CountTracks(mediaType models.MediaType) (int, error) {
	var count int
	err := db.conn.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", trackTable(mediaType))).Scan(&count)
	return count, err
}
