package database

import (
	"database/sql"
	"fmt"
	"strings"

	"crescendo/pkg/models"
)

// AlbumTracks pairs an album with the ids of its tracks. Albums without any
// tracks never appear; the join requires at least one track row.
type AlbumTracks struct {
	AlbumID  int64
	TrackIDs []int64
}

// TrackRow is the raw enrichment join result for a single track: the
// track's own fields plus its parent album and artist display data.
type TrackRow struct {
	ID           int64
	Title        string
	Duration     sql.NullInt64
	ThumbID      sql.NullString
	AlbumID      int64
	AlbumCoverID sql.NullString
	ArtistID     int64
	ArtistName   string
}

// AlbumRow is the enrichment join result for an album favourite.
type AlbumRow struct {
	ID         int64
	Title      string
	CoverArtID sql.NullString
	ArtistID   int64
	ArtistName string
}

// CountPlays aggregates the play log for one media type into a mapping of
// track id to play count. Tracks without recorded plays are absent from the
// result; callers treat a missing key as zero.
func (db *Database) CountPlays(mediaType models.MediaType) (map[int64]int64, error) {
	rows, err := db.countPlaysStmt.Query(string(mediaType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPlayCountRows(rows)
}

// CountPlaysFor aggregates play counts for a specific set of track ids of
// one media type. An empty id set yields an empty mapping without querying.
func (db *Database) CountPlaysFor(mediaType models.MediaType, trackIDs []int64) (map[int64]int64, error) {
	if len(trackIDs) == 0 {
		return map[int64]int64{}, nil
	}

	query := fmt.Sprintf(`
		SELECT track_id, COUNT(*)
		FROM play_history
		WHERE media_type = ? AND track_id IN (%s)
		GROUP BY track_id`, placeholders(len(trackIDs)))

	args := make([]interface{}, 0, len(trackIDs)+1)
	args = append(args, string(mediaType))
	for _, id := range trackIDs {
		args = append(args, id)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPlayCountRows(rows)
}

// AlbumTracksByType returns every active album of the given media type
// together with its track ids. Albums with zero tracks are excluded by the
// inner join; ordering is incidental and callers impose their own.
func (db *Database) AlbumTracksByType(mediaType models.MediaType) ([]AlbumTracks, error) {
	query := fmt.Sprintf(`
		SELECT a.id, t.id
		FROM albums a
		JOIN %s t ON t.album_id = a.id
		WHERE a.type = ? AND a.active
		ORDER BY a.id, t.id`, trackTable(mediaType))

	rows, err := db.conn.Query(query, string(mediaType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AlbumTracks
	for rows.Next() {
		var albumID, trackID int64
		if err := rows.Scan(&albumID, &trackID); err != nil {
			return nil, err
		}
		if n := len(result); n > 0 && result[n-1].AlbumID == albumID {
			result[n-1].TrackIDs = append(result[n-1].TrackIDs, trackID)
		} else {
			result = append(result, AlbumTracks{AlbumID: albumID, TrackIDs: []int64{trackID}})
		}
	}
	return result, rows.Err()
}

// TrackIDsByAlbum returns the ids of all tracks belonging to an album.
func (db *Database) TrackIDsByAlbum(mediaType models.MediaType, albumID int64) ([]int64, error) {
	rows, err := db.conn.Query(
		fmt.Sprintf("SELECT id FROM %s WHERE album_id = ? ORDER BY id", trackTable(mediaType)), albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TrackRowsByIDs joins each requested track to its parent album and the
// album's artist. Ids with no matching row are simply absent from the
// result; callers are responsible for input-order reassembly.
func (db *Database) TrackRowsByIDs(mediaType models.MediaType, trackIDs []int64) ([]TrackRow, error) {
	if len(trackIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT t.id, t.title, t.duration, t.thumb_id, a.id, a.cover_art_id, ar.id, ar.name
		FROM %s t
		JOIN albums a ON a.id = t.album_id
		JOIN artists ar ON ar.id = a.artist_id
		WHERE t.id IN (%s)`, trackTable(mediaType), placeholders(len(trackIDs)))

	args := make([]interface{}, 0, len(trackIDs))
	for _, id := range trackIDs {
		args = append(args, id)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// LatestTrackRows returns the enrichment rows for the most recently created
// tracks of a media type, ordered by track id descending. Track ids are
// assigned sequentially, so id order is a recency proxy.
func (db *Database) LatestTrackRows(mediaType models.MediaType, limit int) ([]TrackRow, error) {
	query := fmt.Sprintf(`
		SELECT t.id, t.title, t.duration, t.thumb_id, a.id, a.cover_art_id, ar.id, ar.name
		FROM %s t
		JOIN albums a ON a.id = t.album_id
		JOIN artists ar ON ar.id = a.artist_id
		ORDER BY t.id DESC
		LIMIT ?`, trackTable(mediaType))

	rows, err := db.conn.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// AlbumRowsByIDs joins each requested album to its artist. Missing albums
// are absent from the result.
func (db *Database) AlbumRowsByIDs(albumIDs []int64) ([]AlbumRow, error) {
	if len(albumIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT a.id, a.title, a.cover_art_id, ar.id, ar.name
		FROM albums a
		JOIN artists ar ON ar.id = a.artist_id
		WHERE a.id IN (%s)`, placeholders(len(albumIDs)))

	args := make([]interface{}, 0, len(albumIDs))
	for _, id := range albumIDs {
		args = append(args, id)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AlbumRow
	for rows.Next() {
		var row AlbumRow
		if err := rows.Scan(&row.ID, &row.Title, &row.CoverArtID, &row.ArtistID, &row.ArtistName); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// placeholders returns n comma-separated SQL parameter markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// scanPlayCountRows scans (track_id, count) result sets into a map.
func scanPlayCountRows(rows *sql.Rows) (map[int64]int64, error) {
	counts := make(map[int64]int64)
	for rows.Next() {
		var trackID, count int64
		if err := rows.Scan(&trackID, &count); err != nil {
			return nil, err
		}
		counts[trackID] = count
	}
	return counts, rows.Err()
}

// scanTrackRows scans standard enrichment result sets into a slice of
// TrackRow. It centralizes row iteration logic to reduce duplication across
// query helpers. Callers must have already deferred rows.Close().
func scanTrackRows(rows *sql.Rows) ([]TrackRow, error) {
	var result []TrackRow
	for rows.Next() {
		var row TrackRow
		if err := rows.Scan(&row.ID, &row.Title, &row.Duration, &row.ThumbID,
			&row.AlbumID, &row.AlbumCoverID, &row.ArtistID, &row.ArtistName); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
