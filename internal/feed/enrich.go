package feed

import (
	"database/sql"
	"fmt"

	"crescendo/internal/database"
	"crescendo/pkg/models"
)

// Enrich joins each track id to its catalog display data, preserving input
// order. Ids that no longer resolve to a track are silently dropped; the
// output never contains placeholder entries.
func (s *Service) Enrich(mediaType models.MediaType, trackIDs []int64) ([]models.EnrichedItem, error) {
	rows, err := s.db.TrackRowsByIDs(mediaType, trackIDs)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]database.TrackRow, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	items := make([]models.EnrichedItem, 0, len(trackIDs))
	for _, id := range trackIDs {
		row, ok := byID[id]
		if !ok {
			continue
		}
		items = append(items, buildTrackItem(mediaType, row))
	}
	return items, nil
}

// Latest is the fallback feed: the newest limit tracks of a media type,
// ordered by track id descending. It is served only when the ranked
// pipeline produces nothing.
func (s *Service) Latest(mediaType models.MediaType, limit int) ([]models.EnrichedItem, error) {
	rows, err := s.db.LatestTrackRows(mediaType, ClampLimit(limit))
	if err != nil {
		return nil, err
	}

	items := make([]models.EnrichedItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, buildTrackItem(mediaType, row))
	}
	return items, nil
}

// enrichAlbums builds display items for album favourites, preserving input
// order and dropping ids whose album has been deleted. Album items carry no
// media URL and no albumId of their own.
func (s *Service) enrichAlbums(albumIDs []int64) ([]models.EnrichedItem, error) {
	rows, err := s.db.AlbumRowsByIDs(albumIDs)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]database.AlbumRow, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	items := make([]models.EnrichedItem, 0, len(albumIDs))
	for _, id := range albumIDs {
		row, ok := byID[id]
		if !ok {
			continue
		}

		artistID := row.ArtistID
		item := models.EnrichedItem{
			ID:         row.ID,
			Title:      row.Title,
			ArtistName: row.ArtistName,
			ArtistID:   &artistID,
		}
		if row.CoverArtID.Valid && row.CoverArtID.String != "" {
			item.AlbumArt = coverURL(row.CoverArtID.String)
		}
		items = append(items, item)
	}
	return items, nil
}

// buildTrackItem shapes one enrichment row into the response projection.
// Cover art resolution order: track thumbnail, then album cover, then null.
func buildTrackItem(mediaType models.MediaType, row database.TrackRow) models.EnrichedItem {
	artistID := row.ArtistID
	albumID := row.AlbumID

	item := models.EnrichedItem{
		ID:                row.ID,
		Title:             row.Title,
		ArtistName:        row.ArtistName,
		DurationFormatted: formatNullDuration(row.Duration),
		ArtistID:          &artistID,
		AlbumID:           &albumID,
	}

	switch {
	case row.ThumbID.Valid && row.ThumbID.String != "":
		item.AlbumArt = coverURL(row.ThumbID.String)
	case row.AlbumCoverID.Valid && row.AlbumCoverID.String != "":
		item.AlbumArt = coverURL(row.AlbumCoverID.String)
	}

	if mediaType == models.MediaVideo {
		item.VideoURL = fmt.Sprintf("/stream/video/%d", row.ID)
	} else {
		item.AudioURL = fmt.Sprintf("/stream/audio/%d", row.ID)
	}
	return item
}

// coverURL points at the cover art endpoint for an extracted art asset.
func coverURL(artID string) *string {
	u := "/covers/" + artID
	return &u
}

// FormatDuration renders a duration in seconds as "M:SS" with zero-padded
// seconds. Unknown (nil) or negative durations render as nil, not "0:00".
func FormatDuration(seconds *int) *string {
	if seconds == nil || *seconds < 0 {
		return nil
	}
	formatted := fmt.Sprintf("%d:%02d", *seconds/60, *seconds%60)
	return &formatted
}

// formatNullDuration adapts a nullable database duration to FormatDuration.
func formatNullDuration(d sql.NullInt64) *string {
	if !d.Valid {
		return nil
	}
	seconds := int(d.Int64)
	return FormatDuration(&seconds)
}
