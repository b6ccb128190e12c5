package feed

import (
	"sort"

	"crescendo/pkg/models"
)

// RankAlbums orders the albums of one media type by total play count across
// their tracks, descending, and returns the first limit album ids. Ties are
// broken by album id descending, so the order is a stable total order and
// repeated calls over identical data yield identical sequences. Albums with
// no tracks are not eligible at all.
func (s *Service) RankAlbums(mediaType models.MediaType, limit int) ([]int64, error) {
	albums, err := s.db.AlbumTracksByType(mediaType)
	if err != nil {
		return nil, err
	}
	if len(albums) == 0 {
		return nil, nil
	}

	plays, err := s.db.CountPlays(mediaType)
	if err != nil {
		// A failed count degrades to "no plays recorded" so the feed
		// stays available; ordering falls back to album id.
		s.logger.WithError(err).WithField("media_type", mediaType).Warn("Play count aggregation failed, treating as zero plays")
		plays = nil
	}

	type albumRank struct {
		id    int64
		total int64
	}

	ranked := make([]albumRank, 0, len(albums))
	for _, album := range albums {
		var total int64
		for _, trackID := range album.TrackIDs {
			total += plays[trackID]
		}
		ranked = append(ranked, albumRank{id: album.AlbumID, total: total})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].total != ranked[j].total {
			return ranked[i].total > ranked[j].total
		}
		return ranked[i].id > ranked[j].id
	})

	limit = ClampLimit(limit)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	ids := make([]int64, len(ranked))
	for i, r := range ranked {
		ids[i] = r.id
	}
	return ids, nil
}

// BestTrackPerAlbum picks the most-played track within each album,
// preserving the album order of the input. Ties (including all-zero plays)
// resolve to the lowest track id. Albums that turn out to have no tracks
// are dropped, shortening the output.
//
// Note the tie-break direction deliberately differs from RankAlbums: album
// ranking breaks ties by id descending, track selection by id ascending.
func (s *Service) BestTrackPerAlbum(mediaType models.MediaType, albumIDs []int64) ([]int64, error) {
	best := make([]int64, 0, len(albumIDs))
	for _, albumID := range albumIDs {
		trackIDs, err := s.db.TrackIDsByAlbum(mediaType, albumID)
		if err != nil {
			return nil, err
		}
		if len(trackIDs) == 0 {
			continue
		}

		counts, err := s.db.CountPlaysFor(mediaType, trackIDs)
		if err != nil {
			s.logger.WithError(err).WithField("album_id", albumID).Warn("Per-album play count failed, treating as zero plays")
			counts = nil
		}

		// trackIDs come back in ascending id order, so a strict
		// greater-than comparison keeps the lowest id on ties.
		bestID := trackIDs[0]
		bestPlays := counts[bestID]
		for _, trackID := range trackIDs[1:] {
			if counts[trackID] > bestPlays {
				bestID = trackID
				bestPlays = counts[trackID]
			}
		}
		best = append(best, bestID)
	}
	return best, nil
}
