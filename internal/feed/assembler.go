package feed

import (
	"fmt"
	"sync"

	"crescendo/internal/metrics"
	"crescendo/pkg/models"
)

// BuildHomeFeed assembles the complete home feed: the ranked top albums'
// best tracks for both media types, with a latest-tracks fallback per type,
// plus the caller's favourites when an identity is present.
//
// The two media type pipelines run concurrently and independently, as do
// the three favourite kinds; total latency is the slowest branch, not the
// sum. A failure in one branch degrades that branch to an empty list and
// never fails the assembly. The only hard error is the storage collaborator
// being unreachable before any branch can run.
func (s *Service) BuildHomeFeed(limit int, rc RequestContext) (HomeFeed, error) {
	if err := s.db.Ping(); err != nil {
		return HomeFeed{}, fmt.Errorf("storage unreachable: %w", err)
	}

	limit = ClampLimit(limit)

	result := HomeFeed{
		FavouriteAudios: []models.EnrichedItem{},
		FavouriteVideos: []models.EnrichedItem{},
		FavouriteAlbums: []models.EnrichedItem{},
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		result.TopAudios = s.topForType(models.MediaAudio, limit)
	}()
	go func() {
		defer wg.Done()
		result.TopVideos = s.topForType(models.MediaVideo, limit)
	}()
	wg.Wait()

	if !rc.Anonymous() {
		wg.Add(3)
		go func() {
			defer wg.Done()
			items, err := s.FavouritesFor(rc, models.FavouriteTrack, FavouritesLimit)
			result.FavouriteAudios = s.foldEmpty("favourite_audios", items, err)
		}()
		go func() {
			defer wg.Done()
			items, err := s.FavouritesFor(rc, models.FavouriteVideo, FavouritesLimit)
			result.FavouriteVideos = s.foldEmpty("favourite_videos", items, err)
		}()
		go func() {
			defer wg.Done()
			items, err := s.FavouritesFor(rc, models.FavouriteAlbum, FavouritesLimit)
			result.FavouriteAlbums = s.foldEmpty("favourite_albums", items, err)
		}()
		wg.Wait()
	}

	return result, nil
}

// topForType runs the ranked pipeline for one media type and substitutes
// the latest-tracks fallback when (and only when) the primary path yields
// nothing. The fallback decision for each media type is independent of the
// other.
func (s *Service) topForType(mediaType models.MediaType, limit int) []models.EnrichedItem {
	branch := "top_" + string(mediaType)

	ranked, err := s.rankedPipeline(mediaType, limit)
	items := s.foldEmpty(branch, ranked, err)
	if len(items) > 0 {
		return items
	}

	metrics.FeedFallbacksTotal.WithLabelValues(string(mediaType)).Inc()
	s.logger.WithField("media_type", mediaType).Debug("Ranked feed empty, serving latest tracks")
	latest, err := s.Latest(mediaType, limit)
	return s.foldEmpty(branch+"_fallback", latest, err)
}

// rankedPipeline chains ranking, best-track selection and enrichment for
// one media type.
func (s *Service) rankedPipeline(mediaType models.MediaType, limit int) ([]models.EnrichedItem, error) {
	albumIDs, err := s.RankAlbums(mediaType, limit)
	if err != nil {
		return nil, err
	}
	trackIDs, err := s.BestTrackPerAlbum(mediaType, albumIDs)
	if err != nil {
		return nil, err
	}
	return s.Enrich(mediaType, trackIDs)
}

// foldEmpty is the per-branch error boundary: a failed branch is logged and
// degraded to an empty list instead of propagating, so one branch cannot
// take down the whole feed.
func (s *Service) foldEmpty(branch string, items []models.EnrichedItem, err error) []models.EnrichedItem {
	if err != nil {
		s.logger.WithError(err).WithField("branch", branch).Warn("Feed branch failed, serving empty result")
		return []models.EnrichedItem{}
	}
	if items == nil {
		return []models.EnrichedItem{}
	}
	return items
}
