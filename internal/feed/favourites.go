package feed

import (
	"crescendo/pkg/models"
)

// FavouritesFor returns a user's saved favourites of one kind, enriched
// with the same display shape as the ranked feed, most recently saved
// first. Anonymous callers always get an empty list, never an error.
// Favourites whose target entity has since been deleted are dropped
// silently; no placeholder entry is substituted.
func (s *Service) FavouritesFor(rc RequestContext, kind models.FavouriteKind, limit int) ([]models.EnrichedItem, error) {
	if rc.Anonymous() {
		return []models.EnrichedItem{}, nil
	}

	refs, err := s.db.ListFavourites(rc.Username, kind, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(refs))
	for i, ref := range refs {
		ids[i] = ref.EntityID
	}

	switch kind {
	case models.FavouriteAlbum:
		return s.enrichAlbums(ids)
	case models.FavouriteVideo:
		return s.Enrich(models.MediaVideo, ids)
	default:
		return s.Enrich(models.MediaAudio, ids)
	}
}
