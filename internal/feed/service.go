// Package feed implements the play-ranked home feed aggregation: top albums
// per media type ordered by play-count popularity, the best track within
// each album, display enrichment, a latest-tracks fallback, and the
// favourites pipeline.
package feed

import (
	"strconv"

	"crescendo/internal/database"
	"crescendo/pkg/models"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultLimit is used when no limit (or an unparseable one) is given.
	DefaultLimit = 10
	// MinLimit and MaxLimit bound the requested feed size. Out-of-range
	// values are clamped, never rejected.
	MinLimit = 1
	MaxLimit = 50
	// FavouritesLimit caps each favourite kind in the assembled feed.
	FavouritesLimit = 10
)

// Service computes home feeds over the read-only catalog and play log.
// All methods are safe for concurrent use; the service holds no mutable
// state of its own.
type Service struct {
	db     *database.Database
	logger *logrus.Logger
}

// NewService creates a feed service on top of the given database.
func NewService(db *database.Database, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// RequestContext carries the caller identity explicitly into every
// aggregation call. An empty Username means the request is anonymous, which
// is valid and yields empty favourite lists.
type RequestContext struct {
	Username string
}

// Anonymous reports whether the request carries no caller identity.
func (rc RequestContext) Anonymous() bool {
	return rc.Username == ""
}

// HomeFeed is the assembled home feed response body.
type HomeFeed struct {
	TopAudios       []models.EnrichedItem `json:"topAudios"`
	TopVideos       []models.EnrichedItem `json:"topVideos"`
	FavouriteAudios []models.EnrichedItem `json:"favouriteAudios"`
	FavouriteVideos []models.EnrichedItem `json:"favouriteVideos"`
	FavouriteAlbums []models.EnrichedItem `json:"favouriteAlbums"`
}

// ClampLimit forces a requested limit into [MinLimit, MaxLimit].
func ClampLimit(limit int) int {
	if limit < MinLimit {
		return MinLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// ParseLimit interprets a raw query value. Empty or non-numeric input
// defaults to DefaultLimit; numeric input is clamped.
func ParseLimit(raw string) int {
	if raw == "" {
		return DefaultLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultLimit
	}
	return ClampLimit(limit)
}
