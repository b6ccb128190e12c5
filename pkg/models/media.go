package models

import "time"

// MediaType distinguishes the two track catalogs. An album holds tracks of
// exactly one media type; the type is fixed at album creation.
type MediaType string

const (
	MediaAudio MediaType = "audio"
	MediaVideo MediaType = "video"
)

// Valid reports whether t is one of the known media types.
func (t MediaType) Valid() bool {
	return t == MediaAudio || t == MediaVideo
}

// FavouriteKind names the kinds of entities a user can favourite.
type FavouriteKind string

const (
	FavouriteAlbum FavouriteKind = "album"
	FavouriteTrack FavouriteKind = "track"
	FavouriteVideo FavouriteKind = "video"
)

// Valid reports whether k is one of the known favourite kinds.
func (k FavouriteKind) Valid() bool {
	return k == FavouriteAlbum || k == FavouriteTrack || k == FavouriteVideo
}

// Artist represents a catalog artist owning one or more albums.
type Artist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Album represents a collection of tracks of one media type.
type Album struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Type       MediaType `json:"type"`
	ArtistID   int64     `json:"artistId"`
	CoverArtID string    `json:"coverArtId,omitempty"`
	Active     bool      `json:"active"`
}

// Track represents a single playable item. Audio and video tracks live in
// physically separate tables with identical shape; their identifiers are
// namespaced per media type and never compared across types.
type Track struct {
	ID          int64  `json:"id"`
	AlbumID     int64  `json:"albumId"`
	Title       string `json:"title"`
	TrackNumber int    `json:"trackNumber"`
	Duration    *int   `json:"duration,omitempty"` // seconds, nil when unknown
	ThumbID     string `json:"thumbId,omitempty"`  // overrides album cover when set
	FilePath    string `json:"-"`                  // don't expose file path to client
	FileSize    int64  `json:"fileSize"`
}

// PlayEvent is one row of the append-only play log.
type PlayEvent struct {
	ID        int64     `json:"id"`
	MediaType MediaType `json:"mediaType"`
	TrackID   int64     `json:"trackId"`
	Username  string    `json:"username,omitempty"`
	PlayedAt  time.Time `json:"playedAt"`
}

// Favourite is a user's saved reference to an album, track or video.
type Favourite struct {
	ID        int64         `json:"id"`
	Username  string        `json:"username"`
	Kind      FavouriteKind `json:"kind"`
	EntityID  int64         `json:"entityId"`
	CreatedAt time.Time     `json:"createdAt"`
}

// EnrichedItem is the display-ready projection served by the home feed. It
// combines a track's (or album's) own fields with joined artist and album
// data. Media URL fields are kind-specific; album items carry neither a
// media URL nor an albumId.
type EnrichedItem struct {
	ID                int64   `json:"id"`
	Title             string  `json:"title"`
	ArtistName        string  `json:"artistName"`
	AlbumArt          *string `json:"albumArt"`
	AudioURL          string  `json:"audioUrl,omitempty"`
	VideoURL          string  `json:"videoUrl,omitempty"`
	DurationFormatted *string `json:"durationFormatted"`
	ArtistID          *int64  `json:"artistId"`
	AlbumID           *int64  `json:"albumId,omitempty"`
}
