package tests

import (
	"path/filepath"
	"testing"

	"crescendo/internal/database"
	"crescendo/internal/feed"
	"crescendo/pkg/models"

	"github.com/sirupsen/logrus"
)

func newTestFeedService(t *testing.T) (*feed.Service, *database.Database) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "feed_test.db")
	db, err := database.NewDatabase(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	return feed.NewService(db, logger), db
}

func recordPlays(t *testing.T, db *database.Database, mediaType models.MediaType, trackID int64, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		if err := db.RecordPlay(mediaType, trackID, ""); err != nil {
			t.Fatalf("Failed to record play: %v", err)
		}
	}
}

func TestRankAlbums(t *testing.T) {
	svc, db := newTestFeedService(t)

	// Three albums with different total plays spread across their tracks
	quietID := seedTrack(t, db, models.MediaAudio, "Artist A", "Quiet", "Q1", "/music/q1.mp3", 100)
	loudOne := seedTrack(t, db, models.MediaAudio, "Artist A", "Loud", "L1", "/music/l1.mp3", 100)
	loudTwo := seedTrack(t, db, models.MediaAudio, "Artist A", "Loud", "L2", "/music/l2.mp3", 100)
	midID := seedTrack(t, db, models.MediaAudio, "Artist B", "Middle", "M1", "/music/m1.mp3", 100)

	recordPlays(t, db, models.MediaAudio, quietID, 1)
	recordPlays(t, db, models.MediaAudio, loudOne, 3)
	recordPlays(t, db, models.MediaAudio, loudTwo, 4) // Loud album total: 7
	recordPlays(t, db, models.MediaAudio, midID, 5)

	quietAlbum := albumOf(t, db, models.MediaAudio, quietID)
	loudAlbum := albumOf(t, db, models.MediaAudio, loudOne)
	midAlbum := albumOf(t, db, models.MediaAudio, midID)

	t.Run("OrdersBySummedPlays", func(t *testing.T) {
		ranked, err := svc.RankAlbums(models.MediaAudio, 10)
		if err != nil {
			t.Fatalf("Failed to rank albums: %v", err)
		}

		want := []int64{loudAlbum, midAlbum, quietAlbum}
		if len(ranked) != len(want) {
			t.Fatalf("Expected %d albums, got %d", len(want), len(ranked))
		}
		for i, albumID := range want {
			if ranked[i] != albumID {
				t.Errorf("Position %d: expected album %d, got %d", i, albumID, ranked[i])
			}
		}
	})

	t.Run("TiesBreakByHigherAlbumID", func(t *testing.T) {
		// Two fresh albums with equal totals
		firstTrack := seedTrack(t, db, models.MediaAudio, "Tie", "Tie One", "T1", "/music/t1.mp3", 100)
		secondTrack := seedTrack(t, db, models.MediaAudio, "Tie", "Tie Two", "T2", "/music/t2.mp3", 100)
		recordPlays(t, db, models.MediaAudio, firstTrack, 9)
		recordPlays(t, db, models.MediaAudio, secondTrack, 9)

		firstAlbum := albumOf(t, db, models.MediaAudio, firstTrack)
		secondAlbum := albumOf(t, db, models.MediaAudio, secondTrack)

		ranked, err := svc.RankAlbums(models.MediaAudio, 10)
		if err != nil {
			t.Fatalf("Failed to rank albums: %v", err)
		}

		posFirst := indexOf(ranked, firstAlbum)
		posSecond := indexOf(ranked, secondAlbum)
		if posFirst < 0 || posSecond < 0 {
			t.Fatalf("Tied albums missing from ranking: %v", ranked)
		}
		if posSecond > posFirst {
			t.Errorf("Expected higher album id %d before %d in %v", secondAlbum, firstAlbum, ranked)
		}
	})

	t.Run("ZeroTrackAlbumsExcluded", func(t *testing.T) {
		artistID, err := db.UpsertArtist("Empty Artist")
		if err != nil {
			t.Fatalf("Failed to upsert artist: %v", err)
		}
		emptyAlbum, err := db.UpsertAlbum(artistID, "Empty Album", models.MediaAudio, "")
		if err != nil {
			t.Fatalf("Failed to upsert album: %v", err)
		}

		ranked, err := svc.RankAlbums(models.MediaAudio, 50)
		if err != nil {
			t.Fatalf("Failed to rank albums: %v", err)
		}
		if indexOf(ranked, emptyAlbum) >= 0 {
			t.Errorf("Album with no tracks must not be ranked, got %v", ranked)
		}
	})

	t.Run("LimitTruncates", func(t *testing.T) {
		ranked, err := svc.RankAlbums(models.MediaAudio, 2)
		if err != nil {
			t.Fatalf("Failed to rank albums: %v", err)
		}
		if len(ranked) != 2 {
			t.Errorf("Expected 2 albums, got %d", len(ranked))
		}
	})
}

func TestBestTrackPerAlbum(t *testing.T) {
	svc, db := newTestFeedService(t)

	first := seedTrack(t, db, models.MediaAudio, "Artist", "Album", "One", "/music/one.mp3", 100)
	second := seedTrack(t, db, models.MediaAudio, "Artist", "Album", "Two", "/music/two.mp3", 100)
	third := seedTrack(t, db, models.MediaAudio, "Artist", "Album", "Three", "/music/three.mp3", 100)

	albumID := albumOf(t, db, models.MediaAudio, first)

	t.Run("PicksMostPlayed", func(t *testing.T) {
		recordPlays(t, db, models.MediaAudio, second, 5)
		recordPlays(t, db, models.MediaAudio, third, 2)

		best, err := svc.BestTrackPerAlbum(models.MediaAudio, []int64{albumID})
		if err != nil {
			t.Fatalf("Failed to pick best tracks: %v", err)
		}
		if len(best) != 1 || best[0] != second {
			t.Errorf("Expected best track %d, got %v", second, best)
		}
	})

	t.Run("TiesBreakByLowerTrackID", func(t *testing.T) {
		// Bring first up to the same count as second
		recordPlays(t, db, models.MediaAudio, first, 5)

		best, err := svc.BestTrackPerAlbum(models.MediaAudio, []int64{albumID})
		if err != nil {
			t.Fatalf("Failed to pick best tracks: %v", err)
		}
		if len(best) != 1 || best[0] != first {
			t.Errorf("Expected tie to resolve to lower id %d, got %v", first, best)
		}
	})

	t.Run("ZeroPlayAlbumStillYieldsTrack", func(t *testing.T) {
		cold := seedTrack(t, db, models.MediaAudio, "Cold", "Cold Album", "C1", "/music/c1.mp3", 100)
		coldAlbum := albumOf(t, db, models.MediaAudio, cold)

		best, err := svc.BestTrackPerAlbum(models.MediaAudio, []int64{coldAlbum})
		if err != nil {
			t.Fatalf("Failed to pick best tracks: %v", err)
		}
		if len(best) != 1 || best[0] != cold {
			t.Errorf("Expected unplayed album to yield its lowest track id, got %v", best)
		}
	})
}

func TestEnrich(t *testing.T) {
	svc, db := newTestFeedService(t)

	first := seedTrack(t, db, models.MediaAudio, "Artist", "Album", "First", "/music/e1.mp3", 125)
	second := seedTrack(t, db, models.MediaAudio, "Artist", "Album", "Second", "/music/e2.mp3", 0)

	t.Run("PreservesOrderAndDropsMissing", func(t *testing.T) {
		items, err := svc.Enrich(models.MediaAudio, []int64{second, 424242, first})
		if err != nil {
			t.Fatalf("Failed to enrich: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("Expected 2 items, got %d", len(items))
		}
		if items[0].ID != second || items[1].ID != first {
			t.Errorf("Expected input order preserved, got %d, %d", items[0].ID, items[1].ID)
		}
	})

	t.Run("ShapesDisplayFields", func(t *testing.T) {
		items, err := svc.Enrich(models.MediaAudio, []int64{first})
		if err != nil {
			t.Fatalf("Failed to enrich: %v", err)
		}
		item := items[0]

		if item.ArtistName != "Artist" {
			t.Errorf("Expected artist name, got %q", item.ArtistName)
		}
		if item.AudioURL == "" || item.VideoURL != "" {
			t.Errorf("Audio item must carry only an audio URL, got %q / %q", item.AudioURL, item.VideoURL)
		}
		if item.DurationFormatted == nil || *item.DurationFormatted != "2:05" {
			t.Errorf("Expected duration 2:05, got %v", item.DurationFormatted)
		}
		if item.AlbumArt != nil {
			t.Errorf("Expected nil album art without covers, got %v", *item.AlbumArt)
		}
	})

	t.Run("VideoItemsCarryVideoURL", func(t *testing.T) {
		videoID := seedTrack(t, db, models.MediaVideo, "V Artist", "V Album", "Clip", "/videos/clip.mp4", 90)

		items, err := svc.Enrich(models.MediaVideo, []int64{videoID})
		if err != nil {
			t.Fatalf("Failed to enrich video: %v", err)
		}
		if items[0].VideoURL == "" || items[0].AudioURL != "" {
			t.Errorf("Video item must carry only a video URL, got %q / %q", items[0].AudioURL, items[0].VideoURL)
		}
	})
}

func TestHomeFeedFallback(t *testing.T) {
	svc, db := newTestFeedService(t)

	// Audio has plays; video has tracks but no plays at all
	audioID := seedTrack(t, db, models.MediaAudio, "Artist", "Album", "Hot", "/music/hot.mp3", 100)
	recordPlays(t, db, models.MediaAudio, audioID, 2)

	oldVideo := seedTrack(t, db, models.MediaVideo, "V", "V Album", "Old", "/videos/old.mp4", 100)
	newVideo := seedTrack(t, db, models.MediaVideo, "V", "V Album", "New", "/videos/new.mp4", 100)

	homeFeed, err := svc.BuildHomeFeed(10, feed.RequestContext{})
	if err != nil {
		t.Fatalf("Failed to build home feed: %v", err)
	}

	t.Run("PrimaryServedWhenNonEmpty", func(t *testing.T) {
		if len(homeFeed.TopAudios) != 1 || homeFeed.TopAudios[0].ID != audioID {
			t.Errorf("Expected ranked audio feed, got %+v", homeFeed.TopAudios)
		}
	})

	t.Run("UnplayedCatalogStillRanks", func(t *testing.T) {
		// Video albums exist but have zero plays: the ranked path still
		// yields each album's lowest track id, no fallback needed.
		if len(homeFeed.TopVideos) != 1 || homeFeed.TopVideos[0].ID != oldVideo {
			t.Errorf("Expected zero-play album to yield its lowest track id, got %+v", homeFeed.TopVideos)
		}
	})

	t.Run("EmptyCatalogYieldsEmptyLists", func(t *testing.T) {
		emptySvc, _ := newTestFeedService(t)

		empty, err := emptySvc.BuildHomeFeed(10, feed.RequestContext{})
		if err != nil {
			t.Fatalf("Empty catalog must not error: %v", err)
		}
		if empty.TopAudios == nil || len(empty.TopAudios) != 0 {
			t.Errorf("Expected empty (non-nil) audio list, got %v", empty.TopAudios)
		}
		if empty.TopVideos == nil || len(empty.TopVideos) != 0 {
			t.Errorf("Expected empty (non-nil) video list, got %v", empty.TopVideos)
		}
	})

	t.Run("FallbackSubstitutesLatestTracks", func(t *testing.T) {
		// Deactivating every video album empties the ranked pipeline, so
		// the latest-tracks fallback must serve, newest id first. The
		// audio side keeps its ranked feed untouched.
		videoAlbum := albumOf(t, db, models.MediaVideo, oldVideo)
		if err := db.SetAlbumActive(videoAlbum, false); err != nil {
			t.Fatalf("Failed to deactivate album: %v", err)
		}
		t.Cleanup(func() {
			if err := db.SetAlbumActive(videoAlbum, true); err != nil {
				t.Fatalf("Failed to reactivate album: %v", err)
			}
		})

		fallbackFeed, err := svc.BuildHomeFeed(10, feed.RequestContext{})
		if err != nil {
			t.Fatalf("Failed to build home feed: %v", err)
		}

		if len(fallbackFeed.TopVideos) != 2 {
			t.Fatalf("Expected 2 fallback videos, got %d", len(fallbackFeed.TopVideos))
		}
		if fallbackFeed.TopVideos[0].ID != newVideo || fallbackFeed.TopVideos[1].ID != oldVideo {
			t.Errorf("Expected latest-first fallback [%d, %d], got [%d, %d]",
				newVideo, oldVideo, fallbackFeed.TopVideos[0].ID, fallbackFeed.TopVideos[1].ID)
		}
		if len(fallbackFeed.TopAudios) != 1 || fallbackFeed.TopAudios[0].ID != audioID {
			t.Errorf("Expected audio feed to stay ranked, got %+v", fallbackFeed.TopAudios)
		}
	})

	t.Run("LatestOrdersNewestFirst", func(t *testing.T) {
		items, err := svc.Latest(models.MediaVideo, 10)
		if err != nil {
			t.Fatalf("Failed to get latest: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("Expected 2 latest videos, got %d", len(items))
		}
		if items[0].ID != newVideo || items[1].ID != oldVideo {
			t.Errorf("Expected newest-first ordering, got %d, %d", items[0].ID, items[1].ID)
		}
	})
}

func TestHomeFeedFavourites(t *testing.T) {
	svc, db := newTestFeedService(t)

	trackID := seedTrack(t, db, models.MediaAudio, "Fav Artist", "Fav Album", "Kept", "/music/kept.mp3", 100)
	videoID := seedTrack(t, db, models.MediaVideo, "Fav Artist", "Fav Videos", "Seen", "/videos/seen.mp4", 100)
	albumID := albumOf(t, db, models.MediaAudio, trackID)

	mustAddFavourite(t, db, "carol", models.FavouriteTrack, trackID)
	mustAddFavourite(t, db, "carol", models.FavouriteVideo, videoID)
	mustAddFavourite(t, db, "carol", models.FavouriteAlbum, albumID)
	// A favourite whose target was never in the catalog is dropped silently
	mustAddFavourite(t, db, "carol", models.FavouriteTrack, 987654)

	t.Run("AnonymousGetsEmptyFavourites", func(t *testing.T) {
		homeFeed, err := svc.BuildHomeFeed(10, feed.RequestContext{})
		if err != nil {
			t.Fatalf("Failed to build home feed: %v", err)
		}
		if len(homeFeed.FavouriteAudios) != 0 || len(homeFeed.FavouriteVideos) != 0 || len(homeFeed.FavouriteAlbums) != 0 {
			t.Error("Anonymous feed must carry no favourites")
		}
		if homeFeed.FavouriteAudios == nil {
			t.Error("Favourite lists must be empty, not nil")
		}
	})

	t.Run("AuthenticatedGetsEnrichedFavourites", func(t *testing.T) {
		homeFeed, err := svc.BuildHomeFeed(10, feed.RequestContext{Username: "carol"})
		if err != nil {
			t.Fatalf("Failed to build home feed: %v", err)
		}

		if len(homeFeed.FavouriteAudios) != 1 || homeFeed.FavouriteAudios[0].ID != trackID {
			t.Errorf("Expected one audio favourite (deleted target dropped), got %+v", homeFeed.FavouriteAudios)
		}
		if len(homeFeed.FavouriteVideos) != 1 || homeFeed.FavouriteVideos[0].ID != videoID {
			t.Errorf("Expected one video favourite, got %+v", homeFeed.FavouriteVideos)
		}
		if len(homeFeed.FavouriteAlbums) != 1 || homeFeed.FavouriteAlbums[0].ID != albumID {
			t.Errorf("Expected one album favourite, got %+v", homeFeed.FavouriteAlbums)
		}
		if homeFeed.FavouriteAlbums[0].AudioURL != "" || homeFeed.FavouriteAlbums[0].VideoURL != "" {
			t.Error("Album favourites must not carry media URLs")
		}
	})

	t.Run("FavouritesCappedAtTen", func(t *testing.T) {
		for i := 0; i < 15; i++ {
			id := seedTrack(t, db, models.MediaAudio, "Bulk", "Bulk Album", "Bulk", filepath.Join("/music/bulk", string(rune('a'+i))+".mp3"), 100)
			mustAddFavourite(t, db, "dave", models.FavouriteTrack, id)
		}

		homeFeed, err := svc.BuildHomeFeed(10, feed.RequestContext{Username: "dave"})
		if err != nil {
			t.Fatalf("Failed to build home feed: %v", err)
		}
		if len(homeFeed.FavouriteAudios) != feed.FavouritesLimit {
			t.Errorf("Expected %d favourites, got %d", feed.FavouritesLimit, len(homeFeed.FavouriteAudios))
		}
	})
}

func albumOf(t *testing.T, db *database.Database, mediaType models.MediaType, trackID int64) int64 {
	t.Helper()
	track, err := db.GetTrackByID(mediaType, trackID)
	if err != nil {
		t.Fatalf("Failed to resolve album of track %d: %v", trackID, err)
	}
	return track.AlbumID
}

func mustAddFavourite(t *testing.T, db *database.Database, username string, kind models.FavouriteKind, entityID int64) {
	t.Helper()
	if _, err := db.AddFavourite(username, kind, entityID); err != nil {
		t.Fatalf("Failed to add favourite: %v", err)
	}
}

func indexOf(ids []int64, want int64) int {
	for i, id := range ids {
		if id == want {
			return i
		}
	}
	return -1
}
