package tests

import (
	"path/filepath"
	"sync"
	"testing"

	"crescendo/internal/database"
	"crescendo/pkg/models"
)

func newTestDatabase(t *testing.T) *database.Database {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.NewDatabase(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedTrack creates the artist/album/track chain and returns the track id.
func seedTrack(t *testing.T, db *database.Database, mediaType models.MediaType, artist, album, title, path string, duration int) int64 {
	t.Helper()

	artistID, err := db.UpsertArtist(artist)
	if err != nil {
		t.Fatalf("Failed to upsert artist: %v", err)
	}
	albumID, err := db.UpsertAlbum(artistID, album, mediaType, "")
	if err != nil {
		t.Fatalf("Failed to upsert album: %v", err)
	}

	track := models.Track{
		AlbumID:  albumID,
		Title:    title,
		FilePath: path,
		FileSize: 1024,
	}
	if duration > 0 {
		track.Duration = &duration
	}

	id, err := db.InsertTrack(mediaType, track)
	if err != nil {
		t.Fatalf("Failed to insert track: %v", err)
	}
	return id
}

func TestCatalog(t *testing.T) {
	db := newTestDatabase(t)

	t.Run("InsertAndGetTrack", func(t *testing.T) {
		id := seedTrack(t, db, models.MediaAudio, "Test Artist", "Test Album", "Test Song", "/music/song.mp3", 180)

		track, err := db.GetTrackByID(models.MediaAudio, id)
		if err != nil {
			t.Fatalf("Failed to get track by ID: %v", err)
		}

		if track.Title != "Test Song" {
			t.Errorf("Expected title Test Song, got %s", track.Title)
		}
		if track.Duration == nil || *track.Duration != 180 {
			t.Errorf("Expected duration 180, got %v", track.Duration)
		}
	})

	t.Run("UpsertArtistIsIdempotent", func(t *testing.T) {
		first, err := db.UpsertArtist("Same Artist")
		if err != nil {
			t.Fatalf("Failed to upsert artist: %v", err)
		}
		second, err := db.UpsertArtist("Same Artist")
		if err != nil {
			t.Fatalf("Failed to upsert artist again: %v", err)
		}
		if first != second {
			t.Errorf("Expected same artist id, got %d and %d", first, second)
		}
	})

	t.Run("UpsertArtistSurvivesConcurrentImports", func(t *testing.T) {
		// Import workers race to create the same artist and album; every
		// call must succeed and agree on one id.
		const workers = 8

		artistIDs := make([]int64, workers)
		albumIDs := make([]int64, workers)
		errs := make([]error, workers)

		var wg sync.WaitGroup
		wg.Add(workers)
		for i := 0; i < workers; i++ {
			go func(i int) {
				defer wg.Done()
				artistID, err := db.UpsertArtist("Shared Artist")
				if err != nil {
					errs[i] = err
					return
				}
				albumID, err := db.UpsertAlbum(artistID, "Shared Album", models.MediaAudio, "")
				if err != nil {
					errs[i] = err
					return
				}
				artistIDs[i] = artistID
				albumIDs[i] = albumID
			}(i)
		}
		wg.Wait()

		for i := 0; i < workers; i++ {
			if errs[i] != nil {
				t.Fatalf("Worker %d failed: %v", i, errs[i])
			}
			if artistIDs[i] != artistIDs[0] {
				t.Errorf("Worker %d got artist id %d, expected %d", i, artistIDs[i], artistIDs[0])
			}
			if albumIDs[i] != albumIDs[0] {
				t.Errorf("Worker %d got album id %d, expected %d", i, albumIDs[i], albumIDs[0])
			}
		}
	})

	t.Run("InsertTrackUpdatesByPath", func(t *testing.T) {
		first := seedTrack(t, db, models.MediaAudio, "Updater", "Originals", "Original Title", "/music/update.mp3", 60)
		second := seedTrack(t, db, models.MediaAudio, "Updater", "Originals", "Updated Title", "/music/update.mp3", 61)

		if first != second {
			t.Errorf("Expected update to reuse id %d, got %d", first, second)
		}

		track, err := db.GetTrackByID(models.MediaAudio, first)
		if err != nil {
			t.Fatalf("Failed to get updated track: %v", err)
		}
		if track.Title != "Updated Title" {
			t.Errorf("Expected updated title, got %s", track.Title)
		}
	})

	t.Run("AudioAndVideoTablesAreSeparate", func(t *testing.T) {
		audioID := seedTrack(t, db, models.MediaAudio, "Split", "Audio Album", "Audio One", "/music/split.mp3", 10)
		videoID := seedTrack(t, db, models.MediaVideo, "Split", "Video Album", "Video One", "/videos/split.mp4", 10)

		if _, err := db.GetTrackByID(models.MediaAudio, audioID); err != nil {
			t.Errorf("Audio track not found in audio table: %v", err)
		}
		if _, err := db.GetTrackByID(models.MediaVideo, videoID); err != nil {
			t.Errorf("Video track not found in video table: %v", err)
		}
	})

	t.Run("RemoveTrackByPath", func(t *testing.T) {
		id := seedTrack(t, db, models.MediaAudio, "Remover", "Gone", "Going", "/music/gone.mp3", 10)

		if err := db.RemoveTrackByPath(models.MediaAudio, "/music/gone.mp3"); err != nil {
			t.Fatalf("Failed to remove track: %v", err)
		}
		if _, err := db.GetTrackByID(models.MediaAudio, id); err == nil {
			t.Error("Expected removed track to be gone")
		}
	})
}

func TestPlayHistory(t *testing.T) {
	db := newTestDatabase(t)

	id := seedTrack(t, db, models.MediaAudio, "Player", "Plays", "Played", "/music/played.mp3", 100)

	for i := 0; i < 3; i++ {
		if err := db.RecordPlay(models.MediaAudio, id, "listener"); err != nil {
			t.Fatalf("Failed to record play: %v", err)
		}
	}
	// Anonymous play still counts
	if err := db.RecordPlay(models.MediaAudio, id, ""); err != nil {
		t.Fatalf("Failed to record anonymous play: %v", err)
	}

	counts, err := db.CountPlays(models.MediaAudio)
	if err != nil {
		t.Fatalf("Failed to count plays: %v", err)
	}
	if counts[id] != 4 {
		t.Errorf("Expected 4 plays, got %d", counts[id])
	}

	t.Run("OrphanedPlaysAreTolerated", func(t *testing.T) {
		// Plays for a track id that never existed must not break counting
		if err := db.RecordPlay(models.MediaAudio, 999999, ""); err != nil {
			t.Fatalf("Failed to record orphaned play: %v", err)
		}

		counts, err := db.CountPlays(models.MediaAudio)
		if err != nil {
			t.Fatalf("Failed to count plays with orphan present: %v", err)
		}
		if counts[id] != 4 {
			t.Errorf("Expected existing track to keep 4 plays, got %d", counts[id])
		}
	})

	t.Run("CountPlaysForEmptySet", func(t *testing.T) {
		counts, err := db.CountPlaysFor(models.MediaAudio, nil)
		if err != nil {
			t.Fatalf("Failed to count plays for empty set: %v", err)
		}
		if len(counts) != 0 {
			t.Errorf("Expected empty count map, got %d entries", len(counts))
		}
	})
}

func TestFavourites(t *testing.T) {
	db := newTestDatabase(t)

	t.Run("AddIsIdempotent", func(t *testing.T) {
		created, err := db.AddFavourite("alice", models.FavouriteTrack, 1)
		if err != nil {
			t.Fatalf("Failed to add favourite: %v", err)
		}
		if !created {
			t.Error("Expected first add to create the favourite")
		}

		created, err = db.AddFavourite("alice", models.FavouriteTrack, 1)
		if err != nil {
			t.Fatalf("Failed to re-add favourite: %v", err)
		}
		if created {
			t.Error("Expected second add to report existing favourite")
		}
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		for _, entityID := range []int64{10, 20, 30} {
			if _, err := db.AddFavourite("bob", models.FavouriteAlbum, entityID); err != nil {
				t.Fatalf("Failed to add favourite %d: %v", entityID, err)
			}
		}

		favourites, err := db.ListFavourites("bob", models.FavouriteAlbum, 10)
		if err != nil {
			t.Fatalf("Failed to list favourites: %v", err)
		}
		if len(favourites) != 3 {
			t.Fatalf("Expected 3 favourites, got %d", len(favourites))
		}
		// Same-second timestamps fall back to id ordering, newest insert first
		if favourites[0].EntityID != 30 || favourites[2].EntityID != 10 {
			t.Errorf("Expected newest-first ordering, got %d..%d", favourites[0].EntityID, favourites[2].EntityID)
		}
	})

	t.Run("ListHonoursLimit", func(t *testing.T) {
		favourites, err := db.ListFavourites("bob", models.FavouriteAlbum, 2)
		if err != nil {
			t.Fatalf("Failed to list favourites: %v", err)
		}
		if len(favourites) != 2 {
			t.Errorf("Expected 2 favourites, got %d", len(favourites))
		}
	})

	t.Run("KindsAreSeparate", func(t *testing.T) {
		favourites, err := db.ListFavourites("bob", models.FavouriteVideo, 10)
		if err != nil {
			t.Fatalf("Failed to list favourites: %v", err)
		}
		if len(favourites) != 0 {
			t.Errorf("Expected no video favourites for bob, got %d", len(favourites))
		}
	})

	t.Run("RemoveIsIdempotent", func(t *testing.T) {
		if err := db.RemoveFavourite("alice", models.FavouriteTrack, 1); err != nil {
			t.Fatalf("Failed to remove favourite: %v", err)
		}
		// Removing again must not error
		if err := db.RemoveFavourite("alice", models.FavouriteTrack, 1); err != nil {
			t.Fatalf("Failed to re-remove favourite: %v", err)
		}

		favourites, err := db.ListFavourites("alice", models.FavouriteTrack, 10)
		if err != nil {
			t.Fatalf("Failed to list favourites: %v", err)
		}
		if len(favourites) != 0 {
			t.Errorf("Expected no favourites after removal, got %d", len(favourites))
		}
	})
}
