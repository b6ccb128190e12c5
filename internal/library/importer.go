package library

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"crescendo/internal/database"
	"crescendo/pkg/models"

	"github.com/sirupsen/logrus"
)

// Importer folds extracted file metadata into the catalog: artist and album
// rows are created on demand and tracks are upserted by file path.
type Importer struct {
	db        *database.Database
	extractor *Extractor
	logger    *logrus.Logger
}

// NewImporter creates a new library importer
func NewImporter(db *database.Database, extractor *Extractor, logger *logrus.Logger) *Importer {
	return &Importer{
		db:        db,
		extractor: extractor,
		logger:    logger,
	}
}

// ScanLibrary walks both library roots and imports every supported media
// file using a worker pool sized to the machine.
func (im *Importer) ScanLibrary(audioRoot, videoRoot string) error {
	type job struct {
		path      string
		mediaType models.MediaType
		root      string
	}

	var wg sync.WaitGroup
	var imported int64
	jobs := make(chan job, 100)

	numWorkers := runtime.NumCPU()
	for i := 0; i < numWorkers; i++ {
		go func() {
			for j := range jobs {
				var err error
				if j.mediaType == models.MediaVideo {
					err = im.ImportVideoFile(j.path, j.root)
				} else {
					err = im.ImportAudioFile(j.path)
				}
				if err != nil {
					im.logger.WithError(err).WithField("path", j.path).Error("Failed to import media file")
				} else {
					atomic.AddInt64(&imported, 1)
				}
				wg.Done()
			}
		}()
	}

	walk := func(root string, mediaType models.MediaType, match func(string) bool) error {
		if root == "" {
			return nil
		}
		return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			if match(path) {
				wg.Add(1)
				jobs <- job{path: path, mediaType: mediaType, root: root}
			}
			return nil
		})
	}

	audioErr := walk(audioRoot, models.MediaAudio, im.extractor.IsAudioFile)
	videoErr := walk(videoRoot, models.MediaVideo, im.extractor.IsVideoFile)

	close(jobs)
	wg.Wait()

	im.logger.WithField("count", imported).Info("Library scan complete")

	if audioErr != nil {
		return audioErr
	}
	return videoErr
}

// ImportAudioFile extracts one audio file and writes it to the catalog.
func (im *Importer) ImportAudioFile(path string) error {
	meta, err := im.extractor.ExtractAudio(path)
	if err != nil {
		return err
	}
	return im.store(models.MediaAudio, meta)
}

// ImportVideoFile imports one video file, deriving its catalog placement
// from the directory layout under root.
func (im *Importer) ImportVideoFile(path, root string) error {
	meta, err := im.extractor.ExtractVideo(path, root)
	if err != nil {
		return err
	}
	return im.store(models.MediaVideo, meta)
}

// Remove drops a track by path from whichever table its extension maps to.
func (im *Importer) Remove(path string) error {
	if im.extractor.IsVideoFile(path) {
		return im.db.RemoveTrackByPath(models.MediaVideo, path)
	}
	return im.db.RemoveTrackByPath(models.MediaAudio, path)
}

func (im *Importer) store(mediaType models.MediaType, meta FileMetadata) error {
	artistID, err := im.db.UpsertArtist(meta.Artist)
	if err != nil {
		return err
	}

	albumID, err := im.db.UpsertAlbum(artistID, meta.Album, mediaType, meta.ArtID)
	if err != nil {
		return err
	}

	track := models.Track{
		AlbumID:     albumID,
		Title:       meta.Title,
		TrackNumber: meta.TrackNumber,
		ThumbID:     meta.ArtID,
		FilePath:    meta.FilePath,
		FileSize:    meta.FileSize,
	}
	if meta.Duration > 0 {
		d := meta.Duration
		track.Duration = &d
	}

	id, err := im.db.InsertTrack(mediaType, track)
	if err != nil {
		return err
	}

	im.logger.WithFields(logrus.Fields{
		"track_id": id,
		"type":     mediaType,
		"title":    meta.Title,
		"artist":   meta.Artist,
	}).Debug("Imported media file")
	return nil
}
