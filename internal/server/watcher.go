package server

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// startFileWatcher initializes fsnotify watcher for recursive library dir monitoring.
func (ms *MediaServer) startFileWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	ms.watcher = watcher

	// Start monitoring in a goroutine
	go ms.watchFiles()

	for _, root := range []string{ms.config.Library.AudioPath, ms.config.Library.VideoPath} {
		if root == "" {
			continue
		}
		if err := ms.addDirectoryToWatcher(root); err != nil {
			return err
		}
		ms.logger.WithField("path", root).Info("File watcher started")
	}

	return nil
}

// addDirectoryToWatcher recursively walks and adds subdirectories to watcher.
func (ms *MediaServer) addDirectoryToWatcher(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return ms.watcher.Add(path)
		}
		return nil
	})
}

// watchFiles selects on watcher channels and dispatches events.
func (ms *MediaServer) watchFiles() {
	defer ms.watcher.Close()

	for {
		select {
		case event, ok := <-ms.watcher.Events:
			if !ok {
				return
			}
			ms.handleFileEvent(event)

		case err, ok := <-ms.watcher.Errors:
			if !ok {
				return
			}
			ms.logger.WithError(err).Error("File watcher error")
		}
	}
}

// handleFileEvent applies filtering & delegates creation/removal actions.
func (ms *MediaServer) handleFileEvent(event fsnotify.Event) {
	// Ignore temporary files and hidden files
	fileName := filepath.Base(event.Name)
	if strings.HasPrefix(fileName, ".") || strings.HasSuffix(fileName, ".tmp") {
		return
	}

	isMediaFile := ms.extractor.IsAudioFile(event.Name) || ms.extractor.IsVideoFile(event.Name)

	switch {
	case event.Has(fsnotify.Create) && isMediaFile:
		// Dispatch new file processing asynchronously
		go func(name string) {
			time.Sleep(500 * time.Millisecond) // Ensure file is fully written
			ms.handleNewFile(name)
		}(event.Name)

	case event.Has(fsnotify.Remove) && isMediaFile:
		// Dispatch removal processing asynchronously
		go ms.handleRemovedFile(event.Name)

	case event.Has(fsnotify.Create):
		// Check if it's a new directory
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			ms.watcher.Add(event.Name)
			ms.logger.WithField("directory", event.Name).Info("Watching new directory")
		}
	}
}

// handleNewFile imports a newly written media file into the catalog.
func (ms *MediaServer) handleNewFile(filePath string) {
	ms.logger.WithField("file_path", filePath).Info("New media file detected")

	var err error
	if ms.extractor.IsVideoFile(filePath) {
		err = ms.importer.ImportVideoFile(filePath, ms.config.Library.VideoPath)
	} else {
		err = ms.importer.ImportAudioFile(filePath)
	}
	if err != nil {
		ms.logger.WithError(err).WithField("file_path", filePath).Error("Error importing new media file")
	}
}

// handleRemovedFile removes track rows referencing deleted media files.
func (ms *MediaServer) handleRemovedFile(filePath string) {
	ms.logger.WithField("file_path", filePath).Info("Media file removed")

	if err := ms.importer.Remove(filePath); err != nil {
		ms.logger.WithError(err).WithField("file_path", filePath).Error("Error removing track from database")
		return
	}

	ms.logger.WithField("file_path", filePath).Info("Removed track from database")
}

// stopFileWatcher closes the watcher (idempotent).
func (ms *MediaServer) stopFileWatcher() {
	if ms.watcher != nil {
		ms.watcher.Close()
	}
}
