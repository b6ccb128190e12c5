package server

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"crescendo/pkg/models"
)

const (
	// Buffer size for streaming (64KB)
	streamBufferSize = 64 * 1024
)

// handleStreamAudio streams an audio track by ID with Range support.
func (ms *MediaServer) handleStreamAudio(w http.ResponseWriter, r *http.Request) {
	ms.streamTrack(w, r, models.MediaAudio)
}

// handleStreamVideo streams a video track by ID with Range support.
func (ms *MediaServer) handleStreamVideo(w http.ResponseWriter, r *http.Request) {
	ms.streamTrack(w, r, models.MediaVideo)
}

// streamTrack resolves the track in the table for its media type and serves
// the backing file.
func (ms *MediaServer) streamTrack(w http.ResponseWriter, r *http.Request, mediaType models.MediaType) {
	// Path shape: /stream/{type}/{id}
	pathParts := strings.Split(r.URL.Path, "/")
	if len(pathParts) < 4 || pathParts[3] == "" {
		http.Error(w, "Invalid track ID", http.StatusBadRequest)
		return
	}

	trackID, err := strconv.ParseInt(pathParts[3], 10, 64)
	if err != nil || trackID <= 0 {
		http.Error(w, "Invalid track ID", http.StatusBadRequest)
		return
	}

	track, err := ms.db.GetTrackByID(mediaType, trackID)
	if err != nil {
		http.Error(w, "Track not found", http.StatusNotFound)
		return
	}

	if err := ms.serveMediaFile(w, r, track.FilePath); err != nil {
		ms.logger.WithError(err).WithField("file_path", track.FilePath).Error("Error streaming media file")
		http.Error(w, "Error streaming media file", http.StatusInternalServerError)
	}
}

// serveMediaFile streams a file with buffering, caching headers and
// single-range support for seeking.
func (ms *MediaServer) serveMediaFile(w http.ResponseWriter, r *http.Request, filePath string) error {
	stat, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("error reading file info: %v", err)
	}

	fileSize := stat.Size()
	modTime := stat.ModTime().Unix()

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("error opening file: %v", err)
	}
	defer file.Close()

	// Set caching headers
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("ETag", fmt.Sprintf(`"%d-%d"`, modTime, fileSize))

	if ms.checkNotModified(w, r, modTime, fileSize) {
		return nil
	}

	w.Header().Set("Content-Type", ms.extractor.GetContentType(filePath))
	w.Header().Set("Accept-Ranges", "bytes")

	rangeHeader := r.Header.Get("Range")
	if rangeHeader != "" {
		ms.handleRangeRequest(w, file, fileSize, rangeHeader)
		return nil
	}

	w.Header().Set("Content-Length", strconv.FormatInt(fileSize, 10))

	bufferedReader := bufio.NewReaderSize(file, streamBufferSize)
	buffer := make([]byte, streamBufferSize)

	_, err = io.CopyBuffer(w, bufferedReader, buffer)
	if err != nil {
		return fmt.Errorf("error streaming file: %v", err)
	}

	return nil
}

// checkNotModified checks if the client has a cached version
func (ms *MediaServer) checkNotModified(w http.ResponseWriter, r *http.Request, modTime, fileSize int64) bool {
	etag := fmt.Sprintf(`"%d-%d"`, modTime, fileSize)
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}

// handleRangeRequest implements simple single-range byte serving for seeking.
func (ms *MediaServer) handleRangeRequest(w http.ResponseWriter, file *os.File, fileSize int64, rangeHeader string) {
	// Parse range header (e.g., "bytes=0-1023")
	ranges := strings.TrimPrefix(rangeHeader, "bytes=")
	rangeParts := strings.Split(ranges, "-")

	start, err := strconv.ParseInt(rangeParts[0], 10, 64)
	if err != nil {
		start = 0
	}

	var end int64
	if len(rangeParts) > 1 && rangeParts[1] != "" {
		end, err = strconv.ParseInt(rangeParts[1], 10, 64)
		if err != nil {
			end = fileSize - 1
		}
	} else {
		end = fileSize - 1
	}

	// Validate range
	if start < 0 || end >= fileSize || start > end {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", fileSize))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return
	}

	// Set partial content headers
	contentLength := end - start + 1
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, fileSize))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", contentLength))
	w.WriteHeader(http.StatusPartialContent)

	// Seek to start position and copy the requested range
	file.Seek(start, io.SeekStart)
	io.CopyN(w, file, contentLength)
}
