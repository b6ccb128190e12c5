package server

import (
	"net/http"
	"strings"
)

// handleCoverArt serves extracted cover art images
func (ms *MediaServer) handleCoverArt(w http.ResponseWriter, r *http.Request) {
	// Extract cover art ID from URL path
	pathParts := strings.Split(r.URL.Path, "/")
	if len(pathParts) < 3 || pathParts[2] == "" {
		http.Error(w, "Invalid cover art ID", http.StatusBadRequest)
		return
	}

	artID := pathParts[2]

	artData, exists := ms.extractor.GetArt(artID)
	if !exists {
		http.Error(w, "Cover art not found", http.StatusNotFound)
		return
	}

	contentType := ms.extractor.GetArtMimeType(artData)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour

	w.Write(artData)
}
