package server

import (
	"net/http"

	"crescendo/internal/metrics"
	"crescendo/pkg/models"
)

// playRequest is the body for play event recording.
type playRequest struct {
	MediaType models.MediaType `json:"mediaType"`
	TrackID   int64            `json:"trackId"`
}

// handleRecordPlay appends a play event to the play log. Anonymous plays are
// recorded without an identity and still count towards the ranked feed.
func (ms *MediaServer) handleRecordPlay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ms.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	var req playRequest
	if err := decodeJSON(r, &req); err != nil {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if !req.MediaType.Valid() || req.TrackID <= 0 {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid media type or track id", nil)
		return
	}

	username, _ := ms.authService.Identify(r)

	if err := ms.db.RecordPlay(req.MediaType, req.TrackID, username); err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Failed to record play", err)
		return
	}

	metrics.PlayEventsTotal.WithLabelValues(string(req.MediaType)).Inc()
	ms.respondJSON(w, http.StatusOK, map[string]interface{}{"recorded": true})
}
