package server

import (
	"encoding/json"
	"net/http"
	"time"

	"crescendo/pkg/models"
)

// HealthStatus represents operational status for the /health endpoint.
type HealthStatus struct {
	Status         string                 `json:"status"`
	Timestamp      time.Time              `json:"timestamp"`
	Database       string                 `json:"database"`
	AudioTracks    int                    `json:"audioTracks"`
	VideoTracks    int                    `json:"videoTracks"`
	ActiveSessions int                    `json:"activeSessions"`
	Details        map[string]interface{} `json:"details,omitempty"`
}

// handleHealthCheck returns basic liveness + dependency checks.
func (ms *MediaServer) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := &HealthStatus{
		Status:         "healthy",
		Timestamp:      time.Now(),
		Database:       "ok",
		ActiveSessions: ms.authService.ActiveSessions(),
		Details:        make(map[string]interface{}),
	}

	// Check database connectivity
	if err := ms.db.Ping(); err != nil {
		health.Status = "unhealthy"
		health.Database = "error"
		health.Details["database_error"] = err.Error()
	} else {
		if count, err := ms.db.CountTracks(models.MediaAudio); err == nil {
			health.AudioTracks = count
		}
		if count, err := ms.db.CountTracks(models.MediaVideo); err == nil {
			health.VideoTracks = count
		}
	}

	if health.Status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(health)
}
