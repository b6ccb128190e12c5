package server

import (
	"fmt"
	"net/http"
	"time"

	"crescendo/internal/feed"
	"crescendo/internal/metrics"
)

// handleHomeFeed serves the assembled home feed: ranked top tracks for both
// media types plus the caller's favourites. Anonymous responses are cached
// per limit; authenticated responses carry per-user favourites and are
// always computed fresh.
func (ms *MediaServer) handleHomeFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ms.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	limit := feed.ParseLimit(r.URL.Query().Get("limit"))

	username, _ := ms.authService.Identify(r)
	rc := feed.RequestContext{Username: username}

	cacheKey := fmt.Sprintf("home:%d", feed.ClampLimit(limit))
	if rc.Anonymous() && ms.feedCache != nil {
		if cached, ok := ms.feedCache.GetFeed(cacheKey); ok {
			metrics.HomeFeedRequestsTotal.WithLabelValues("ok").Inc()
			ms.respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	start := time.Now()
	homeFeed, err := ms.feedService.BuildHomeFeed(limit, rc)
	metrics.HomeFeedDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.HomeFeedRequestsTotal.WithLabelValues("error").Inc()
		ms.respondWithError(w, r, http.StatusInternalServerError, "Failed to build home feed", err)
		return
	}

	if rc.Anonymous() && ms.feedCache != nil {
		ms.feedCache.SetFeed(cacheKey, homeFeed)
	}

	metrics.HomeFeedRequestsTotal.WithLabelValues("ok").Inc()
	ms.respondJSON(w, http.StatusOK, homeFeed)
}
