// Package metrics exposes Prometheus instrumentation for the home feed and
// play recording paths.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HomeFeedRequestsTotal counts home feed requests by outcome.
	HomeFeedRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crescendo_home_feed_requests_total",
			Help: "Total number of home feed requests",
		},
		[]string{"status"},
	)

	// HomeFeedDuration tracks how long assembling the home feed takes.
	HomeFeedDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crescendo_home_feed_duration_seconds",
			Help:    "Duration of home feed assembly in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	// FeedFallbacksTotal counts how often a media type's ranked feed came
	// up empty and the latest-tracks fallback was served instead.
	FeedFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crescendo_feed_fallbacks_total",
			Help: "Total number of latest-tracks fallbacks per media type",
		},
		[]string{"media_type"},
	)

	// PlayEventsTotal counts recorded play events by media type.
	PlayEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crescendo_play_events_total",
			Help: "Total number of recorded play events",
		},
		[]string{"media_type"},
	)

	// FavouriteTogglesTotal counts favourite add/remove operations.
	FavouriteTogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crescendo_favourite_toggles_total",
			Help: "Total number of favourite toggle operations",
		},
		[]string{"action"},
	)
)

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
