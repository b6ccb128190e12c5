package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"crescendo/internal/auth"
	"crescendo/internal/cache"
	"crescendo/internal/config"
	"crescendo/internal/database"
	"crescendo/internal/feed"
	"crescendo/internal/library"
	"crescendo/internal/metrics"
	"crescendo/internal/ngrok"
	"crescendo/pkg/models"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// MediaServer represents the main media streaming server
type MediaServer struct {
	config       *config.Config
	db           *database.Database
	logger       *logrus.Logger
	feedService  *feed.Service
	authService  *auth.Service
	extractor    *library.Extractor
	importer     *library.Importer
	feedCache    *cache.FeedCache
	ngrokService *ngrok.Service
	watcher      *fsnotify.Watcher
	httpServer   *http.Server
}

// NewMediaServer creates a new media server instance
func NewMediaServer(cfg *config.Config, db *database.Database, logger *logrus.Logger) (*MediaServer, error) {
	authService, err := auth.NewService(&cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth service: %w", err)
	}

	ngrokService, err := ngrok.NewService(&cfg.Ngrok, logger)
	if err != nil {
		logger.WithError(err).Warn("Ngrok service not available")
		ngrokService = nil
	}

	extractor := library.NewExtractor(cfg.Library.AudioFormats, cfg.Library.VideoFormats, logger)

	var feedCache *cache.FeedCache
	if cfg.Feed.CacheEnabled {
		feedCache = cache.NewFeedCache(time.Duration(cfg.Feed.CacheTTLSeconds) * time.Second)
	}

	server := &MediaServer{
		config:       cfg,
		db:           db,
		logger:       logger,
		feedService:  feed.NewService(db, logger),
		authService:  authService,
		extractor:    extractor,
		importer:     library.NewImporter(db, extractor, logger),
		feedCache:    feedCache,
		ngrokService: ngrokService,
	}

	return server, nil
}

// ScanLibrary imports both library roots into the catalog.
func (ms *MediaServer) ScanLibrary() error {
	if !ms.config.Library.ScanOnStartup {
		ms.logger.Info("Skipping library scan (disabled in config)")
		return nil
	}

	ms.logger.WithFields(logrus.Fields{
		"audio_path": ms.config.Library.AudioPath,
		"video_path": ms.config.Library.VideoPath,
	}).Info("Scanning media library")

	return ms.importer.ScanLibrary(ms.config.Library.AudioPath, ms.config.Library.VideoPath)
}

// Start starts the media server and blocks until the listener stops.
func (ms *MediaServer) Start() error {
	if ms.config.Library.WatchForChanges {
		if err := ms.startFileWatcher(); err != nil {
			ms.logger.WithError(err).Warn("Could not start file watcher")
		}
	}

	handler := ms.buildHandler()

	audioCount, _ := ms.db.CountTracks(models.MediaAudio)
	videoCount, _ := ms.db.CountTracks(models.MediaVideo)

	localAddress := fmt.Sprintf("http://%s", ms.config.GetAddress())

	ms.logger.WithFields(logrus.Fields{
		"address":      localAddress,
		"audio_tracks": audioCount,
		"video_tracks": videoCount,
	}).Info("Crescendo server starting")

	if ms.ngrokService != nil {
		if err := ms.ngrokService.StartTunnel(context.Background(), localAddress); err != nil {
			ms.logger.WithError(err).Warn("Could not start ngrok tunnel")
		}
	}

	ms.httpServer = &http.Server{
		Addr:        ms.config.GetAddress(),
		Handler:     handler,
		ReadTimeout: time.Duration(ms.config.Server.ReadTimeout) * time.Second,
	}

	err := ms.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// buildHandler wires routes and the middleware chain.
func (ms *MediaServer) buildHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/home", ms.handleHomeFeed)
	mux.HandleFunc("/api/favourites", ms.handleFavourites)
	mux.HandleFunc("/api/plays", ms.handleRecordPlay)

	mux.HandleFunc("/stream/audio/", ms.handleStreamAudio)
	mux.HandleFunc("/stream/video/", ms.handleStreamVideo)
	mux.HandleFunc("/covers/", ms.handleCoverArt)

	mux.HandleFunc("/api/auth/login", ms.handleAuthLogin)
	mux.HandleFunc("/api/auth/logout", ms.handleAuthLogout)
	mux.HandleFunc("/api/auth/status", ms.handleAuthStatus)
	mux.HandleFunc("/api/auth/register", ms.handleAuthRegister)

	mux.HandleFunc("/health", ms.handleHealthCheck)
	if ms.config.Metrics.Enabled {
		mux.Handle("/metrics", metrics.Handler())
	}

	return ms.panicRecoveryMiddleware(ms.requestLoggingMiddleware(ms.corsMiddleware(mux)))
}

// Shutdown gracefully shuts down the media server
func (ms *MediaServer) Shutdown(ctx context.Context) error {
	ms.logger.Info("Shutting down media server")

	ms.stopFileWatcher()

	if ms.ngrokService != nil {
		if err := ms.ngrokService.Stop(); err != nil {
			ms.logger.WithError(err).Warn("Error stopping ngrok tunnel")
		}
	}

	if ms.httpServer != nil {
		if err := ms.httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}

	ms.logger.Info("Media server shutdown complete")
	return nil
}
