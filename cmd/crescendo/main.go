package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crescendo/internal/config"
	"crescendo/internal/database"
	"crescendo/internal/server"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := "./config.toml"

	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}

	configureLogger(logger, &cfg.Logging)

	// Check that at least one library root exists
	if !dirExists(cfg.Library.AudioPath) && !dirExists(cfg.Library.VideoPath) {
		logger.WithFields(logrus.Fields{
			"audio_path": cfg.Library.AudioPath,
			"video_path": cfg.Library.VideoPath,
		}).Fatal("No library directory exists. Please create one and add your media files.")
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing database")
	}
	defer db.Close()

	// Create and configure the media server
	mediaServer, err := server.NewMediaServer(cfg, db, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error creating media server")
	}

	// Import the media library
	if err := mediaServer.ScanLibrary(); err != nil {
		logger.WithError(err).Fatal("Error scanning media library")
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Start the server in a goroutine
	go func() {
		if err := mediaServer.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for shutdown signal
	<-c

	logger.Info("Received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := mediaServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown did not complete cleanly")
	}
}

// configureLogger applies the logging section of the configuration.
func configureLogger(logger *logrus.Logger, cfg *config.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.WithField("level", cfg.Level).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
}

func dirExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
