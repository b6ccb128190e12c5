package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Library  LibraryConfig  `toml:"library"`
	Feed     FeedConfig     `toml:"feed"`
	Auth     AuthConfig     `toml:"auth"`
	Logging  LoggingConfig  `toml:"logging"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Ngrok    NgrokConfig    `toml:"ngrok"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port        string `toml:"port"`
	Host        string `toml:"host"`
	EnableCORS  bool   `toml:"enable_cors"`
	ReadTimeout int    `toml:"read_timeout_seconds"`
}

// DatabaseConfig contains database-related configuration
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// LibraryConfig contains media catalog import configuration
type LibraryConfig struct {
	AudioPath       string   `toml:"audio_path"`
	VideoPath       string   `toml:"video_path"`
	AudioFormats    []string `toml:"audio_formats"`
	VideoFormats    []string `toml:"video_formats"`
	WatchForChanges bool     `toml:"watch_for_changes"`
	ScanOnStartup   bool     `toml:"scan_on_startup"`
}

// FeedConfig contains home feed configuration
type FeedConfig struct {
	CacheEnabled    bool `toml:"cache_enabled"`
	CacheTTLSeconds int  `toml:"cache_ttl_seconds"`
}

// AuthConfig contains authentication configuration
type AuthConfig struct {
	Enabled           bool   `toml:"enabled"`
	UsersFilePath     string `toml:"users_file_path"`
	SessionDuration   string `toml:"session_duration"`
	SecureCookies     bool   `toml:"secure_cookies"`
	AllowRegistration bool   `toml:"allow_registration"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level          string `toml:"level"`
	Format         string `toml:"format"`
	RequestLogging bool   `toml:"request_logging"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// NgrokConfig contains ngrok tunnel configuration
type NgrokConfig struct {
	Enabled      bool   `toml:"enabled"`
	AuthToken    string `toml:"auth_token"`
	Domain       string `toml:"domain"`
	EnableAuth   bool   `toml:"enable_auth"`
	AuthProvider string `toml:"auth_provider"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			Host:        "0.0.0.0",
			EnableCORS:  true,
			ReadTimeout: 30,
		},
		Database: DatabaseConfig{
			Path: "./crescendo.db",
		},
		Library: LibraryConfig{
			AudioPath:       "./music",
			VideoPath:       "./videos",
			AudioFormats:    []string{".flac", ".mp3", ".wav", ".m4a"},
			VideoFormats:    []string{".mp4", ".mkv", ".webm", ".mov"},
			WatchForChanges: true,
			ScanOnStartup:   true,
		},
		Feed: FeedConfig{
			CacheEnabled:    true,
			CacheTTLSeconds: 30,
		},
		Auth: AuthConfig{
			Enabled:           false,
			UsersFilePath:     "./users.toml",
			SessionDuration:   "24h",
			SecureCookies:     false,
			AllowRegistration: false,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			RequestLogging: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Ngrok: NgrokConfig{
			Enabled:      false,
			AuthToken:    "",
			Domain:       "",
			EnableAuth:   false,
			AuthProvider: "google",
		},
	}
}

// LoadConfig loads configuration from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Config file doesn't exist, create it with defaults
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
		fmt.Printf("Created default configuration file at: %s\n", configPath)
		return cfg, nil
	}

	// Load from file
	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create or open file
	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// Write header comment
	header := `# Crescendo Media Server Configuration
# This file contains all configuration options for the Crescendo media server.
# Edit the values below to customize your server settings.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	// Encode configuration to TOML
	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	// Validate database config
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	// Validate library config
	if c.Library.AudioPath == "" {
		return fmt.Errorf("audio library path cannot be empty")
	}
	if c.Library.VideoPath == "" {
		return fmt.Errorf("video library path cannot be empty")
	}
	if len(c.Library.AudioFormats) == 0 {
		return fmt.Errorf("at least one supported audio format must be specified")
	}
	if len(c.Library.VideoFormats) == 0 {
		return fmt.Errorf("at least one supported video format must be specified")
	}

	// Validate feed config
	if c.Feed.CacheTTLSeconds < 0 {
		return fmt.Errorf("feed cache TTL must be positive")
	}

	// Validate logging config
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	return nil
}

// GetAddress returns the full server address
func (c *Config) GetAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// IsAudioFormatSupported checks if an audio file extension is supported
func (c *Config) IsAudioFormatSupported(ext string) bool {
	for _, supported := range c.Library.AudioFormats {
		if supported == ext {
			return true
		}
	}
	return false
}

// IsVideoFormatSupported checks if a video file extension is supported
func (c *Config) IsVideoFormatSupported(ext string) bool {
	for _, supported := range c.Library.VideoFormats {
		if supported == ext {
			return true
		}
	}
	return false
}
