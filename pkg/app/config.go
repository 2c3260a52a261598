// Package app wires storage, detection, play and the web API into the
// posegame server.
package app

import (
	"path/filepath"
	"time"

	"github.com/teslashibe/go-posegame/internal/config"
	"github.com/teslashibe/go-posegame/pkg/detection"
	"github.com/teslashibe/go-posegame/pkg/pose"
	"github.com/teslashibe/go-posegame/pkg/recorder"
	"github.com/teslashibe/go-posegame/pkg/session"
)

// Storage backends.
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

// Detector modes.
const (
	DetectorExternal = "external" // landmarks pushed by ingest clients
	DetectorYOLO     = "yolo"     // local YOLOv8-pose model fed with frames
	DetectorHTTP     = "http"     // remote detection service fed with frames
)

// Matcher presets.
const (
	MatcherDefault = "default"
	MatcherRelaxed = "relaxed"
)

// Config holds all configuration for the posegame server.
// Flag parsing is done in cmd/posegame/main.go; this struct is data only.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// DataDir holds the JSON records or the SQLite database.
	DataDir string
	Store   string // "json" or "sqlite"

	// Port is the HTTP listen port.
	Port string

	// Detection.
	Detector    string // "external", "yolo" or "http"
	ModelPath   string
	UseCUDA     bool
	DetectorURL string

	// Tuning.
	Matcher        string // "default" or "relaxed"
	Session        session.Config
	Countdown      int           // capture countdown ticks
	StatusInterval time.Duration // dashboard status broadcast period
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel:       "info",
		DataDir:        config.DefaultDataDir,
		Store:          config.DefaultStore,
		Port:           config.DefaultPort,
		Detector:       DetectorExternal,
		ModelPath:      detection.DefaultYOLOPoseConfig().ModelPath,
		DetectorURL:    detection.DefaultHTTPConfig().URL,
		Matcher:        MatcherDefault,
		Session:        session.DefaultConfig(),
		Countdown:      recorder.DefaultConfig().Countdown,
		StatusInterval: 500 * time.Millisecond,
	}
}

// LoadEnvConfig applies environment overrides, after loading a .env file if
// one exists. Call this after flag parsing.
func (c *Config) LoadEnvConfig() error {
	if err := config.LoadDotEnv(); err != nil {
		return &ConfigError{Field: "DotEnv", Message: "cannot load .env: " + err.Error()}
	}
	c.LogLevel = config.String("LOG_LEVEL", c.LogLevel)
	c.DataDir = config.String("POSEGAME_DATA_DIR", c.DataDir)
	c.Store = config.String("POSEGAME_STORE", c.Store)
	c.Port = config.String("POSEGAME_PORT", c.Port)
	c.Detector = config.String("POSEGAME_DETECTOR", c.Detector)
	c.ModelPath = config.String("POSEGAME_MODEL", c.ModelPath)
	c.UseCUDA = config.Bool("POSEGAME_CUDA", c.UseCUDA)
	c.DetectorURL = config.String("POSEGAME_DETECTOR_URL", c.DetectorURL)
	c.Matcher = config.String("POSEGAME_MATCHER", c.Matcher)
	c.Session.MinInterval = config.Duration("POSEGAME_FRAME_INTERVAL", c.Session.MinInterval)
	c.Countdown = config.Int("POSEGAME_COUNTDOWN", c.Countdown)
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreJSON, StoreSQLite:
	default:
		return &ConfigError{Field: "Store", Message: "store must be json or sqlite, got " + c.Store}
	}
	if c.DataDir == "" {
		return &ConfigError{Field: "DataDir", Message: "data directory is required"}
	}
	if c.Port == "" {
		return &ConfigError{Field: "Port", Message: "port is required"}
	}
	switch c.Detector {
	case DetectorExternal:
	case DetectorYOLO:
		if c.ModelPath == "" {
			return &ConfigError{Field: "ModelPath", Message: "POSEGAME_MODEL is required for the yolo detector"}
		}
	case DetectorHTTP:
		if c.DetectorURL == "" {
			return &ConfigError{Field: "DetectorURL", Message: "POSEGAME_DETECTOR_URL is required for the http detector"}
		}
	default:
		return &ConfigError{Field: "Detector", Message: "detector must be external, yolo or http, got " + c.Detector}
	}
	switch c.Matcher {
	case MatcherDefault, MatcherRelaxed:
	default:
		return &ConfigError{Field: "Matcher", Message: "matcher must be default or relaxed, got " + c.Matcher}
	}
	if c.Countdown < 0 {
		return &ConfigError{Field: "Countdown", Message: "countdown must not be negative"}
	}
	if c.Session.Smoothing < 0 || c.Session.Smoothing > 1 {
		return &ConfigError{Field: "Smoothing", Message: "smoothing must be in [0, 1]"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// MatcherConfig returns the pose matcher tuning for the configured preset.
func (c *Config) MatcherConfig() pose.Config {
	if c.Matcher == MatcherRelaxed {
		return pose.RelaxedConfig()
	}
	return pose.DefaultConfig()
}

// DetectorFactory returns the detector factory for the configured mode, or
// nil for external detection.
func (c *Config) DetectorFactory() detection.Factory {
	switch c.Detector {
	case DetectorYOLO:
		cfg := detection.DefaultYOLOPoseConfig()
		cfg.ModelPath = c.ModelPath
		cfg.UseCUDA = c.UseCUDA
		return detection.YOLOPoseFactory(cfg)
	case DetectorHTTP:
		cfg := detection.DefaultHTTPConfig()
		cfg.URL = c.DetectorURL
		return detection.HTTPFactory(cfg)
	default:
		return nil
	}
}

// DatabasePath is the SQLite file used by the sqlite store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "posegame.db")
}
