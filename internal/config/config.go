// Package config handles configuration loading and validation for
// cursortrace. Values come from defaults, then an optional TOML file, then
// environment variable overrides, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config holds the complete tool configuration.
type Config struct {
	Capture CaptureConfig `toml:"capture"`
	Storage StorageConfig `toml:"storage"`
	Logging LoggingConfig `toml:"logging"`
}

// CaptureConfig controls the recording pipeline.
type CaptureConfig struct {
	// GridSize is the dwell-bucket edge length in pixels.
	GridSize int `toml:"grid_size"`
	// TraceCapacity bounds the diagnostic buffer of recent raw events.
	TraceCapacity int `toml:"trace_capacity"`
	// ScreenWidth and ScreenHeight bound rendered artifacts and the demo
	// event source.
	ScreenWidth  int `toml:"screen_width"`
	ScreenHeight int `toml:"screen_height"`
}

// StorageConfig controls where session data lands.
type StorageConfig struct {
	// DataDir receives the five JSON documents per session.
	DataDir string `toml:"data_dir"`
	// ArtifactDir receives rendered PNG artifacts.
	ArtifactDir string `toml:"artifact_dir"`
	// ArchivePath is the SQLite archive database file.
	ArchivePath string `toml:"archive_path"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
	// Format is "text", "json", or "auto" (text on a terminal).
	Format string `toml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Capture: CaptureConfig{
			GridSize:      10,
			TraceCapacity: 256,
			ScreenWidth:   1920,
			ScreenHeight:  1080,
		},
		Storage: StorageConfig{
			DataDir:     "mouse_data",
			ArtifactDir: "heatmaps",
			ArchivePath: filepath.Join("mouse_data", "archive.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load builds the configuration from defaults, the TOML file at path (if
// path is non-empty; the file must then exist), and environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("CURSORTRACE_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("CURSORTRACE_ARTIFACT_DIR"); v != "" {
		cfg.Storage.ArtifactDir = v
	}
	if v := os.Getenv("CURSORTRACE_ARCHIVE_PATH"); v != "" {
		cfg.Storage.ArchivePath = v
	}
	if v := os.Getenv("CURSORTRACE_GRID_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Capture.GridSize = n
		}
	}
	if v := os.Getenv("CURSORTRACE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for unusable values.
func (c Config) Validate() error {
	if c.Capture.GridSize < 1 {
		return fmt.Errorf("capture.grid_size must be at least 1, got %d", c.Capture.GridSize)
	}
	if c.Capture.TraceCapacity < 1 {
		return fmt.Errorf("capture.trace_capacity must be at least 1, got %d", c.Capture.TraceCapacity)
	}
	if c.Capture.ScreenWidth < 1 || c.Capture.ScreenHeight < 1 {
		return fmt.Errorf("capture screen dimensions must be positive, got %dx%d",
			c.Capture.ScreenWidth, c.Capture.ScreenHeight)
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir must not be empty")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json", "auto":
	default:
		return fmt.Errorf("logging.format must be text, json, or auto, got %q", c.Logging.Format)
	}
	return nil
}
