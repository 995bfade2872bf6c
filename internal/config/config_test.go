package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Capture.GridSize)
	assert.Equal(t, "mouse_data", cfg.Storage.DataDir)
}

func TestLoadTOMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursortrace.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[capture]
grid_size = 25
screen_width = 2560
screen_height = 1440

[storage]
data_dir = "/tmp/sessions"

[logging]
level = "debug"
format = "json"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Capture.GridSize)
	assert.Equal(t, 2560, cfg.Capture.ScreenWidth)
	assert.Equal(t, "/tmp/sessions", cfg.Storage.DataDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Values absent from the file keep their defaults.
	assert.Equal(t, 256, cfg.Capture.TraceCapacity)
	assert.Equal(t, "heatmaps", cfg.Storage.ArtifactDir)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoadNoPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CURSORTRACE_DATA_DIR", "/srv/capture")
	t.Setenv("CURSORTRACE_GRID_SIZE", "20")
	t.Setenv("CURSORTRACE_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/srv/capture", cfg.Storage.DataDir)
	assert.Equal(t, 20, cfg.Capture.GridSize)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero grid size", func(c *Config) { c.Capture.GridSize = 0 }},
		{"zero trace capacity", func(c *Config) { c.Capture.TraceCapacity = 0 }},
		{"zero screen width", func(c *Config) { c.Capture.ScreenWidth = 0 }},
		{"empty data dir", func(c *Config) { c.Storage.DataDir = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
