package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("TRACKLET_API_URL", "https://api.example.com/api")
	t.Setenv("TRACKLET_TIMEOUT", "5")
	t.Setenv("TRACKLET_DB_PATH", "/tmp/tracklet-test.db")
	t.Setenv("TRACKLET_EXPORT_DIR", "downloads")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, "https://api.example.com/api", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "/tmp/tracklet-test.db", cfg.DatabasePath)
	assert.Equal(t, "downloads", cfg.ExportDir)
}

func TestParseEnvIgnoresInvalidTimeout(t *testing.T) {
	t.Setenv("TRACKLET_TIMEOUT", "not-a-number")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}

func TestParseEnvKeepsDefaultsWhenUnset(t *testing.T) {
	t.Setenv("TRACKLET_API_URL", "")
	t.Setenv("TRACKLET_DB_PATH", "")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, "http://127.0.0.1:8000/api", cfg.BaseURL)
	assert.Equal(t, "tracklet.db", cfg.DatabasePath)
}
