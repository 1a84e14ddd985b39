// Package config loads runtime settings for the tracklet CLI. Sources are
// layered: defaults, then a .env file / environment variables, then a JSON
// config file, then command-line flags. Later sources win.
package config

import "time"

// Config holds runtime settings for the tracklet CLI.
//
// Fields:
//   - BaseURL: root of the expense-tracker REST API.
//   - RequestTimeout: per-request timeout for API calls.
//   - DatabasePath: SQLite file holding the persisted session.
//   - ExportDir: subdirectory CSV exports are written to.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	DatabasePath   string
	ExportDir      string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BaseURL = "http://127.0.0.1:8000/api"
	c.RequestTimeout = 30 * time.Second
	c.DatabasePath = "tracklet.db"
	c.ExportDir = "exports"
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from the environment, JSON (if present), and command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
