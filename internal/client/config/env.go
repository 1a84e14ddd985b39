package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with values from the environment. A .env file in
// the working directory is loaded first when present; real environment
// variables take precedence over it (godotenv does not overwrite).
//
// Recognized variables:
//
//	TRACKLET_API_URL     base URL of the backend API
//	TRACKLET_TIMEOUT     request timeout in seconds
//	TRACKLET_DB_PATH     path of the local session database
//	TRACKLET_EXPORT_DIR  directory for CSV exports
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("TRACKLET_API_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("TRACKLET_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.RequestTimeout = time.Duration(secs) * time.Second
		}
	}
	if v := os.Getenv("TRACKLET_DB_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("TRACKLET_EXPORT_DIR"); v != "" {
		cfg.ExportDir = v
	}
}
