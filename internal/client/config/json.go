package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/vpetrenko/tracklet/internal/flagx"
	"github.com/vpetrenko/tracklet/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify the timeout either as a string like
// "30s" or as integer nanoseconds.
type JsonConfig struct {
	BaseURL        string         `json:"base_url"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	DatabasePath   string         `json:"database_path"`
	ExportDir      string         `json:"export_dir"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// the -c/-config flags. Without the flag, no JSON is loaded. Read or parse
// errors panic; config problems should stop startup immediately.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.BaseURL != "" {
		cfg.BaseURL = jc.BaseURL
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.ExportDir != "" {
		cfg.ExportDir = jc.ExportDir
	}
}
