package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/lightstands/standsync/internal/flagx"
	"github.com/lightstands/standsync/internal/timex"
)

// JsonConfig is the DTO for JSON unmarshalling. SyncPeriod uses
// timex.Duration so the file can say "5m" or give integer nanoseconds.
type JsonConfig struct {
	APIBaseURL   string         `json:"api_base_url"`
	DatabasePath string         `json:"database_path"`
	SyncPeriod   timex.Duration `json:"sync_period"`
	Debug        bool           `json:"debug"`
}

// parseJson overlays cfg with values from the JSON file named by the
// -c/-config flags. No flag means no file and no overlay. Read or parse
// failures panic; configuration is resolved once at startup and a broken
// file should stop the program.
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

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.SyncPeriod.Duration != 0 {
		cfg.SyncPeriod = time.Duration(jc.SyncPeriod.Duration)
	}
	if jc.Debug {
		cfg.Debug = true
	}
}
