// Package config loads runtime configuration for the standsync CLI.
//
// Sources and precedence:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
package config

import "time"

// Config holds the runtime settings of the sync engine.
type Config struct {
	// APIBaseURL is the base URL of the remote feed-reading service.
	APIBaseURL string
	// DatabasePath is the path of the local SQLite database file.
	DatabasePath string
	// SyncPeriod is the minimum interval between automatic full sync rounds.
	SyncPeriod time.Duration
	// Debug enables verbose logging.
	Debug bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "https://api.lightstands.xyz/moutsea/"
	c.DatabasePath = "standsync.db"
	c.SyncPeriod = 5 * time.Minute
	c.Debug = false
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags. Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
