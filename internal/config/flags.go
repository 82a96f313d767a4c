package config

import (
	"flag"
	"os"
	"time"

	"github.com/lightstands/standsync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   base URL of the remote service
//	-d string   path of the local database file
//	-s int      minimum full-sync interval in seconds
//	-v          verbose (debug) logging
//
// Only these flags are parsed; the rest of the command line (subcommands,
// JSON config flags) is filtered out via flagx.FilterArgs.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the remote service")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path of the local database file")
	syncPeriod := fs.Int("s", int(cfg.SyncPeriod.Seconds()), "minimum full-sync interval (in seconds)")
	fs.BoolVar(&cfg.Debug, "v", cfg.Debug, "verbose logging")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SyncPeriod = time.Duration(*syncPeriod) * time.Second
}
