package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/lumora-app/listsync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   data directory for durable per-account storage
//	-r string   comma-separated relay URLs
//	-t int      per-relay timeout in seconds
//	-i int      background refresh interval in seconds (0 disables)
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-r", "-t", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	relays := fs.String("r", strings.Join(cfg.Relays, ","), "comma-separated relay URLs")
	relayTimeout := fs.Int("t", int(cfg.RelayTimeout.Seconds()), "per-relay timeout (in seconds)")
	refreshInterval := fs.Int("i", int(cfg.RefreshInterval.Seconds()), "background refresh interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	if *relays != "" {
		cfg.Relays = strings.Split(*relays, ",")
	}
	cfg.RelayTimeout = time.Duration(*relayTimeout) * time.Second
	cfg.RefreshInterval = time.Duration(*refreshInterval) * time.Second
}
