// Package config assembles the client's runtime settings from defaults, an
// optional JSON file and command-line flags, in that order of precedence.
package config

import "time"

// Config holds runtime settings for the list synchronization client.
//
// Units: RelayTimeout, CacheTTL and RefreshInterval are time.Durations.
type Config struct {
	// DataDir is the root of the per-account durable storage.
	DataDir string

	// Relays is the default relay set used for accounts that do not
	// carry their own.
	Relays []string

	// RelayTimeout bounds every per-relay fetch or publish attempt.
	RelayTimeout time.Duration

	// RelayConcurrency caps how many relays are contacted at once.
	RelayConcurrency int

	// PageSize and MaxPages shape backward pagination: page size per
	// request and a hard cap on requests per relay per cycle.
	PageSize int
	MaxPages int

	// CacheTTL is how long a cached snapshot satisfies a sync without
	// touching the file or the relays.
	CacheTTL time.Duration

	// RefreshInterval drives the background refresher; 0 disables it.
	RefreshInterval time.Duration

	// CacheSize bounds the session store entry count.
	CacheSize int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = "./data"
	c.Relays = []string{"wss://relay.damus.io", "wss://nos.lol", "wss://relay.nostr.band"}
	c.RelayTimeout = 7 * time.Second
	c.RelayConcurrency = 3
	c.PageSize = 500
	c.MaxPages = 10
	c.CacheTTL = 30 * time.Second
	c.RefreshInterval = 5 * time.Minute
	c.CacheSize = 256
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
