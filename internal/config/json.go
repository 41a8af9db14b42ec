package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/lumora-app/listsync/internal/flagx"
	"github.com/lumora-app/listsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "3s"
// or as integer nanoseconds.
type JsonConfig struct {
	DataDir          string         `json:"data_dir"`
	Relays           []string       `json:"relays"`
	RelayTimeout     timex.Duration `json:"relay_timeout"`
	RelayConcurrency int            `json:"relay_concurrency"`
	PageSize         int            `json:"page_size"`
	MaxPages         int            `json:"max_pages"`
	CacheTTL         timex.Duration `json:"cache_ttl"`
	RefreshInterval  timex.Duration `json:"refresh_interval"`
	CacheSize        int            `json:"cache_size"`
}

// parseJson overlays cfg with values loaded from the JSON file named by the
// -c/-config flag. Absent file path means no JSON is loaded. Fields missing
// from the file keep their current values.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if len(jc.Relays) > 0 {
		cfg.Relays = jc.Relays
	}
	if jc.RelayTimeout.Duration != 0 {
		cfg.RelayTimeout = time.Duration(jc.RelayTimeout.Duration)
	}
	if jc.RelayConcurrency != 0 {
		cfg.RelayConcurrency = jc.RelayConcurrency
	}
	if jc.PageSize != 0 {
		cfg.PageSize = jc.PageSize
	}
	if jc.MaxPages != 0 {
		cfg.MaxPages = jc.MaxPages
	}
	if jc.CacheTTL.Duration != 0 {
		cfg.CacheTTL = time.Duration(jc.CacheTTL.Duration)
	}
	if jc.RefreshInterval.Duration != 0 {
		cfg.RefreshInterval = time.Duration(jc.RefreshInterval.Duration)
	}
	if jc.CacheSize != 0 {
		cfg.CacheSize = jc.CacheSize
	}
}
