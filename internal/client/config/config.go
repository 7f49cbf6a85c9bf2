package config

import "time"

// Config holds runtime settings for the stockkeeper CLI.
//
// Fields:
//   - ServerEndpointAddr: base URL of the remote inventory authority.
//   - AuthToken: opaque bearer credential for authority calls.
//   - DatabasePath: path of the local encrypted SQLite database.
//   - MaxQueueItems / MaxQueueBytes: action queue capacity limits.
//   - SubmitTimeout: per-submission deadline during a drain.
//   - SyncInterval: how often the background sync loop drains the queue.
type Config struct {
	ServerEndpointAddr string
	AuthToken          string
	DatabasePath       string
	MaxQueueItems      int
	MaxQueueBytes      int64
	SubmitTimeout      time.Duration
	SyncInterval       time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.DatabasePath = "stockkeeper.db"
	c.MaxQueueItems = 500
	c.MaxQueueBytes = 5 << 20
	c.SubmitTimeout = 10 * time.Second
	c.SyncInterval = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
