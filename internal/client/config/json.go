package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dpetrovs/stockkeeper/internal/flagx"
	"github.com/dpetrovs/stockkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "10s" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	AuthToken          string         `json:"auth_token"`
	DatabasePath       string         `json:"database_path"`
	MaxQueueItems      int            `json:"max_queue_items"`
	MaxQueueBytes      int64          `json:"max_queue_bytes"`
	SubmitTimeout      timex.Duration `json:"submit_timeout"`
	SyncInterval       timex.Duration `json:"sync_interval"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Behavior:
//   - Reads and unmarshals the JSON into JsonConfig.
//   - Copies known fields into the provided Config.
//   - Panics on read or unmarshal errors (caller should recover if desired).
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
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

	cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	cfg.AuthToken = jc.AuthToken
	cfg.DatabasePath = jc.DatabasePath
	cfg.MaxQueueItems = jc.MaxQueueItems
	cfg.MaxQueueBytes = jc.MaxQueueBytes
	cfg.SubmitTimeout = time.Duration(jc.SubmitTimeout.Duration)
	cfg.SyncInterval = time.Duration(jc.SyncInterval.Duration)
}
