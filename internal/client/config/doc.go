// Package config loads runtime configuration for the stockkeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the remote inventory authority
//	-t string   bearer token for authority calls
//	-d string   path of the local database file
//	-q int      maximum number of queued actions
//	-b int      maximum cumulative queued payload bytes
//	-i int      background sync interval (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "10s" or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "http://127.0.0.1:8080",
//	  "database_path": "stockkeeper.db",
//	  "max_queue_items": 500,
//	  "max_queue_bytes": 5242880,
//	  "submit_timeout": "10s",
//	  "sync_interval": "30s"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
