package config

import (
	"flag"
	"os"
	"time"

	"github.com/dpetrovs/stockkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the remote inventory authority
//	-t string   bearer token for authority calls
//	-d string   path of the local database file
//	-q int      maximum number of queued actions
//	-b int      maximum cumulative queued payload bytes
//	-i int      background sync interval in seconds
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-d", "-q", "-b", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "base URL of the remote authority")
	fs.StringVar(&cfg.AuthToken, "t", cfg.AuthToken, "bearer token for authority calls")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path of the local database file")
	fs.IntVar(&cfg.MaxQueueItems, "q", cfg.MaxQueueItems, "maximum number of queued actions")
	fs.Int64Var(&cfg.MaxQueueBytes, "b", cfg.MaxQueueBytes, "maximum cumulative queued payload bytes")
	syncInterval := fs.Int("i", int(cfg.SyncInterval.Seconds()), "background sync interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
}
