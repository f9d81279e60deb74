package config

import (
	"flag"
	"os"
	"time"

	"github.com/secretlink/secretlink/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN or SQLite path
//	-s string   token signing key
//	-t int      maximum link TTL, minutes
//	-m int      maximum allowed use count per link
//	-i int      expired link cleanup interval, seconds (0 disables)
//	-o int      ledger operation timeout, seconds
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes
//     using flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers and converted to
//     time.Duration values.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-m", "-i", "-o"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SigningKey, "s", config.SigningKey, "token signing key")
	fs.IntVar(&config.MaxClicks, "m", config.MaxClicks, "maximum allowed use count per link")

	maxTTL := fs.Int("t", int(config.MaxTTL.Minutes()), "maximum link TTL (in minutes)")
	cleanupInterval := fs.Int("i", int(config.CleanupInterval.Seconds()), "cleanup interval (in seconds)")
	opTimeout := fs.Int("o", int(config.OpTimeout.Seconds()), "ledger operation timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.MaxTTL = time.Duration(*maxTTL) * time.Minute
	config.CleanupInterval = time.Duration(*cleanupInterval) * time.Second
	config.OpTimeout = time.Duration(*opTimeout) * time.Second
}
