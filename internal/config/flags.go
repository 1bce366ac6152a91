package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/addonsync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-e string   base URL of the remote service
//	-d string   data directory
//	-i int      status check interval in minutes
//
// The function filters os.Args down to the flags it owns via
// flagx.FilterArgs so other components' flags do not interfere.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-e", "-d", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.Endpoint, "e", cfg.Endpoint, "base URL of the remote service")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	interval := fs.Int("i", int(cfg.StatusCheckInterval.Minutes()), "status check interval (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// -i is whole minutes, so only overwrite the configured interval when
	// the flag was actually passed; sub-minute JSON values survive otherwise
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "i" {
			cfg.StatusCheckInterval = time.Duration(*interval) * time.Minute
		}
	})
}
