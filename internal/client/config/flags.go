package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/dmitrijs2005/corund/internal/flagx"
)

// parseFlags overlays cfg with the flags listed in the package doc. Unknown
// arguments are filtered out with flagx.FilterArgs.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-s", "-k", "-p", "-d", "-i", "-l", "-once"})

	fs := flag.NewFlagSet("mirror", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "s", cfg.ServerURL, "base URL of the identity service")
	fs.StringVar(&cfg.DomainKey, "k", cfg.DomainKey, "domain key")
	fs.StringVar(&cfg.DomainSecret, "p", cfg.DomainSecret, "domain secret")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "path of the local sqlite mirror")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.BoolVar(&cfg.Once, "once", cfg.Once, "run a single sync and exit")
	interval := fs.Int("i", int(cfg.SyncInterval.Seconds()), "sync interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	cfg.SyncInterval = time.Duration(*interval) * time.Second
	return nil
}
