package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the tenant mirror.
//
// DomainKey and DomainSecret are the credentials the identity service
// checks on every tenant call. DatabaseDSN names the local sqlite file.
type Config struct {
	ServerURL    string        `env:"CORUND_MIRROR_SERVER_URL"`
	DomainKey    string        `env:"CORUND_MIRROR_DOMAIN_KEY"`
	DomainSecret string        `env:"CORUND_MIRROR_DOMAIN_SECRET"`
	DatabaseDSN  string        `env:"CORUND_MIRROR_DATABASE_DSN"`
	SyncInterval time.Duration `env:"CORUND_MIRROR_SYNC_INTERVAL"`
	LogLevel     string        `env:"CORUND_MIRROR_LOG_LEVEL"`
	Once         bool          `env:"CORUND_MIRROR_ONCE"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:3000"
	c.DatabaseDSN = "data/mirror.db"
	c.SyncInterval = 10 * time.Second
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	args := os.Args[1:]
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
