package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/corund/internal/flagx"
	"github.com/dmitrijs2005/corund/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Only keys
// that are present override the current values.
type JsonConfig struct {
	ServerURL    *string         `json:"server_url"`
	DomainKey    *string         `json:"domain_key"`
	DomainSecret *string         `json:"domain_secret"`
	DatabaseDSN  *string         `json:"database_dsn"`
	SyncInterval *timex.Duration `json:"sync_interval"`
	LogLevel     *string         `json:"log_level"`
}

// parseJson overlays cfg with the file named by -c/-config, if any.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.DomainKey, jc.DomainKey)
	setString(&cfg.DomainSecret, jc.DomainSecret)
	setString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.SyncInterval != nil {
		cfg.SyncInterval = jc.SyncInterval.Duration
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
