package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/corund/internal/flagx"
	"github.com/dmitrijs2005/corund/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Only keys that
// are present override the current values.
type JsonConfig struct {
	EndpointAddrHTTP             *string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC             *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	RefreshTokenSecret           *string         `json:"refresh_token_secret"`
	AccessTokenSecret            *string         `json:"access_token_secret"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	ArchivedUsernamePrefix       *string         `json:"archived_username_prefix"`
	LogLevel                     *string         `json:"log_level"`
	DomainsFile                  *string         `json:"domains_file"`
	Domains                      []Domain        `json:"domains"`
}

// parseJson overlays config with the file named by -c/-config, if any.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.RefreshTokenSecret, c.RefreshTokenSecret)
	setString(&config.AccessTokenSecret, c.AccessTokenSecret)
	setString(&config.ArchivedUsernamePrefix, c.ArchivedUsernamePrefix)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.DomainsFile, c.DomainsFile)
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	config.Domains = append(config.Domains, c.Domains...)

	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
