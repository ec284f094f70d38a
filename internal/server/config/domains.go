package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type domainsFile struct {
	Domains []Domain `yaml:"domains"`
}

// loadDomains appends the tenants listed in DomainsFile:
//
//	domains:
//	  - key: billing
//	    secret: s3cr3t
func loadDomains(config *Config) error {
	if config.DomainsFile == "" {
		return nil
	}

	data, err := os.ReadFile(config.DomainsFile)
	if err != nil {
		return fmt.Errorf("read domains %s: %w", config.DomainsFile, err)
	}

	var f domainsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse domains %s: %w", config.DomainsFile, err)
	}

	for i, d := range f.Domains {
		if d.Key == "" || d.Secret == "" {
			return fmt.Errorf("domains %s: entry %d needs both key and secret", config.DomainsFile, i)
		}
	}

	config.Domains = append(config.Domains, f.Domains...)
	return nil
}
