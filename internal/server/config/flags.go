package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/dmitrijs2005/corund/internal/flagx"
)

// parseFlags overlays config with command-line flags.
//
//	-a string   HTTP bind address
//	-g string   gRPC bind address (health service)
//	-d string   PostgreSQL DSN
//	-rs string  refresh token secret
//	-as string  access token secret
//	-r int      refresh token validity, minutes
//	-t int      access token validity, minutes
//	-l string   log level
//	-domains    path to the YAML domains file
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-d", "-rs", "-as", "-r", "-t", "-l", "-domains"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to serve RPC over HTTP")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port to serve gRPC health")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RefreshTokenSecret, "rs", config.RefreshTokenSecret, "refresh token secret")
	fs.StringVar(&config.AccessTokenSecret, "as", config.AccessTokenSecret, "access token secret")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.DomainsFile, "domains", config.DomainsFile, "YAML file listing tenant domains")

	refresh := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")
	access := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	config.RefreshTokenValidityDuration = time.Duration(*refresh) * time.Minute
	config.AccessTokenValidityDuration = time.Duration(*access) * time.Minute
	return nil
}
