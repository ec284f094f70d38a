// Package config loads runtime configuration for the tenant mirror.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via flags: -c or -config.
//  3. CORUND_MIRROR_* environment variables.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-s string   base URL of the identity service
//	-k string   domain key
//	-p string   domain secret
//	-d string   path of the local sqlite mirror
//	-i int      sync interval (seconds)
//	-l string   log level
//	-once       run a single sync and exit
//
// # JSON schema
//
// Intervals use timex.Duration, so they can be strings like "10s" or
// integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:3000",
//	  "domain_key": "shop",
//	  "domain_secret": "s3cret",
//	  "database_dsn": "data/mirror.db",
//	  "sync_interval": "10s"
//	}
package config
