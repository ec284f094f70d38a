// Package migrations embeds the goose SQL migrations of the local mirror.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
