// Package migrations embeds the SQL schema migrations for demoscope.
//
// Migrations follow the strict naming standard NNN_name.(up|down).sql and are
// compiled into the binaries, so deployments never ship loose SQL files.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
