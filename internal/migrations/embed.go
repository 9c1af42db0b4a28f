// Package migrations embeds the Postgres backend's SQL schema so the
// binary carries its own migrations without a separate asset pipeline.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
