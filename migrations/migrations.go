// Package migrations embeds the PostgreSQL schema scripts applied by cmd/migrate.
package migrations

import "embed"

// FS holds every *.sql script, applied in lexical order.
//
//go:embed *.sql
var FS embed.FS
