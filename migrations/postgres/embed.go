// Package migrations embeds SQL migration files.
package migrations

import "embed"

// FS contains the hub schema migrations.
//
//go:embed *.sql
var FS embed.FS
