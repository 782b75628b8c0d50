// Package migrations embeds the ledger schema.
package migrations

import "embed"

// Files holds the ordered *.up.sql migrations.
//
//go:embed *.up.sql
var Files embed.FS
