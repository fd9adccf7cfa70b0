package migrations

import "embed"

// FS contains embedded SQLite migrations for market storage.
//
//go:embed *.sql
var FS embed.FS
