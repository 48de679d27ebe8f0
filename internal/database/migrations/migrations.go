package migrations

import "embed"

// FS holds one goose migration directory per SQL dialect.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
