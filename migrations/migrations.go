// Package migrations embeds the schema migrations for each supported driver.
//
// Files are bundled at compile time so the binary carries its own schema.
// Each dialect directory holds NNN_name.sql files applied in filename order.
package migrations

import (
	"embed"
	"io/fs"
)

// Dialect directories.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// Dialect returns the migration files for dialect rooted at the dialect
// directory, and false for an unknown dialect.
func Dialect(dialect string) (fs.FS, bool) {
	switch dialect {
	case SQLite, Postgres:
	default:
		return nil, false
	}
	sub, err := fs.Sub(files, dialect)
	if err != nil {
		return nil, false
	}
	return sub, true
}
