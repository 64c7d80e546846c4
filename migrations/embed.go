// Package migrations holds the SQL schema of the prepacking service.
package migrations

import "embed"

// FS contains every migration pair, named <version>_<name>.{up,down}.sql
//
//go:embed *.sql
var FS embed.FS
