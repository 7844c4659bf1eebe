// Package migrations embeds the SQL schema migrations so binaries and tests
// can apply them without a checkout.
package migrations

import "embed"

// FS holds every NNNNNN_name.{up,down}.sql file.
//
//go:embed *.sql
var FS embed.FS
