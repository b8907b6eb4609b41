// Package migrations embeds the Postgres schema so the binary can migrate
// without the source tree.
package migrations

import "embed"

// FS holds the numbered golang-migrate files.
//
//go:embed *.sql
var FS embed.FS
