// Package migrations embeds the gateway's SQL schema migrations so a
// binary can apply them at startup without shipping loose files.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
