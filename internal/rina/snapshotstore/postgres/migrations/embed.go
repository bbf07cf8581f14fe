// Package migrations embeds the SQL migrations for the postgres RIB
// snapshot store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
