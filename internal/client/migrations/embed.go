// Package migrations embeds the goose SQL migrations for the local
// offline store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
