// Package migrations embeds the ticketpay schema migration files.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
