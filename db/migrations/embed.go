// db/migrations/embed.go

package migrations

import "embed"

// SQLFiles holds every migration for golang-migrate's iofs source.
//
//go:embed *.sql
var SQLFiles embed.FS
