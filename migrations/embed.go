// Package migrations embebe los .sql para goose (CLI `migrate` y tests de integración).
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
