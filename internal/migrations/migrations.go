// Package migrations хранит SQL-схему сервиса, применяемую через goose.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
