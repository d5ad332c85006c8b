// Package database embeds the goose migrations applied at startup.
package database

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
