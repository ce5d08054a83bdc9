// Package db carries the versioned schema applied by golang-migrate.
package db

import "embed"

// Migrations holds the *.up.sql / *.down.sql files under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS
