package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the registry the migrate command runs against.
var Migrations = migrate.NewMigrations()
