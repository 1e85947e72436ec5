// Package assets contains the database schema migrations embedded in the binary.
package assets

import "embed"

const (
	// PostgresMigrationDir is the path, relative to the embedded filesystem,
	// of the PostgreSQL migrations.
	PostgresMigrationDir = "migrations/postgres"

	// MySQLMigrationDir is the path, relative to the embedded filesystem,
	// of the MySQL migrations.
	MySQLMigrationDir = "migrations/mysql"

	// SQLiteMigrationDir is the path, relative to the embedded filesystem,
	// of the SQLite migrations.
	SQLiteMigrationDir = "migrations/sqlite"
)

//go:embed migrations/*
var EmbedMigrations embed.FS
