package db

import "embed"

// MigrationFS holds the SQL migration files compiled into the binary so the
// migrate runner does not depend on a working directory at deploy time.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
