// Package migrations embeds the SQL schema for every supported database driver.
// Files live in a directory named after the driver.
package migrations

import "embed"

// FS holds postgres/*.sql and sqlite3/*.sql.
//
//go:embed postgres/*.sql sqlite3/*.sql
var FS embed.FS
