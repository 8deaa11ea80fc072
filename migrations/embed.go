// Package migrations embeds the SQL schema for every supported driver.
package migrations

import "embed"

// FS holds one directory of golang-migrate files per driver.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

// Dir returns the FS directory holding migrations for the driver.
func Dir(driver string) string {
	if driver == "sqlite3" {
		return "sqlite"
	}
	return "postgres"
}
