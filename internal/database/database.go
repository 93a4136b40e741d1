package database

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema_postgres.sql
var schemaPostgres string

//go:embed schema_sqlite.sql
var schemaSQLite string

// Open connects to the store and initializes the schema. Supported
// drivers are "postgres" (production) and "sqlite3" (local/tests).
// Repositories use $N placeholders, which both drivers accept.
func Open(driver, dsn string) (*sql.DB, error) {
	var schema string
	switch driver {
	case "postgres":
		schema = schemaPostgres
	case "sqlite3":
		schema = schemaSQLite
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite3" {
		// sqlite has a single writer; a second connection would only
		// produce SQLITE_BUSY under load.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return db, nil
}
