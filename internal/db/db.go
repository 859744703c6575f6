package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Open opens the SQLite database holding admin users and the lead log, sets
// pragmas and validates connectivity.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	pragmas := `
		PRAGMA foreign_keys = ON;
		PRAGMA busy_timeout = 5000;
	`
	if inMemory(dbPath) {
		// Every pooled connection would get its own empty in-memory database.
		db.SetMaxOpenConns(1)
	} else {
		pragmas += "PRAGMA journal_mode = WAL;"
	}

	if _, err := db.Exec(pragmas); err != nil {
		db.Close()
		return nil, fmt.Errorf("set sqlite pragmas: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	return db, nil
}

func inMemory(dbPath string) bool {
	return dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory")
}
