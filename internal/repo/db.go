package repo

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS index_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	index_id TEXT NOT NULL UNIQUE,
	index_path TEXT NOT NULL UNIQUE,
	index_status INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_index_entries_status ON index_entries (index_status);
`

func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

func ApplyMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
