// persist/sqlite.go
package persist

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	table_name TEXT PRIMARY KEY,
	taken_at DATETIME NOT NULL,
	data BLOB NOT NULL
);
`

// SQLite stores one row per table, replaced on every flush. Snapshots are
// small (one account book each), so whole-row replacement is simpler and
// safer than incremental writes.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the snapshot database.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}

	return &SQLite{db: db}, nil
}

// SaveSnapshot replaces the stored snapshot for a table.
func (s *SQLite) SaveSnapshot(table string, data []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO snapshots (table_name, taken_at, data)
		VALUES (?, ?, ?)
		ON CONFLICT(table_name) DO UPDATE SET taken_at = excluded.taken_at, data = excluded.data`,
		table, time.Now().UTC(), data,
	)
	return err
}

// LoadSnapshot returns the stored snapshot for a table, or ErrNoSnapshot.
func (s *SQLite) LoadSnapshot(table string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM snapshots WHERE table_name = ?`, table).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
