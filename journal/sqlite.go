// journal/sqlite.go
package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the durable audit journal.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the audit database.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLite{db: db}, nil
}

// RecordEnforcement appends one audit entry.
func (j *SQLite) RecordEnforcement(r Record) error {
	_, err := j.db.Exec(`
		INSERT INTO enforcements
		(record_id, at, action_type, account_id, rule_id, reason, outcome, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RecordID, r.At, r.ActionType, r.AccountID,
		r.RuleID, r.Reason, string(r.Outcome), r.Details,
	)
	return err
}

// Get returns a single audit entry by ID.
func (j *SQLite) Get(recordID string) (Record, error) {
	row := j.db.QueryRow(`
		SELECT record_id, at, action_type, account_id, rule_id, reason, outcome, details
		FROM enforcements
		WHERE record_id = ?`, recordID)

	rec, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Record{}, fmt.Errorf("enforcement %q not found", recordID)
		}
		return Record{}, err
	}
	return rec, nil
}

// ListByAccount returns the audit entries for one account within [start, end),
// oldest first.
func (j *SQLite) ListByAccount(accountID string, start, end time.Time) ([]Record, error) {
	rows, err := j.db.Query(`
		SELECT record_id, at, action_type, account_id, rule_id, reason, outcome, details
		FROM enforcements
		WHERE account_id = ? AND at >= ? AND at < ?
		ORDER BY at ASC`, accountID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var rec Record
	var outcome string
	err := s.Scan(
		&rec.RecordID,
		&rec.At,
		&rec.ActionType,
		&rec.AccountID,
		&rec.RuleID,
		&rec.Reason,
		&outcome,
		&rec.Details,
	)
	rec.Outcome = Outcome(outcome)
	return rec, err
}

// Close closes the underlying database.
func (j *SQLite) Close() error {
	return j.db.Close()
}
