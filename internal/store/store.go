// Package store persists requests, vendors and proposals in SQLite.
// The proposals table carries a composite UNIQUE(request_id, vendor_id)
// key: the at-most-one-proposal-per-vendor rule is enforced here, at
// the storage layer, not only by the ingest guard's pre-check.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when inserting a proposal for a
// (request, vendor) pair that already has one. Callers treat it as an
// expected, non-fatal outcome, distinct from every other storage error.
var ErrDuplicate = errors.New("duplicate proposal")

// Store wraps the SQLite database connection.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and
// initializes the schema. SQLite allows a single writer; the pool is
// capped at one connection so concurrent callers serialize here
// instead of failing with SQLITE_BUSY.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		user_request TEXT NOT NULL,
		terms TEXT NOT NULL DEFAULT '{}',
		status TEXT NOT NULL DEFAULT 'Draft',
		vendor_ids TEXT NOT NULL DEFAULT '[]',
		analysis TEXT,
		analyzed_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS vendors (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		category TEXT NOT NULL DEFAULT 'General',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS proposals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		vendor_id TEXT NOT NULL,
		raw_text TEXT NOT NULL,
		cost REAL NOT NULL DEFAULT 0,
		delivery_time TEXT NOT NULL DEFAULT '',
		warranty TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		UNIQUE(request_id, vendor_id)
	);

	CREATE INDEX IF NOT EXISTS idx_proposals_request ON proposals(request_id);
	`

	_, err := s.db.Exec(schema)
	return err
}
