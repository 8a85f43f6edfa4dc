// Package store keeps the history of wakegate runs in SQLite.
//
// Every run of the alarm is a session: the source it watched, the expected
// shape sequence, how often a wrong shape reset it, and how it ended. Each
// state change of the unlock flow is recorded as a transition of its session,
// and the frame that unlocked the alarm is kept as a JPEG thumbnail. Deleting
// a session removes its transitions and snapshot.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// busyTimeoutMillis bounds how long a history write waits for a reader.
const busyTimeoutMillis = 5000

// Store is the session history database. It is safe for concurrent use by
// the frame loop and the status server.
type Store struct {
	db   *sql.DB
	path string
}

// New opens the history database at dbPath, creating the file and its
// directory when needed, and brings the schema up to date.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Connection-scoped pragmas only hold with a single connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMillis),
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	s := &Store{db: db, path: dbPath}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DB exposes the connection for tests and maintenance queries.
func (s *Store) DB() *sql.DB {
	return s.db
}
