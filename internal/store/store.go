// Package store provides the database handle the guards share.
//
// The harness assumes a reachable, schema-loaded SQLite database holding
// the seed dataset; it only issues SELECT-class queries against seed
// tables. The single mutation the package performs is the canary guard's
// scoped write-verify-cleanup sequence in its own namespace table.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the shared database connection for one guard run.
// Acquired once per run and released on every exit path; no guard holds
// it open after its own check completes.
type Store struct {
	db *sql.DB
}

// ConnectionError marks database-unreachable failures. The guard runner
// escalates these as run-fatal instead of converting them into a single
// guard's failing verdict.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IsConnectionError reports whether err is (or wraps) a ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// Open opens the SQLite database at path.
//
// The connection is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - foreign key enforcement
//
// SQLite supports one writer at a time, so the pool is held to a single
// connection. Unreachable databases surface as ConnectionError.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &ConnectionError{Op: "open", Err: err}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &ConnectionError{Op: "ping", Err: err}
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB. Tests use it to load seed fixtures;
// guards go through the typed methods.
func (s *Store) DB() *sql.DB {
	return s.db
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return &ConnectionError{Op: fmt.Sprintf("pragma %q", pragma), Err: err}
		}
	}
	return nil
}

// CheckSyntax prepares the query without executing it, surfacing parse
// errors. Bound parameters need not be supplied for preparation.
func (s *Store) CheckSyntax(ctx context.Context, query string) error {
	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	return stmt.Close()
}

// TableExists reports whether a table or view with the given name exists.
func (s *Store) TableExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?`,
		name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query sqlite_master: %w", err)
	}
	return n > 0, nil
}
