package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// canaryTable is an isolated namespace, never a seed table, so the canary
// write can never contaminate the frozen fixture.
const canaryTable = "driftwatch_canary"

// Canary proves the database accepts and reflects a known mutation:
// insert a uuid-tagged row into the canary namespace, read it back, and
// delete it. Deletion is guaranteed on all exit paths, including
// verification failure.
func (s *Store) Canary(ctx context.Context) (err error) {
	if _, err = s.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (token TEXT PRIMARY KEY, noted_at TEXT NOT NULL)`,
		canaryTable)); err != nil {
		return fmt.Errorf("canary: create namespace: %w", err)
	}

	token := uuid.NewString()
	defer func() {
		if _, delErr := s.db.ExecContext(ctx, fmt.Sprintf(
			`DELETE FROM %s WHERE token = ?`, canaryTable), token); delErr != nil && err == nil {
			err = fmt.Errorf("canary: cleanup: %w", delErr)
		}
	}()

	notedAt := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err = s.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (token, noted_at) VALUES (?, ?)`, canaryTable), token, notedAt); err != nil {
		return fmt.Errorf("canary: write: %w", err)
	}

	var got string
	if err = s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT noted_at FROM %s WHERE token = ?`, canaryTable), token).Scan(&got); err != nil {
		return fmt.Errorf("canary: read back: %w", err)
	}
	if got != notedAt {
		return fmt.Errorf("canary: read back mismatch: wrote %q, got %q", notedAt, got)
	}
	return nil
}
