package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/driftwatch/driftwatch/internal/canon"
)

// SeedFingerprint computes the content hash of the seed dataset: every
// row of every named table in rowid order, canonically serialized. Any
// change to the fixture changes the fingerprint and invalidates the
// persisted oracle.
//
// Table order follows the configuration, which is part of the canon; the
// same tables listed in a different order are a different fingerprint.
func (s *Store) SeedFingerprint(ctx context.Context, tables []string) (string, error) {
	if len(tables) == 0 {
		return "", fmt.Errorf("seed fingerprint: no seed tables configured")
	}

	doc := make([]any, 0, len(tables))
	for _, table := range tables {
		rs, err := s.QueryAll(ctx, fmt.Sprintf(
			"SELECT * FROM %s ORDER BY rowid", quoteIdent(table)))
		if err != nil {
			return "", fmt.Errorf("seed table %s: %w", table, err)
		}
		doc = append(doc, map[string]any{
			"table":   table,
			"content": rs.canonical(),
		})
	}

	return canon.HashCanonical(canon.DomainSeed, doc)
}

// quoteIdent double-quotes an identifier for interpolation into a query.
// Table names come from validated configuration, not user input, but the
// quoting keeps odd names (spaces, keywords) working.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
