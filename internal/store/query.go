package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/driftwatch/driftwatch/internal/canon"
)

// ResultSet holds a fully materialized query result in the order the
// database returned it. Cell values are driver-native: nil, int64,
// float64, string, or []byte.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// QueryAll executes a SELECT-class query and materializes every row.
// The row order is preserved exactly; it is part of the decision query's
// contract, not incidental.
func (s *Store) QueryAll(ctx context.Context, query string, args ...any) (*ResultSet, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	rs := &ResultSet{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		rs.Rows = append(rs.Rows, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return rs, nil
}

// NamedArgs converts a flat parameter map into sql.Named arguments,
// restricted to the given parameter names. Restricting matters: binding
// a named parameter the query never references is a driver error, and
// the query is allowed to use only a subset of decision parameters.
func NamedArgs(params map[string]any, names []string) []any {
	args := make([]any, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		if v, ok := params[name]; ok {
			args = append(args, sql.Named(name, v))
		}
	}
	return args
}

// Fingerprint hashes the result set content in order, for determinism and
// sensitivity comparisons.
func (rs *ResultSet) Fingerprint() (string, error) {
	return canon.HashCanonical(canon.DomainResult, rs.canonical())
}

func (rs *ResultSet) canonical() map[string]any {
	cols := make([]any, len(rs.Columns))
	for i, c := range rs.Columns {
		cols[i] = c
	}
	rows := make([]any, len(rs.Rows))
	for i, row := range rs.Rows {
		cells := make([]any, len(row))
		for j, cell := range row {
			cells[j] = canonicalCell(cell)
		}
		rows[i] = cells
	}
	return map[string]any{"columns": cols, "rows": rows}
}

// canonicalCell maps a driver value into the canonical data model.
// Floats become normalized decimal strings prefixed by a type marker so
// the float 1 and the string "1" cannot collide.
func canonicalCell(v any) any {
	switch val := v.(type) {
	case nil:
		return "N:"
	case int64:
		return "i:" + canon.NormalizeInt(val)
	case float64:
		return "f:" + canon.NormalizeFloat(val)
	case string:
		return "s:" + val
	case []byte:
		return "b:" + string(val)
	case bool:
		if val {
			return "i:1"
		}
		return "i:0"
	default:
		return fmt.Sprintf("?:%v", val)
	}
}
