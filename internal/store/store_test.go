package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openSeeded returns an in-memory store loaded with a small tick fixture.
func openSeeded(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.DB().Exec(`
		CREATE TABLE market_ticks (symbol TEXT, price REAL, volume INTEGER);
		INSERT INTO market_ticks VALUES
			('AAA', 1.25, 500),
			('BBB', 2.50, 1500),
			('CCC', 0.75, 3000);
	`)
	require.NoError(t, err)
	return s
}

func TestOpenUnreachable(t *testing.T) {
	_, err := Open("/nonexistent/dir/db.sqlite")
	require.Error(t, err)
	assert.True(t, IsConnectionError(err))
}

func TestQueryAllPreservesOrder(t *testing.T) {
	s := openSeeded(t)
	ctx := context.Background()

	rs, err := s.QueryAll(ctx, "SELECT symbol, volume FROM market_ticks ORDER BY volume DESC")
	require.NoError(t, err)

	assert.Equal(t, []string{"symbol", "volume"}, rs.Columns)
	require.Len(t, rs.Rows, 3)
	assert.Equal(t, "CCC", rs.Rows[0][0])
	assert.Equal(t, int64(3000), rs.Rows[0][1])
	assert.Equal(t, "AAA", rs.Rows[2][0])
}

func TestQueryAllEmptyResult(t *testing.T) {
	s := openSeeded(t)

	rs, err := s.QueryAll(context.Background(), "SELECT * FROM market_ticks WHERE volume > 99999")
	require.NoError(t, err)
	assert.NotNil(t, rs.Rows)
	assert.Empty(t, rs.Rows)
}

func TestCheckSyntax(t *testing.T) {
	s := openSeeded(t)
	ctx := context.Background()

	assert.NoError(t, s.CheckSyntax(ctx, "SELECT symbol FROM market_ticks WHERE price > :threshold"))
	assert.Error(t, s.CheckSyntax(ctx, "SELEKT nonsense FORM"))
	assert.Error(t, s.CheckSyntax(ctx, "SELECT missing_col FROM no_such_table"))
}

func TestTableExists(t *testing.T) {
	s := openSeeded(t)
	ctx := context.Background()

	ok, err := s.TableExists(ctx, "market_ticks")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.TableExists(ctx, "phantom")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResultSetFingerprintOrderSensitive(t *testing.T) {
	s := openSeeded(t)
	ctx := context.Background()

	asc, err := s.QueryAll(ctx, "SELECT symbol FROM market_ticks ORDER BY symbol ASC")
	require.NoError(t, err)
	desc, err := s.QueryAll(ctx, "SELECT symbol FROM market_ticks ORDER BY symbol DESC")
	require.NoError(t, err)

	fpAsc, err := asc.Fingerprint()
	require.NoError(t, err)
	fpDesc, err := desc.Fingerprint()
	require.NoError(t, err)

	assert.NotEqual(t, fpAsc, fpDesc, "row order is part of the result contract")
}

func TestResultSetFingerprintTypeSensitive(t *testing.T) {
	s := openSeeded(t)
	ctx := context.Background()

	asText, err := s.QueryAll(ctx, "SELECT '1' AS v")
	require.NoError(t, err)
	asInt, err := s.QueryAll(ctx, "SELECT 1 AS v")
	require.NoError(t, err)

	fpText, err := asText.Fingerprint()
	require.NoError(t, err)
	fpInt, err := asInt.Fingerprint()
	require.NoError(t, err)

	assert.NotEqual(t, fpText, fpInt)
}

func TestSeedFingerprintSensitivity(t *testing.T) {
	s := openSeeded(t)
	ctx := context.Background()

	fp1, err := s.SeedFingerprint(ctx, []string{"market_ticks"})
	require.NoError(t, err)

	// Unchanged fixture, unchanged fingerprint.
	fp2, err := s.SeedFingerprint(ctx, []string{"market_ticks"})
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)

	// One changed seed row changes the fingerprint.
	_, err = s.DB().Exec(`UPDATE market_ticks SET price = 1.26 WHERE symbol = 'AAA'`)
	require.NoError(t, err)
	fp3, err := s.SeedFingerprint(ctx, []string{"market_ticks"})
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp3)
}

func TestSeedFingerprintMissingTable(t *testing.T) {
	s := openSeeded(t)
	_, err := s.SeedFingerprint(context.Background(), []string{"phantom"})
	require.Error(t, err)
}

func TestSeedFingerprintNoTables(t *testing.T) {
	s := openSeeded(t)
	_, err := s.SeedFingerprint(context.Background(), nil)
	require.Error(t, err)
}

func TestNamedArgsRestrictsToReferenced(t *testing.T) {
	params := map[string]any{"threshold": 1.5, "min_volume": int64(1000), "unused": "x"}

	args := NamedArgs(params, []string{"threshold", "threshold", "absent"})
	require.Len(t, args, 1)
	named, ok := args[0].(sql.NamedArg)
	require.True(t, ok)
	assert.Equal(t, "threshold", named.Name)
	assert.Equal(t, 1.5, named.Value)
}

func TestCanaryCleansUp(t *testing.T) {
	s := openSeeded(t)
	ctx := context.Background()

	require.NoError(t, s.Canary(ctx))

	// The namespace table exists but holds no leftover rows.
	var n int
	err := s.DB().QueryRow(`SELECT COUNT(*) FROM driftwatch_canary`).Scan(&n)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Seed data untouched.
	err = s.DB().QueryRow(`SELECT COUNT(*) FROM market_ticks`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
