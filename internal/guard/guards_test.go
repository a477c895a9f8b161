package guard

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/oracle"
	"github.com/driftwatch/driftwatch/internal/store"
)

const guardTestConfig = `
decision_params:
  threshold: 1.0
  min_volume: 400
seed:
  tables: [market_ticks]
`

const goodQuery = `SELECT symbol, price FROM market_ticks WHERE price > :threshold AND volume >= :min_volume ORDER BY symbol`

// newEnv builds a run environment over a seeded in-memory database with a
// freshly generated oracle artifact.
func newEnv(t *testing.T, queryText string) *Env {
	t.Helper()

	s, err := store.Open(":memory:")
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

	doc, err := config.Parse([]byte(guardTestConfig))
	require.NoError(t, err)

	artifact := filepath.Join(t.TempDir(), "oracle.tsv")
	_, err = oracle.Generate(context.Background(), s, doc, queryText, artifact)
	require.NoError(t, err)

	return &Env{
		Store:        s,
		Config:       doc,
		QueryText:    queryText,
		ArtifactPath: artifact,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestFullSequencePasses(t *testing.T) {
	env := newEnv(t, goodQuery)

	report := NewRunner().Run(context.Background(), env)

	for _, v := range report.Verdicts {
		assert.Equal(t, StatusPass, v.Status, "guard %s: %s", v.Guard, v.Detail)
	}
	assert.True(t, report.Pass())
	assert.Len(t, report.Verdicts, 8)
}

func TestLiteralBanGuardCatchesHardcodedThreshold(t *testing.T) {
	// The hardcoded 1.0 matches the configured threshold.
	env := newEnv(t, `SELECT symbol, price FROM market_ticks WHERE price > 1.0 AND volume >= :min_volume ORDER BY symbol`)

	v := LiteralBanGuard{}.Run(context.Background(), env)
	assert.Equal(t, StatusFail, v.Status)
	assert.Contains(t, v.Detail, "banned value 1 ")
	assert.Contains(t, v.Detail, "decision_params.threshold")
}

func TestSensitivityGuardCatchesInertParameter(t *testing.T) {
	// threshold is hardcoded away: only min_volume is bound, and the
	// query no longer responds to threshold at all. The guard flags the
	// query the moment a referenced parameter stops mattering; here we
	// make min_volume inert by comparing it against itself.
	env := newEnv(t, `SELECT symbol FROM market_ticks WHERE :min_volume >= :min_volume ORDER BY symbol`)

	v := SensitivityGuard{}.Run(context.Background(), env)
	assert.Equal(t, StatusFail, v.Status)
	assert.Contains(t, v.Detail, "min_volume")
}

func TestSensitivityGuardRequiresSomeBinding(t *testing.T) {
	env := newEnv(t, `SELECT symbol FROM market_ticks WHERE price > 1.0 ORDER BY symbol`)

	v := SensitivityGuard{}.Run(context.Background(), env)
	assert.Equal(t, StatusFail, v.Status)
	assert.Contains(t, v.Detail, "binds no decision parameters")
}

func TestSchemaGuardMissingTable(t *testing.T) {
	env := newEnv(t, goodQuery)
	doc, err := config.Parse([]byte("decision_params: {threshold: 1.0}\nseed: {tables: [phantom]}\n"))
	require.NoError(t, err)
	env.Config = doc

	v := SchemaGuard{}.Run(context.Background(), env)
	assert.Equal(t, StatusFail, v.Status)
	assert.Contains(t, v.Detail, "phantom")
}

func TestSyntaxGuardRejectsBrokenQuery(t *testing.T) {
	env := newEnv(t, goodQuery)
	env.QueryText = "SELEKT broken FORM"

	v := SyntaxGuard{}.Run(context.Background(), env)
	assert.Equal(t, StatusFail, v.Status)
}

func TestOrderingGuardRequiresTopLevelOrderBy(t *testing.T) {
	env := newEnv(t, goodQuery)
	env.QueryText = "SELECT symbol FROM market_ticks WHERE price > :threshold"

	v := OrderingGuard{}.Run(context.Background(), env)
	assert.Equal(t, StatusFail, v.Status)
	assert.Contains(t, v.Detail, "ORDER BY")
}

func TestOracleGuardStaleArtifact(t *testing.T) {
	env := newEnv(t, goodQuery)

	// Changing a seed row after generation makes the artifact stale.
	_, err := env.Store.DB().Exec(`UPDATE market_ticks SET price = 9.99 WHERE symbol = 'AAA'`)
	require.NoError(t, err)

	v := OracleGuard{}.Run(context.Background(), env)
	assert.Equal(t, StatusFail, v.Status)
	assert.Contains(t, v.Detail, "oracle stale")
}

func TestCanaryGuardPassesAndCleansUp(t *testing.T) {
	env := newEnv(t, goodQuery)

	v := CanaryGuard{}.Run(context.Background(), env)
	require.Equal(t, StatusPass, v.Status, v.Detail)

	var n int
	require.NoError(t, env.Store.DB().QueryRow(`SELECT COUNT(*) FROM driftwatch_canary`).Scan(&n))
	assert.Zero(t, n)
}
