package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBannedCompleteness(t *testing.T) {
	// Every numeric leaf under decision_params, however nested, lands in
	// the set after normalization.
	doc, err := Parse([]byte(`
decision_params:
  threshold: 1.50
  exit_margin: 0.25
  min_volume: 1000
  windows:
    fast: 12
    slow: 26
  bands: [0.5, 1.0, 2.0]
seed:
  tables: [ticks]
`))
	require.NoError(t, err)

	set, err := doc.ExtractBanned()
	require.NoError(t, err)

	assert.Equal(t, []string{"0.25", "0.5", "1", "1.5", "1000", "12", "2", "26"}, set.Values())
}

func TestExtractBannedNormalizesSpellings(t *testing.T) {
	doc, err := Parse([]byte("decision_params: {a: 1.50, b: 1.5}\nseed: {tables: [t]}\n"))
	require.NoError(t, err)

	set, err := doc.ExtractBanned()
	require.NoError(t, err)

	// Both spellings collide to one banned value; attribution keeps the
	// first contributing path.
	assert.Equal(t, []string{"1.5"}, set.Values())
	assert.Equal(t, "decision_params.a", set["1.5"])
	assert.True(t, set.Has("1.5"))
	assert.False(t, set.Has("1.50"), "the set holds only normalized forms")
}

func TestExtractBannedStringsRequireFlag(t *testing.T) {
	unflagged, err := Parse([]byte(`
decision_params: {threshold: 1.5, regime: trending, note: free text label}
seed: {tables: [t]}
`))
	require.NoError(t, err)

	set, err := unflagged.ExtractBanned()
	require.NoError(t, err)
	assert.Equal(t, []string{"1.5"}, set.Values(), "arbitrary string leaves are excluded")

	flagged, err := Parse([]byte(`
decision_params: {threshold: 1.5, regime: trending, note: free text label}
seed: {tables: [t]}
guard: {ban_strings: [decision_params.regime]}
`))
	require.NoError(t, err)

	set, err = flagged.ExtractBanned()
	require.NoError(t, err)
	assert.Equal(t, []string{"1.5", "trending"}, set.Values())
}

func TestExtractBannedFlagCoversSubtree(t *testing.T) {
	doc, err := Parse([]byte(`
decision_params:
  labels: {buy: glue, sell: exit}
  toggle: true
seed: {tables: [t]}
guard: {ban_strings: [decision_params.labels, decision_params.toggle]}
`))
	require.NoError(t, err)

	set, err := doc.ExtractBanned()
	require.NoError(t, err)
	assert.Equal(t, []string{"exit", "glue", "true"}, set.Values())
}

func TestExtractBannedFlagPrefixIsPathwise(t *testing.T) {
	// decision_params.w must not accidentally cover decision_params.windows.
	doc, err := Parse([]byte(`
decision_params:
  windows: {label: fast}
seed: {tables: [t]}
guard: {ban_strings: [decision_params.w]}
`))
	require.NoError(t, err)

	set, err := doc.ExtractBanned()
	require.NoError(t, err)
	assert.Empty(t, set.Values())
}
