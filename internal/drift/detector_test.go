package drift

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/scanner"
)

func mustDoc(t *testing.T, yaml string) *config.Document {
	t.Helper()
	doc, err := config.Parse([]byte(yaml))
	require.NoError(t, err)
	return doc
}

func detect(t *testing.T, doc *config.Document, query string) []Finding {
	t.Helper()
	banned, err := doc.ExtractBanned()
	require.NoError(t, err)
	occ, err := scanner.Scan(query)
	require.NoError(t, err)
	policy, err := PolicyFromConfig(doc)
	require.NoError(t, err)
	return Detect(banned, occ, query, policy)
}

const thresholdConfig = "decision_params: {threshold: 1.50}\nseed: {tables: [ticks]}\n"

func TestDetectHardcodedThreshold(t *testing.T) {
	// Scenario A: configured threshold 1.50, query writes 1.5 in WHERE.
	doc := mustDoc(t, thresholdConfig)
	findings := detect(t, doc, "SELECT * FROM ticks WHERE price > 1.5 ORDER BY ts")

	require.Len(t, findings, 1)
	assert.Equal(t, "1.5", findings[0].Value)
	assert.Equal(t, "1.5", findings[0].Lexeme)
	assert.Equal(t, 1, findings[0].Line)
	assert.Equal(t, "decision_params.threshold", findings[0].Origin)
	assert.Equal(t, scanner.CtxNumericLiteral, findings[0].Context)
}

func TestDetectBoundParameterPasses(t *testing.T) {
	// Scenario B: same configuration, threshold referenced only via a
	// bound parameter.
	doc := mustDoc(t, thresholdConfig)
	findings := detect(t, doc, "SELECT * FROM ticks WHERE price > :threshold ORDER BY ts")
	assert.Empty(t, findings)
}

func TestDetectInsertRemoveRoundTrip(t *testing.T) {
	doc := mustDoc(t, thresholdConfig)

	drifted := "SELECT * FROM ticks WHERE price > 1.50"
	clean := "SELECT * FROM ticks WHERE price > :threshold"

	require.Len(t, detect(t, doc, drifted), 1)
	assert.Empty(t, detect(t, doc, clean))
}

func TestDetectCommentsSuppressed(t *testing.T) {
	doc := mustDoc(t, thresholdConfig)
	findings := detect(t, doc, "SELECT * FROM ticks -- threshold used to be 1.5\nWHERE price > :threshold")
	assert.Empty(t, findings)
}

func TestDetectUnrelatedLiteralsIgnored(t *testing.T) {
	doc := mustDoc(t, thresholdConfig)
	findings := detect(t, doc, "SELECT * FROM ticks WHERE volume > 42 LIMIT 10")
	assert.Empty(t, findings)
}

func TestDetectStringLiteralNeedsJustification(t *testing.T) {
	doc := mustDoc(t, `
decision_params: {threshold: 1.50, regime: trending}
seed: {tables: [ticks]}
guard: {ban_strings: [decision_params.regime]}
`)

	unjustified := "SELECT * FROM ticks WHERE regime = 'trending'"
	findings := detect(t, doc, unjustified)
	require.Len(t, findings, 1)
	assert.Equal(t, "trending", findings[0].Value)
	assert.Equal(t, scanner.CtxStringLiteral, findings[0].Context)

	justified := "SELECT * FROM ticks WHERE regime = 'trending' -- drift:allow seed label"
	assert.Empty(t, detect(t, doc, justified))
}

func TestDetectConfiguredSuppressionOverride(t *testing.T) {
	// Harden string literals from annotate to never: the marker stops
	// helping.
	doc := mustDoc(t, `
decision_params: {regime: trending}
seed: {tables: [ticks]}
guard:
  ban_strings: [decision_params.regime]
  suppression: {string-literal: never}
`)

	justified := "SELECT * FROM ticks WHERE regime = 'trending' -- drift:allow"
	findings := detect(t, doc, justified)
	require.Len(t, findings, 1)
}

func TestDetectUnknownContextDefaultsToReport(t *testing.T) {
	banned := config.BanSet{"1.5": "decision_params.threshold"}
	occ := []scanner.Occurrence{{Value: "1.5", Lexeme: "1.5", Line: 1, Col: 1, Context: "future-context"}}

	findings := Detect(banned, occ, "1.5", DefaultPolicy())
	require.Len(t, findings, 1)
}

func TestDetectNormalizedCollision(t *testing.T) {
	// Config says 1.50, query says 1.5000, still the same value.
	doc := mustDoc(t, thresholdConfig)
	findings := detect(t, doc, "SELECT * FROM ticks WHERE price > 1.5000")
	require.Len(t, findings, 1)
	assert.Equal(t, "1.5", findings[0].Value)
	assert.Equal(t, "1.5000", findings[0].Lexeme)
}

func TestFindingErrorListsEveryFinding(t *testing.T) {
	doc := mustDoc(t, "decision_params: {threshold: 1.50, min_volume: 400}\nseed: {tables: [ticks]}\n")
	findings := detect(t, doc, "SELECT 1 FROM ticks WHERE price > 1.5 AND volume >= 400")
	require.Len(t, findings, 2)

	var err error = &FindingError{Findings: findings}
	assert.True(t, IsFinding(err))
	assert.Contains(t, err.Error(), "banned value 1.5")
	assert.Contains(t, err.Error(), "banned value 400")
	assert.False(t, IsFinding(assert.AnError))
}

func TestDetectNegativeBannedValue(t *testing.T) {
	doc := mustDoc(t, "decision_params: {stop_loss: -2.5}\nseed: {tables: [ticks]}\n")

	findings := detect(t, doc, "SELECT * FROM ticks WHERE price < -2.5 ORDER BY ts")
	require.Len(t, findings, 1)
	assert.Equal(t, "-2.5", findings[0].Value)
	assert.Equal(t, "decision_params.stop_loss", findings[0].Origin)

	// Whitespace between the sign and the magnitude still matches.
	findings = detect(t, doc, "SELECT * FROM ticks WHERE price < - 2.5 ORDER BY ts")
	require.Len(t, findings, 1)
	assert.Equal(t, "-2.5", findings[0].Value)
}

func TestDetectNegativeBannedValueSubtractionReported(t *testing.T) {
	// price - 2.5 is lexically indistinguishable from a negated literal
	// without a full parser; it is reported rather than silently passed.
	doc := mustDoc(t, "decision_params: {stop_loss: -2.5}\nseed: {tables: [ticks]}\n")
	findings := detect(t, doc, "SELECT price - 2.5 FROM ticks ORDER BY ts")
	require.Len(t, findings, 1)
	assert.Equal(t, "-2.5", findings[0].Value)
}

func TestDetectBareMagnitudeNotBanned(t *testing.T) {
	// Banning -2.5 does not ban 2.5 itself.
	doc := mustDoc(t, "decision_params: {stop_loss: -2.5}\nseed: {tables: [ticks]}\n")
	findings := detect(t, doc, "SELECT * FROM ticks WHERE price > 2.5 ORDER BY ts")
	assert.Empty(t, findings)
}
