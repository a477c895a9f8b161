package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/store"
)

// OracleStaleError means the fingerprint no longer matches: the query,
// configuration, or seed fixture changed without regenerating the
// artifact. Distinct from OracleMismatchError so operators can tell
// "regenerate the oracle" apart from "the engine regressed".
type OracleStaleError struct {
	ArtifactFingerprint string
	CurrentFingerprint  string
}

func (e *OracleStaleError) Error() string {
	return fmt.Sprintf("oracle stale: artifact fingerprint %s does not match current inputs %s; regenerate the oracle if the canon change was intentional",
		short(e.ArtifactFingerprint), short(e.CurrentFingerprint))
}

// OracleMismatchError means the inputs are unchanged but the live result
// diverged from the golden rows: a logic regression. Carries the first
// differing rows, not just a count.
type OracleMismatchError struct {
	Diffs     []RowDiff
	Truncated int // differing rows beyond the reported ones
}

// RowDiff is one divergent row position. Expected or Actual is nil when
// one side has no row at that index.
type RowDiff struct {
	Index    int
	Expected []string
	Actual   []string
}

func (e *OracleMismatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "oracle mismatch: %d differing row(s)", len(e.Diffs)+e.Truncated)
	for _, d := range e.Diffs {
		fmt.Fprintf(&b, "\n  row %d: expected %s, got %s", d.Index, renderRow(d.Expected), renderRow(d.Actual))
	}
	if e.Truncated > 0 {
		fmt.Fprintf(&b, "\n  ... and %d more", e.Truncated)
	}
	return b.String()
}

func renderRow(cells []string) string {
	if cells == nil {
		return "<no row>"
	}
	return "[" + strings.Join(cells, " | ") + "]"
}

func short(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

// IsStale reports whether err is (or wraps) an OracleStaleError.
func IsStale(err error) bool {
	var se *OracleStaleError
	return errors.As(err, &se)
}

// IsMismatch reports whether err is (or wraps) an OracleMismatchError.
func IsMismatch(err error) bool {
	var me *OracleMismatchError
	return errors.As(err, &me)
}

// Compare re-executes the decision query under current inputs and checks
// it row-for-row, in order, against the persisted artifact.
//
// The fingerprint check comes first: a comparison against a stale
// artifact is not meaningful, so staleness preempts any value diff.
// maxDiffs bounds how many divergent rows the mismatch error carries.
func Compare(ctx context.Context, st *store.Store, doc *config.Document, queryText, path string, maxDiffs int) error {
	artifact, err := ReadArtifact(path)
	if err != nil {
		return err
	}

	current, err := Fingerprint(ctx, st, doc, queryText)
	if err != nil {
		return err
	}
	if current != artifact.Fingerprint {
		return &OracleStaleError{
			ArtifactFingerprint: artifact.Fingerprint,
			CurrentFingerprint:  current,
		}
	}

	rs, err := ExecuteDecision(ctx, st, doc, queryText)
	if err != nil {
		return fmt.Errorf("oracle: execute decision query: %w", err)
	}
	live := EncodeResult(rs)

	if strings.Join(live.Columns, "\t") != strings.Join(artifact.Columns, "\t") {
		return &OracleMismatchError{Diffs: []RowDiff{{
			Index:    -1,
			Expected: artifact.Columns,
			Actual:   live.Columns,
		}}}
	}

	if maxDiffs <= 0 {
		maxDiffs = 5
	}
	var diffs []RowDiff
	truncated := 0
	n := len(artifact.Rows)
	if len(live.Rows) > n {
		n = len(live.Rows)
	}
	for i := 0; i < n; i++ {
		var expected, actual []string
		if i < len(artifact.Rows) {
			expected = artifact.Rows[i]
		}
		if i < len(live.Rows) {
			actual = live.Rows[i]
		}
		if rowsEqual(expected, actual) {
			continue
		}
		if len(diffs) < maxDiffs {
			diffs = append(diffs, RowDiff{Index: i, Expected: expected, Actual: actual})
		} else {
			truncated++
		}
	}
	if len(diffs) > 0 {
		return &OracleMismatchError{Diffs: diffs, Truncated: truncated}
	}
	return nil
}

func rowsEqual(a, b []string) bool {
	if a == nil || b == nil || len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
