// Package oracle derives, persists, and verifies the golden expected
// output of the decision query on the seed dataset.
//
// The persisted artifact is a tab-separated file with a fingerprint
// header. The fingerprint covers the (query text, configuration, seed
// dataset) triple; a comparison is meaningful only while it matches, so
// staleness and value regression are distinct failure modes.
package oracle

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/driftwatch/driftwatch/internal/canon"
	"github.com/driftwatch/driftwatch/internal/store"
)

const (
	artifactMagic = "# driftwatch-oracle v1"
	fpPrefix      = "# fingerprint: "
	colPrefix     = "# columns: "
)

// Artifact is the persisted oracle: fingerprint plus the expected rows in
// the exact order the decision query returned them.
type Artifact struct {
	Fingerprint string
	Columns     []string
	Rows        [][]string // cells in encoded form
}

// EncodeResult converts a materialized result set into artifact rows.
func EncodeResult(rs *store.ResultSet) *Artifact {
	rows := make([][]string, len(rs.Rows))
	for i, row := range rs.Rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = encodeCell(cell)
		}
		rows[i] = cells
	}
	return &Artifact{Columns: append([]string(nil), rs.Columns...), Rows: rows}
}

// encodeCell renders a driver value as one TSV cell. NULL is \N (never
// collides with the text "\N", whose backslash gets escaped), integers
// and floats use canonical decimal form, blobs are hex.
func encodeCell(v any) string {
	switch val := v.(type) {
	case nil:
		return `\N`
	case int64:
		return canon.NormalizeInt(val)
	case float64:
		return canon.NormalizeFloat(val)
	case string:
		return escapeCell(val)
	case []byte:
		return `\x` + hex.EncodeToString(val)
	case bool:
		if val {
			return "1"
		}
		return "0"
	default:
		return escapeCell(fmt.Sprintf("%v", val))
	}
}

func escapeCell(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		"\t", `\t`,
		"\n", `\n`,
		"\r", `\r`,
	)
	return r.Replace(s)
}

// Marshal renders the artifact in its on-disk form. The rendering is
// deterministic byte-for-byte: regenerating from unchanged inputs yields
// an identical file.
func (a *Artifact) Marshal() []byte {
	var b strings.Builder
	b.WriteString(artifactMagic)
	b.WriteByte('\n')
	b.WriteString(fpPrefix)
	b.WriteString(a.Fingerprint)
	b.WriteByte('\n')
	b.WriteString(colPrefix)
	b.WriteString(strings.Join(a.Columns, "\t"))
	b.WriteByte('\n')
	for _, row := range a.Rows {
		b.WriteString(strings.Join(row, "\t"))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// ReadArtifact loads and parses a persisted oracle file.
func ReadArtifact(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("oracle: open artifact: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	if !sc.Scan() || sc.Text() != artifactMagic {
		return nil, fmt.Errorf("oracle: %s: missing %q header", path, artifactMagic)
	}
	if !sc.Scan() || !strings.HasPrefix(sc.Text(), fpPrefix) {
		return nil, fmt.Errorf("oracle: %s: missing fingerprint header", path)
	}
	fp := strings.TrimPrefix(sc.Text(), fpPrefix)
	if len(fp) != 64 {
		return nil, fmt.Errorf("oracle: %s: malformed fingerprint %q", path, fp)
	}
	if !sc.Scan() || !strings.HasPrefix(sc.Text(), colPrefix) {
		return nil, fmt.Errorf("oracle: %s: missing columns header", path)
	}
	cols := strings.Split(strings.TrimPrefix(sc.Text(), colPrefix), "\t")

	a := &Artifact{Fingerprint: fp, Columns: cols, Rows: [][]string{}}
	for sc.Scan() {
		cells := strings.Split(sc.Text(), "\t")
		if len(cells) != len(cols) {
			return nil, fmt.Errorf("oracle: %s: row %d has %d cells, want %d",
				path, len(a.Rows), len(cells), len(cols))
		}
		a.Rows = append(a.Rows, cells)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("oracle: read artifact: %w", err)
	}
	return a, nil
}
