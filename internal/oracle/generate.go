package oracle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/driftwatch/driftwatch/internal/canon"
	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/scanner"
	"github.com/driftwatch/driftwatch/internal/store"
)

// Fingerprint computes the content hash of the (query, configuration,
// seed dataset) triple. Any single-input change changes it.
func Fingerprint(ctx context.Context, st *store.Store, doc *config.Document, queryText string) (string, error) {
	seedFP, err := st.SeedFingerprint(ctx, doc.SeedTables())
	if err != nil {
		return "", err
	}
	return canon.HashCanonical(canon.DomainFingerprint, map[string]any{
		"query":  queryText,
		"config": doc.Canonical(),
		"seed":   seedFP,
	})
}

// ExecuteDecision runs the decision query with decision parameters bound
// as named SQL arguments. Only parameters the query actually references
// are bound; the scanner supplies the referenced names.
func ExecuteDecision(ctx context.Context, st *store.Store, doc *config.Document, queryText string) (*store.ResultSet, error) {
	occ, err := scanner.Scan(queryText)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, o := range occ {
		if o.Context == scanner.CtxParameter && o.Value != "?" {
			names = append(names, o.Value)
		}
	}
	args := store.NamedArgs(doc.BindParams(), names)
	return st.QueryAll(ctx, queryText, args...)
}

// GenerateStatus reports what Generate did.
type GenerateStatus int

const (
	// Written means a new or refreshed artifact was persisted.
	Written GenerateStatus = iota
	// UpToDate means the existing artifact's fingerprint already matches
	// the current inputs and it was left untouched.
	UpToDate
)

// Generate executes the decision query against the seed dataset and
// persists the result as the oracle artifact. This is an offline
// maintenance action invoked deliberately when the canon changes, never
// part of the continuous verification path.
//
// Idempotent: when an artifact already exists and its fingerprint matches
// the current triple, the file is not rewritten (the bytes would be
// identical anyway) and UpToDate is returned.
func Generate(ctx context.Context, st *store.Store, doc *config.Document, queryText, path string) (GenerateStatus, error) {
	fp, err := Fingerprint(ctx, st, doc, queryText)
	if err != nil {
		return 0, err
	}

	// An existing artifact with a matching fingerprint stays untouched.
	// A missing or corrupt artifact is regenerated.
	if existing, rerr := ReadArtifact(path); rerr == nil && existing.Fingerprint == fp {
		return UpToDate, nil
	}

	rs, err := ExecuteDecision(ctx, st, doc, queryText)
	if err != nil {
		return 0, fmt.Errorf("oracle: execute decision query: %w", err)
	}

	artifact := EncodeResult(rs)
	artifact.Fingerprint = fp

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("oracle: create artifact dir: %w", err)
		}
	}

	// Write-then-rename so a crashed generation never leaves a truncated
	// artifact behind.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, artifact.Marshal(), 0o644); err != nil {
		return 0, fmt.Errorf("oracle: write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("oracle: persist artifact: %w", err)
	}
	return Written, nil
}
