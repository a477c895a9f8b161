package config

import (
	"sort"
	"strconv"
	"strings"

	"github.com/driftwatch/driftwatch/internal/canon"
)

// BanSet holds normalized banned values keyed by canonical form, each
// mapped to the config path that contributed it (for diagnostics).
type BanSet map[string]string

// Has reports whether a normalized value is banned.
func (s BanSet) Has(normalized string) bool {
	_, ok := s[normalized]
	return ok
}

// Values returns the banned values in sorted order.
func (s BanSet) Values() []string {
	vals := make([]string, 0, len(s))
	for v := range s {
		vals = append(vals, v)
	}
	sort.Strings(vals)
	return vals
}

// ExtractBanned walks the decision_params subtree depth-first and
// collects every numeric scalar leaf, normalized so that 1.5, 1.50 and
// +1.5 collide to one banned value. String and boolean leaves are
// collected only under paths listed in guard.ban_strings.
//
// Returns ConfigParseError when the designated subtree is absent (cannot
// happen for documents produced by Parse, which checks it, but callers
// may construct documents from other sources in tests).
func (d *Document) ExtractBanned() (BanSet, error) {
	params := d.DecisionParams()
	if params == nil {
		return nil, &ConfigParseError{Path: "decision_params", Reason: "designated subtree is absent"}
	}

	stringPaths := d.BanStringPaths()
	set := make(BanSet)
	collectBanned("decision_params", params, stringPaths, set)
	return set, nil
}

func collectBanned(path string, v *Value, stringPaths []string, out BanSet) {
	switch v.Kind {
	case KindMapping:
		for _, k := range v.Keys {
			collectBanned(path+"."+k, v.Fields[k], stringPaths, out)
		}
	case KindSequence:
		for i, item := range v.Items {
			collectBanned(path+"["+strconv.Itoa(i)+"]", item, stringPaths, out)
		}
	case KindInt:
		record(out, canon.NormalizeInt(v.Int), path)
	case KindFloat:
		record(out, canon.NormalizeFloat(v.Float), path)
	case KindString:
		if underAny(path, stringPaths) {
			record(out, v.Str, path)
		}
	case KindBool:
		if underAny(path, stringPaths) {
			record(out, strconv.FormatBool(v.Bool), path)
		}
	}
}

// record keeps the first contributing path for a value. Later duplicates
// are still banned; only the diagnostic attribution differs.
func record(out BanSet, normalized, path string) {
	if _, ok := out[normalized]; !ok {
		out[normalized] = path
	}
}

// underAny reports whether path equals or descends from any listed path.
// Sequence indices on the occurrence path do not break prefix matching.
func underAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p {
			return true
		}
		if strings.HasPrefix(path, p) {
			rest := path[len(p):]
			if rest[0] == '.' || rest[0] == '[' {
				return true
			}
		}
	}
	return false
}
