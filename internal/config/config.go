// Package config loads and models the harness configuration document.
//
// The document is YAML on disk, validated structurally against an embedded
// CUE schema, and held in memory as a tagged variant tree (Value). The
// decision_params subtree is the canon: every scalar leaf under it is a
// candidate banned value for the literal-ban guard and a bound parameter
// for query execution.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/driftwatch/driftwatch/internal/canon"
)

// Kind discriminates the variant arms of Value.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindBool
	KindString
	KindMapping
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a tagged variant over the YAML data model. Exactly the fields
// matching Kind are meaningful; Mapping preserves document key order via
// Keys so canonical serialization stays independent of map iteration.
type Value struct {
	Kind Kind

	Int    int64
	Float  float64
	Bool   bool
	Str    string
	Keys   []string
	Fields map[string]*Value
	Items  []*Value
}

// ConfigParseError reports a malformed document or a missing/invalid
// designated subtree.
type ConfigParseError struct {
	Path   string // dotted path into the document, empty for whole-document errors
	Reason string
	Err    error
}

func (e *ConfigParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config: %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("config: %s", e.Reason)
}

func (e *ConfigParseError) Unwrap() error { return e.Err }

// Document is the loaded, validated configuration. Immutable after Load.
type Document struct {
	root *Value
	raw  []byte
}

// Load reads, validates, and parses the configuration file at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigParseError{Reason: fmt.Sprintf("read %s: %v", path, err), Err: err}
	}
	return Parse(data)
}

// Parse validates and parses raw YAML configuration bytes.
func Parse(data []byte) (*Document, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, &ConfigParseError{Reason: fmt.Sprintf("invalid YAML: %v", err), Err: err}
	}
	if node.Kind == 0 || len(node.Content) == 0 {
		return nil, &ConfigParseError{Reason: "empty document"}
	}

	root, err := fromNode(node.Content[0])
	if err != nil {
		return nil, err
	}
	if root.Kind != KindMapping {
		return nil, &ConfigParseError{Reason: fmt.Sprintf("top level must be a mapping, got %s", root.Kind)}
	}

	doc := &Document{root: root, raw: data}
	if doc.DecisionParams() == nil {
		return nil, &ConfigParseError{Path: "decision_params", Reason: "designated subtree is absent"}
	}
	return doc, nil
}

// fromNode converts a decoded yaml.Node into the variant tree.
func fromNode(n *yaml.Node) (*Value, error) {
	switch n.Kind {
	case yaml.MappingNode:
		v := &Value{Kind: KindMapping, Fields: make(map[string]*Value, len(n.Content)/2)}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			child, err := fromNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			if _, dup := v.Fields[key]; dup {
				return nil, &ConfigParseError{Path: key, Reason: "duplicate mapping key"}
			}
			v.Keys = append(v.Keys, key)
			v.Fields[key] = child
		}
		return v, nil
	case yaml.SequenceNode:
		v := &Value{Kind: KindSequence, Items: make([]*Value, 0, len(n.Content))}
		for _, item := range n.Content {
			child, err := fromNode(item)
			if err != nil {
				return nil, err
			}
			v.Items = append(v.Items, child)
		}
		return v, nil
	case yaml.ScalarNode:
		return fromScalar(n)
	case yaml.AliasNode:
		return fromNode(n.Alias)
	default:
		return nil, &ConfigParseError{Reason: fmt.Sprintf("unsupported YAML node kind %d at line %d", n.Kind, n.Line)}
	}
}

func fromScalar(n *yaml.Node) (*Value, error) {
	switch n.Tag {
	case "!!int":
		i, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return nil, &ConfigParseError{Reason: fmt.Sprintf("line %d: bad integer %q: %v", n.Line, n.Value, err), Err: err}
		}
		return &Value{Kind: KindInt, Int: i}, nil
	case "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, &ConfigParseError{Reason: fmt.Sprintf("line %d: bad float %q: %v", n.Line, n.Value, err), Err: err}
		}
		return &Value{Kind: KindFloat, Float: f}, nil
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		if err != nil {
			return nil, &ConfigParseError{Reason: fmt.Sprintf("line %d: bad bool %q: %v", n.Line, n.Value, err), Err: err}
		}
		return &Value{Kind: KindBool, Bool: b}, nil
	case "!!null":
		return nil, &ConfigParseError{Reason: fmt.Sprintf("line %d: null values are not allowed in configuration", n.Line)}
	default:
		return &Value{Kind: KindString, Str: n.Value}, nil
	}
}

// Lookup resolves a dotted path from the document root. Returns nil when
// any segment is missing. Sequence elements are not addressable by path.
func (d *Document) Lookup(path string) *Value {
	return d.root.lookup(path)
}

func (v *Value) lookup(path string) *Value {
	cur := v
	for path != "" {
		if cur == nil || cur.Kind != KindMapping {
			return nil
		}
		seg := path
		rest := ""
		for i := 0; i < len(path); i++ {
			if path[i] == '.' {
				seg, rest = path[:i], path[i+1:]
				break
			}
		}
		cur = cur.Fields[seg]
		path = rest
	}
	return cur
}

// DecisionParams returns the designated decision-parameters subtree.
func (d *Document) DecisionParams() *Value {
	return d.Lookup("decision_params")
}

// SeedTables returns the configured seed dataset tables.
func (d *Document) SeedTables() []string {
	v := d.Lookup("seed.tables")
	if v == nil || v.Kind != KindSequence {
		return nil
	}
	tables := make([]string, 0, len(v.Items))
	for _, item := range v.Items {
		if item.Kind == KindString {
			tables = append(tables, item.Str)
		}
	}
	return tables
}

// BanStringPaths returns the dotted paths whose string and boolean leaves
// are decision-relevant and therefore banned. Per guard.ban_strings;
// arbitrary string leaves elsewhere are excluded to avoid pathological
// false positives.
func (d *Document) BanStringPaths() []string {
	v := d.Lookup("guard.ban_strings")
	if v == nil || v.Kind != KindSequence {
		return nil
	}
	paths := make([]string, 0, len(v.Items))
	for _, item := range v.Items {
		if item.Kind == KindString {
			paths = append(paths, item.Str)
		}
	}
	return paths
}

// SuppressionRules returns the raw context-tag to policy-name mapping
// from guard.suppression. The drift package interprets the names.
func (d *Document) SuppressionRules() map[string]string {
	v := d.Lookup("guard.suppression")
	if v == nil || v.Kind != KindMapping {
		return nil
	}
	rules := make(map[string]string, len(v.Keys))
	for _, k := range v.Keys {
		if f := v.Fields[k]; f.Kind == KindString {
			rules[k] = f.Str
		}
	}
	return rules
}

// JustificationMarker returns the comment marker that suppresses an
// occurrence under the annotate policy. Defaults to "drift:allow".
func (d *Document) JustificationMarker() string {
	if v := d.Lookup("guard.justification_marker"); v != nil && v.Kind == KindString {
		return v.Str
	}
	return "drift:allow"
}

// MaxDiffRows returns how many differing rows an oracle mismatch reports.
func (d *Document) MaxDiffRows() int {
	if v := d.Lookup("guard.max_diff_rows"); v != nil && v.Kind == KindInt && v.Int > 0 {
		return int(v.Int)
	}
	return 5
}

// OracleArtifactPath returns the configured artifact location.
func (d *Document) OracleArtifactPath() string {
	if v := d.Lookup("oracle.artifact"); v != nil && v.Kind == KindString {
		return v.Str
	}
	return "oracle.tsv"
}

// BindParams flattens the decision_params subtree into named SQL
// parameters. Nested mapping keys join with underscores, so
// decision_params.exit.margin binds as :exit_margin. Sequences are not
// bindable and are skipped.
func (d *Document) BindParams() map[string]any {
	params := make(map[string]any)
	flattenBind("", d.DecisionParams(), params)
	return params
}

func flattenBind(prefix string, v *Value, out map[string]any) {
	if v == nil {
		return
	}
	switch v.Kind {
	case KindMapping:
		for _, k := range v.Keys {
			key := k
			if prefix != "" {
				key = prefix + "_" + k
			}
			flattenBind(key, v.Fields[k], out)
		}
	case KindInt:
		out[prefix] = v.Int
	case KindFloat:
		out[prefix] = v.Float
	case KindBool:
		out[prefix] = v.Bool
	case KindString:
		out[prefix] = v.Str
	}
}

// Canonical converts the whole document into the canonical data model for
// fingerprinting: mappings to map[string]any, sequences to []any, floats
// to their normalized decimal strings (canonical JSON forbids floats).
func (d *Document) Canonical() any {
	return canonicalValue(d.root)
}

func canonicalValue(v *Value) any {
	switch v.Kind {
	case KindMapping:
		m := make(map[string]any, len(v.Keys))
		for _, k := range v.Keys {
			m[k] = canonicalValue(v.Fields[k])
		}
		return m
	case KindSequence:
		s := make([]any, len(v.Items))
		for i, item := range v.Items {
			s[i] = canonicalValue(item)
		}
		return s
	case KindInt:
		return v.Int
	case KindFloat:
		return canon.NormalizeFloat(v.Float)
	case KindBool:
		return v.Bool
	case KindString:
		return v.Str
	default:
		return nil
	}
}
