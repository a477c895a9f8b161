// Package drift intersects the banned-value set against scanned literal
// occurrences under a suppression policy.
//
// The detector is static and deterministic. It never executes the query
// or touches the database; it is the second line of defense behind the
// parameter-sensitivity guard, which does execute it.
package drift

import (
	"errors"
	"fmt"
	"strings"

	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/scanner"
)

// Mode is the suppression decision for one lexical context.
type Mode int

const (
	// Never reports matching occurrences unconditionally.
	Never Mode = iota
	// Always suppresses matching occurrences.
	Always
	// WithJustification suppresses only occurrences whose source line
	// carries the justification marker in a trailing comment.
	WithJustification
)

// Policy maps a lexical context tag to its suppression mode. Context tags
// absent from the map default to Never, so unknown contexts err toward
// reporting.
type Policy struct {
	Modes  map[string]Mode
	Marker string // justification marker, e.g. "drift:allow"
}

// DefaultPolicy bans numeric literals outright, requires justification for
// string literals, and allows comments, quoted identifiers, and bound
// parameters.
func DefaultPolicy() Policy {
	return Policy{
		Modes: map[string]Mode{
			scanner.CtxNumericLiteral:   Never,
			scanner.CtxStringLiteral:    WithJustification,
			scanner.CtxLineComment:      Always,
			scanner.CtxBlockComment:     Always,
			scanner.CtxQuotedIdentifier: Always,
			scanner.CtxParameter:        Always,
		},
		Marker: "drift:allow",
	}
}

// PolicyFromConfig overlays configured suppression rules onto the default
// policy. Unknown mode names fail so a typo cannot silently widen
// suppression.
func PolicyFromConfig(doc *config.Document) (Policy, error) {
	p := DefaultPolicy()
	p.Marker = doc.JustificationMarker()
	for tag, name := range doc.SuppressionRules() {
		switch name {
		case "allow":
			p.Modes[tag] = Always
		case "annotate":
			p.Modes[tag] = WithJustification
		case "never":
			p.Modes[tag] = Never
		default:
			return Policy{}, fmt.Errorf("drift: unknown suppression mode %q for context %q", name, tag)
		}
	}
	return p, nil
}

// Finding is one banned value discovered in query text.
type Finding struct {
	Value   string // normalized banned value
	Lexeme  string // literal as written in the query
	Line    int
	Col     int
	Context string
	Origin  string // config path that banned the value
}

func (f Finding) String() string {
	return fmt.Sprintf("%d:%d: banned value %s appears as %q (%s, from %s)",
		f.Line, f.Col, f.Value, f.Lexeme, f.Context, f.Origin)
}

// FindingError reports one or more unsuppressed drift findings as a
// single error, one finding per line.
type FindingError struct {
	Findings []Finding
}

func (e *FindingError) Error() string {
	lines := make([]string, len(e.Findings))
	for i, f := range e.Findings {
		lines[i] = f.String()
	}
	return fmt.Sprintf("banned configuration value(s) hardcoded in query:\n  %s",
		strings.Join(lines, "\n  "))
}

// IsFinding reports whether err is a drift finding error.
func IsFinding(err error) bool {
	var fe *FindingError
	return errors.As(err, &fe)
}

// Detect intersects occurrences against the banned set under the policy
// and returns every unsuppressed finding, in occurrence order.
func Detect(banned config.BanSet, occurrences []scanner.Occurrence, queryText string, policy Policy) []Finding {
	lines := strings.Split(queryText, "\n")

	var findings []Finding
	for _, occ := range occurrences {
		value := occ.Value
		if !banned.Has(value) {
			// The tokenizer emits a negative literal as a bare magnitude
			// (the minus sign is an operator). Fold the sign back in when
			// the negated magnitude is banned; a subtraction against the
			// magnitude is reported too rather than silently passed.
			if occ.Context != scanner.CtxNumericLiteral || !banned.Has("-"+value) ||
				!precededByMinus(lines, occ.Line, occ.Col) {
				continue
			}
			value = "-" + value
		}
		switch policy.Modes[occ.Context] {
		case Always:
			continue
		case WithJustification:
			if lineJustified(lines, occ.Line, policy.Marker) {
				continue
			}
		}
		findings = append(findings, Finding{
			Value:   value,
			Lexeme:  occ.Lexeme,
			Line:    occ.Line,
			Col:     occ.Col,
			Context: occ.Context,
			Origin:  banned[value],
		})
	}
	return findings
}

// precededByMinus reports whether a minus sign sits immediately before
// the lexeme at the 1-based position, skipping horizontal whitespace.
func precededByMinus(lines []string, line, col int) bool {
	if line < 1 || line > len(lines) {
		return false
	}
	s := lines[line-1]
	i := col - 2
	if i >= len(s) {
		return false
	}
	for i >= 0 && (s[i] == ' ' || s[i] == '\t') {
		i--
	}
	return i >= 0 && s[i] == '-'
}

// lineJustified reports whether the 1-based source line carries the
// justification marker. The marker is expected inside a comment on the
// same line; its exact placement within the line is not constrained.
func lineJustified(lines []string, line int, marker string) bool {
	if marker == "" || line < 1 || line > len(lines) {
		return false
	}
	return strings.Contains(lines[line-1], marker)
}
