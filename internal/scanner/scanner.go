// Package scanner tokenizes decision-query source text into literal
// occurrences for the literal-ban guard.
//
// The scanner never evaluates the query. It walks the source once,
// tracking line/column, and classifies every literal-shaped region with a
// lexical context tag. Policy decisions (is a literal inside a comment
// acceptable?) belong to the drift package; the scanner errs toward
// reporting, so literals inside comments and strings are still emitted,
// tagged with their context, rather than silently dropped.
package scanner

import (
	"fmt"
	"strings"

	"github.com/driftwatch/driftwatch/internal/canon"
)

// Context tags attached to occurrences. The drift suppression policy is
// keyed on these.
const (
	CtxNumericLiteral   = "numeric-literal"
	CtxStringLiteral    = "string-literal"
	CtxQuotedIdentifier = "quoted-identifier"
	CtxLineComment      = "line-comment"
	CtxBlockComment     = "block-comment"
	CtxParameter        = "parameter"
)

// Occurrence is one literal found in query text.
type Occurrence struct {
	Value   string // normalized value (canonical decimal for numerics)
	Lexeme  string // raw source text as written
	Line    int    // 1-based
	Col     int    // 1-based byte offset within the line
	Context string // one of the Ctx* tags
}

// ScanError reports unparsable query text. The scanner only fails on
// truncated constructs (unterminated string, quoted identifier, or block
// comment); everything else is representable as tagged occurrences.
type ScanError struct {
	Line   int
	Col    int
	Reason string
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan: %d:%d: %s", e.Line, e.Col, e.Reason)
}

type scanner struct {
	src  string
	pos  int
	line int
	col  int
	occ  []Occurrence
}

// Scan produces the ordered sequence of literal occurrences in src.
func Scan(src string) ([]Occurrence, error) {
	s := &scanner{src: src, line: 1, col: 1}
	if err := s.run(); err != nil {
		return nil, err
	}
	return s.occ, nil
}

func (s *scanner) run() error {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '-' && s.peek(1) == '-':
			s.lineComment()
		case c == '/' && s.peek(1) == '*':
			if err := s.blockComment(); err != nil {
				return err
			}
		case c == '\'':
			if err := s.stringLiteral(); err != nil {
				return err
			}
		case c == '"' || c == '`':
			if err := s.quotedIdentifier(c); err != nil {
				return err
			}
		case c == '[':
			// SQL Server style [identifier]; a lone '[' is punctuation.
			if !s.bracketIdentifier() {
				s.advance(1)
			}
		case c == ':' && s.peek(1) == ':':
			// Cast operator, not a parameter sigil.
			s.advance(2)
		case c == ':' || c == '@' || c == '$':
			if !s.parameter(c) {
				s.advance(1)
			}
		case c == '?':
			s.emit(Occurrence{Value: "?", Lexeme: "?", Line: s.line, Col: s.col, Context: CtxParameter})
			s.advance(1)
		case isDigit(c) || (c == '.' && isDigit(s.peek(1))):
			s.number(CtxNumericLiteral)
		case isIdentStart(c):
			s.identifier()
		default:
			s.advance(1)
		}
	}
	return nil
}

func (s *scanner) peek(off int) byte {
	if s.pos+off < len(s.src) {
		return s.src[s.pos+off]
	}
	return 0
}

func (s *scanner) advance(n int) {
	for i := 0; i < n && s.pos < len(s.src); i++ {
		if s.src[s.pos] == '\n' {
			s.line++
			s.col = 1
		} else {
			s.col++
		}
		s.pos++
	}
}

func (s *scanner) emit(o Occurrence) {
	s.occ = append(s.occ, o)
}

// lineComment consumes -- to end of line, scanning its interior for
// numeric lexemes so drift inside comments is still visible to policy.
func (s *scanner) lineComment() {
	s.advance(2)
	s.commentBody(CtxLineComment, func() bool { return s.pos < len(s.src) && s.src[s.pos] != '\n' })
}

func (s *scanner) blockComment() error {
	startLine, startCol := s.line, s.col
	s.advance(2)
	terminated := false
	s.commentBody(CtxBlockComment, func() bool {
		if s.src[s.pos] == '*' && s.peek(1) == '/' {
			terminated = true
			return false
		}
		return s.pos < len(s.src)
	})
	if !terminated {
		if s.pos >= len(s.src) {
			return &ScanError{Line: startLine, Col: startCol, Reason: "unterminated block comment"}
		}
	}
	s.advance(2) // closing */
	return nil
}

// commentBody walks a comment interior while cont() holds, emitting any
// numeric lexemes it contains under the given comment context.
func (s *scanner) commentBody(ctx string, cont func() bool) {
	for s.pos < len(s.src) && cont() {
		c := s.src[s.pos]
		switch {
		case isDigit(c) || (c == '.' && isDigit(s.peek(1))):
			s.number(ctx)
		case isIdentStart(c):
			s.identifier()
		default:
			s.advance(1)
		}
	}
}

// stringLiteral consumes a single-quoted SQL string with '' escapes.
// The occurrence value is the unescaped content, normalized to canonical
// decimal form when the whole content is numeric so '1.50' collides with
// a banned 1.5.
func (s *scanner) stringLiteral() error {
	startLine, startCol := s.line, s.col
	start := s.pos
	s.advance(1)
	var content strings.Builder
	for {
		if s.pos >= len(s.src) {
			return &ScanError{Line: startLine, Col: startCol, Reason: "unterminated string literal"}
		}
		c := s.src[s.pos]
		if c == '\'' {
			if s.peek(1) == '\'' {
				content.WriteByte('\'')
				s.advance(2)
				continue
			}
			s.advance(1)
			break
		}
		content.WriteByte(c)
		s.advance(1)
	}

	value := content.String()
	if norm, err := canon.NormalizeNumber(value); err == nil {
		value = norm
	}
	s.emit(Occurrence{
		Value:   value,
		Lexeme:  s.src[start:s.pos],
		Line:    startLine,
		Col:     startCol,
		Context: CtxStringLiteral,
	})
	return nil
}

// quotedIdentifier consumes "ident" or `ident`. Identifiers that merely
// resemble numbers (a column named "1.5") are reported under their own
// context, never as numeric literals.
func (s *scanner) quotedIdentifier(quote byte) error {
	startLine, startCol := s.line, s.col
	start := s.pos
	s.advance(1)
	for {
		if s.pos >= len(s.src) {
			return &ScanError{Line: startLine, Col: startCol, Reason: "unterminated quoted identifier"}
		}
		c := s.src[s.pos]
		if c == quote {
			if quote == '"' && s.peek(1) == '"' {
				s.advance(2)
				continue
			}
			s.advance(1)
			break
		}
		s.advance(1)
	}
	lexeme := s.src[start:s.pos]
	s.emit(Occurrence{
		Value:   strings.Trim(lexeme, string(quote)),
		Lexeme:  lexeme,
		Line:    startLine,
		Col:     startCol,
		Context: CtxQuotedIdentifier,
	})
	return nil
}

// bracketIdentifier consumes [ident] when it closes on the same scan;
// returns false to let the caller treat '[' as punctuation otherwise.
func (s *scanner) bracketIdentifier() bool {
	end := strings.IndexByte(s.src[s.pos:], ']')
	if end < 0 {
		return false
	}
	startLine, startCol := s.line, s.col
	lexeme := s.src[s.pos : s.pos+end+1]
	for i := 1; i < len(lexeme)-1; i++ {
		if !isIdentPart(lexeme[i]) && lexeme[i] != ' ' {
			return false
		}
	}
	s.advance(end + 1)
	s.emit(Occurrence{
		Value:   lexeme[1 : len(lexeme)-1],
		Lexeme:  lexeme,
		Line:    startLine,
		Col:     startCol,
		Context: CtxQuotedIdentifier,
	})
	return true
}

// parameter consumes :name, @name, or $name/$1 bound-parameter syntax.
// A bare sigil (e.g. the :: cast operator) is not a parameter.
func (s *scanner) parameter(sigil byte) bool {
	next := s.peek(1)
	if !isIdentStart(next) && !isDigit(next) {
		return false
	}
	startLine, startCol := s.line, s.col
	start := s.pos
	s.advance(1)
	for s.pos < len(s.src) && (isIdentPart(s.src[s.pos]) || isDigit(s.src[s.pos])) {
		s.advance(1)
	}
	lexeme := s.src[start:s.pos]
	s.emit(Occurrence{
		Value:   lexeme[1:],
		Lexeme:  lexeme,
		Line:    startLine,
		Col:     startCol,
		Context: CtxParameter,
	})
	return true
}

// number consumes an integer, decimal, or scientific-notation lexeme and
// emits it normalized under the given context.
func (s *scanner) number(ctx string) {
	startLine, startCol := s.line, s.col
	start := s.pos

	for s.pos < len(s.src) && isDigit(s.src[s.pos]) {
		s.advance(1)
	}
	if s.pos < len(s.src) && s.src[s.pos] == '.' && isDigit(s.peek(1)) {
		s.advance(1)
		for s.pos < len(s.src) && isDigit(s.src[s.pos]) {
			s.advance(1)
		}
	} else if s.pos < len(s.src) && s.src[s.pos] == '.' && start < s.pos {
		// Trailing dot as in "1.": consume it as part of the number.
		s.advance(1)
	}
	if s.pos < len(s.src) && (s.src[s.pos] == 'e' || s.src[s.pos] == 'E') {
		// Exponent only counts with a digit (optionally signed) after it.
		off := 1
		if s.peek(1) == '+' || s.peek(1) == '-' {
			off = 2
		}
		if isDigit(s.peek(off)) {
			s.advance(off)
			for s.pos < len(s.src) && isDigit(s.src[s.pos]) {
				s.advance(1)
			}
		}
	}

	lexeme := s.src[start:s.pos]
	value, err := canon.NormalizeNumber(strings.TrimSuffix(lexeme, "."))
	if err != nil {
		// Should be unreachable given the consumption rules above;
		// report the raw lexeme rather than dropping the region.
		value = lexeme
	}
	s.emit(Occurrence{
		Value:   value,
		Lexeme:  lexeme,
		Line:    startLine,
		Col:     startCol,
		Context: ctx,
	})
}

// identifier consumes a bare identifier without emitting anything.
// Digits inside identifiers (x15, sma_20) are not numeric literals.
func (s *scanner) identifier() {
	for s.pos < len(s.src) && isIdentPart(s.src[s.pos]) {
		s.advance(1)
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
