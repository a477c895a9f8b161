package scanner

import "strings"

// HasTopLevelOrderBy reports whether the query's outermost statement
// carries an explicit ORDER BY. ORDER BY inside subqueries or window
// frames (paren depth > 0) does not count; result order is contractual
// only when the outermost SELECT declares it.
func HasTopLevelOrderBy(src string) (bool, error) {
	words, err := bareWords(src)
	if err != nil {
		return false, err
	}
	for i := 0; i+1 < len(words); i++ {
		if words[i].depth == 0 &&
			strings.EqualFold(words[i].text, "ORDER") &&
			strings.EqualFold(words[i+1].text, "BY") {
			return true, nil
		}
	}
	return false, nil
}

type bareWord struct {
	text  string
	depth int
}

// bareWords returns the identifier-shaped words of src outside comments,
// strings, and quoted identifiers, each annotated with its paren depth.
func bareWords(src string) ([]bareWord, error) {
	s := &scanner{src: src, line: 1, col: 1}
	var words []bareWord
	depth := 0
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '-' && s.peek(1) == '-':
			s.lineComment()
		case c == '/' && s.peek(1) == '*':
			if err := s.blockComment(); err != nil {
				return nil, err
			}
		case c == '\'':
			if err := s.stringLiteral(); err != nil {
				return nil, err
			}
		case c == '"' || c == '`':
			if err := s.quotedIdentifier(c); err != nil {
				return nil, err
			}
		case c == '(':
			depth++
			s.advance(1)
		case c == ')':
			if depth > 0 {
				depth--
			}
			s.advance(1)
		case isIdentStart(c):
			start := s.pos
			s.identifier()
			words = append(words, bareWord{text: s.src[start:s.pos], depth: depth})
		default:
			s.advance(1)
		}
	}
	return words, nil
}
