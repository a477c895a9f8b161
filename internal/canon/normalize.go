package canon

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizeNumber maps a numeric lexeme to its canonical decimal form so
// that configuration values and query literals collide on value, not
// spelling: "1.5", "1.50", "+1.5", "1.5e0", and "15e-1" all normalize to
// "1.5". The canonical form has no leading plus, no trailing fractional
// zeros, no exponent, and negative zero folds to "0".
//
// Integers that fit int64 take an exact path; everything else goes through
// float64 shortest round-trip formatting, which is deterministic for any
// lexeme the scanner or YAML loader can produce.
func NormalizeNumber(lexeme string) (string, error) {
	s := strings.TrimSpace(lexeme)
	if s == "" {
		return "", fmt.Errorf("empty numeric lexeme")
	}
	s = strings.TrimPrefix(s, "+")

	// Exact integer path first: FormatInt avoids float rounding for
	// values beyond 2^53.
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(i, 10), nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", fmt.Errorf("not a number: %q", lexeme)
	}
	if f == 0 {
		// Covers "-0", "0.00", "0e5".
		return "0", nil
	}

	out := strconv.FormatFloat(f, 'f', -1, 64)
	return out, nil
}

// NormalizeInt is the exact-integer variant for values already held as int64.
func NormalizeInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// NormalizeFloat is the variant for values already held as float64.
func NormalizeFloat(f float64) string {
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
