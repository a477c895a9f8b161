package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeNumber(t *testing.T) {
	tests := []struct {
		name   string
		lexeme string
		want   string
	}{
		{"plain integer", "42", "42"},
		{"negative integer", "-7", "-7"},
		{"leading plus", "+42", "42"},
		{"trailing fractional zeros", "1.50", "1.5"},
		{"plus and zeros", "+1.500", "1.5"},
		{"integer-valued decimal", "15.0", "15"},
		{"scientific to integer", "1.5e1", "15"},
		{"scientific to fraction", "15e-1", "1.5"},
		{"uppercase exponent", "1.5E0", "1.5"},
		{"negative zero", "-0", "0"},
		{"zero decimal", "0.00", "0"},
		{"small fraction", "0.250", "0.25"},
		{"large exact integer", "9007199254740993", "9007199254740993"},
		{"leading zero decimal", "01.50", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeNumber(tt.lexeme)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeNumberCollisions(t *testing.T) {
	// The whole point: every spelling of one value lands on one string.
	spellings := []string{"1.5", "1.50", "+1.5", "1.5e0", "15e-1", "0001.5000"}
	for _, s := range spellings {
		got, err := NormalizeNumber(s)
		require.NoError(t, err)
		assert.Equal(t, "1.5", got, "spelling %q", s)
	}
}

func TestNormalizeNumberRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "abc", "1.2.3", "--1", "1e", "  "} {
		_, err := NormalizeNumber(s)
		assert.Error(t, err, "lexeme %q", s)
	}
}

func TestNormalizeIntAndFloat(t *testing.T) {
	assert.Equal(t, "42", NormalizeInt(42))
	assert.Equal(t, "-42", NormalizeInt(-42))
	assert.Equal(t, "1.5", NormalizeFloat(1.5))
	assert.Equal(t, "15", NormalizeFloat(15.0))
	assert.Equal(t, "0", NormalizeFloat(0.0))
}
