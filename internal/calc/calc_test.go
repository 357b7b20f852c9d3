package calc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"addition", "2+2", "4"},
		{"multiplication with spaces", "10 * 5", "50"},
		{"division", "100 / 4", "25"},
		{"decimal", "3.14 * 2", "6.28"},
		{"parentheses", "(2 + 3) * 4", "20"},
		{"precedence", "10 + 5 * 2", "20"},
		{"grouped divisor", "100 / (2 + 3)", "20"},
		{"negative number", "-5 + 3", "-2"},
		{"double negation", "--4 * 2", "8"},
		{"subtracting a negative", "3 - -2", "5"},
		{"modulo", "10 % 3", "1"},
		{"fractional modulo", "5.5 % 2", "1.5"},
		{"power", "2 ^ 10", "1024"},
		{"power is right associative", "2^3^2", "512"},
		{"power binds tighter than minus", "-2^2", "-4"},
		{"negative exponent", "2^-1", "0.5"},
		{"non-terminating fraction", "1 / 3", "0.333333"},
		{"float noise trimmed", "0.1 + 0.2", "0.3"},
		{"surrounding whitespace", "  7 - 2  ", "5"},
		{"leading dot", ".5 * 4", "2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Evaluate(tt.query)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_NoResult(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"word", "hello"},
		{"empty", ""},
		{"letters with operator", "abc + 2"},
		{"number without operator", "42"},
		{"operator without digit", "+ -"},
		{"division by zero", "5 / 0"},
		{"division by zero expression", "1 / (2 - 2)"},
		{"modulo by zero", "5 % 0"},
		{"unbalanced open", "(2 + 3"},
		{"unbalanced close", "2 + 3)"},
		{"dangling operator", "2 +"},
		{"two dots", "1.2.3 + 1"},
		{"lone dot", ". + 1"},
		{"overflow", "10 ^ 400"},
		{"nan", "(-8) ^ 0.5"},
		{"shell characters", "2 + 2; rm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Evaluate(tt.query)
			assert.False(t, ok)
			assert.Empty(t, got)
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "0", Format(0))
	assert.Equal(t, "0", Format(math.Copysign(0, -1)))
	assert.Equal(t, "-12", Format(-12))
	assert.Equal(t, "2.5", Format(2.5))
	assert.Equal(t, "0", Format(0.0000001))
	assert.Equal(t, "1000000000000000", Format(1e15))
}
