package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12.5", 12.5, true},
		{"$23,500", 23500, true},
		{" 41,999 ", 41999, true},
		{"-3.25", -3.25, true},
		{"0", 0, true},
		{"", 0, false},
		{"Call for price", 0, false},
		{"...", 0, false},
		{"1.2.3", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseNumeric(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "12.5", FormatNumber(12.5))
	assert.Equal(t, "3", FormatNumber(3))
	assert.Equal(t, "-0.1", FormatNumber(-0.1))
}
