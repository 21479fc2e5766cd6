package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		name string
		in   uint64
		want string
	}{
		{name: "zero", in: 0, want: "0.000000"},
		{name: "one unit", in: 1_000_000, want: "1.000000"},
		{name: "fractional", in: 9_980_000, want: "9.980000"},
		{name: "sub unit", in: 20_000, want: "0.020000"},
		{name: "mixed", in: 1_262_510, want: "1.262510"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatUnits(tt.in))
		})
	}
}

func TestRunQuoteRejectsZeroDuration(t *testing.T) {
	origTotal := quoteTotal
	defer func() { quoteTotal = origTotal }()

	quoteTotal = 0
	err := runQuote(quoteCmd, nil)
	assert.Error(t, err)
}
