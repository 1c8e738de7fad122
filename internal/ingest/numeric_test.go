package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{nil, 0},
		{"", 0},
		{"   ", 0},
		{"abc", 0},
		{42.5, 42.5},
		{7, 7},
		{"1.234,56", 1234.56},
		{"1,5", 1.5},
		{"1.500", 1500},
		{"1.234.567", 1234567},
		{"1.5", 1.5},
		{"1.25", 1.25},
		{" 300 ", 300},
		{"12abc", 12},
		{"-3,5", -3.5},
		{"1,234.56", 1.23456},
		{true, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseNumber(tt.in), "ParseNumber(%#v)", tt.in)
	}
}

func TestParseNumber_ReportsCoercion(t *testing.T) {
	_, ok := parseNumber("12abc")
	assert.False(t, ok)

	_, ok = parseNumber("n/a")
	assert.False(t, ok)

	_, ok = parseNumber("1.234,56")
	assert.True(t, ok)

	_, ok = parseNumber(nil)
	assert.True(t, ok)
}
