package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"whole number", "99.00", "99"},
		{"with cents", "123.45", "123.45"},
		{"zero", "0.00", "0"},
		{"empty string", "", "0"},
		{"whitespace", "  12.5 ", "12.5"},
		{"invalid string", "abc", "0"},
		{"no decimals", "100", "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAmount(tt.input)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"integer", "20", "20.00"},
		{"one place", "1.6", "1.60"},
		{"rounds down", "31.594", "31.59"},
		{"rounds half up", "0.005", "0.01"},
		{"zero", "0", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatAmount(decimal.RequireFromString(tt.input))
			if got != tt.want {
				t.Errorf("FormatAmount(%s) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCents(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"9.99", 999},
		{"64.80", 6480},
		{"0.004", 0},
		{"1234.565", 123457},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Cents(decimal.RequireFromString(tt.input))
			if got != tt.want {
				t.Errorf("Cents(%s) = %d, want %d", tt.input, got, tt.want)
			}
			if back := FromCents(got); !back.Equal(decimal.New(tt.want, -2)) {
				t.Errorf("FromCents(%d) = %s", got, back)
			}
		})
	}
}
