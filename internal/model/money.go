package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string amount in major units to a Decimal.
// Shared by the fixture loader and the remote record mapping.
// Handles edge cases: empty strings, whitespace, invalid input.
// Examples: "99.00" → 99, "12.5" → 12.5, "" → 0, "abc" → 0
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Present rounds an amount to two places for display.
// Internal arithmetic keeps full precision; call this only at the edge.
func Present(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatAmount renders an amount with exactly two decimal places.
// Examples: 20 → "20.00", 1.6 → "1.60", 31.594 → "31.59"
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Cents converts an amount to integer minor units, rounding half away from zero.
func Cents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// FromCents converts integer minor units back to an amount.
func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}
