// Package core holds the budget domain types.
//
// This file parses user-typed amounts coming from forms.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// A float64 holds every decimal of up to 15 significant digits exactly.
const maxSignificantDigits = 15

// ParseAmount converts a decimal string to a number.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs,
// exponents, anything that is not a plain decimal, and values with more than
// 15 significant digits (which would not survive the trip through float64)
// are rejected with ErrInvalidAmount. Zero is accepted because a zero limit is valid; range
// checks belong to the operation that consumes the value.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
//	ParseAmount("1234567890.1234567") -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	digits := 0
	for _, p := range parts {
		for _, r := range p {
			if r < '0' || r > '9' {
				return 0, ErrInvalidAmount
			}
			digits++
		}
	}
	if digits == 0 {
		return 0, ErrInvalidAmount
	}
	frac := ""
	if len(parts) == 2 {
		frac = strings.TrimRight(parts[1], "0")
	}
	if len(strings.TrimLeft(parts[0]+frac, "0")) > maxSignificantDigits {
		return 0, ErrInvalidAmount
	}

	normalized := parts[0]
	if normalized == "" {
		normalized = "0"
	}
	if len(parts) == 2 && parts[1] != "" {
		normalized += "." + parts[1]
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return d.InexactFloat64(), nil
}
