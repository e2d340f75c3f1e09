package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts user input into a strictly positive amount.
//
// Surrounding whitespace is ignored. Anything decimal.NewFromString rejects
// (letters, trailing garbage, NaN, Inf) and any value <= 0 yields
// ErrInvalidAmount. The check is repeated on the float64 result so values
// that underflow to 0 or overflow to Inf are rejected too.
//
// Examples:
//
//	ParseAmount("12.50") -> 12.5, nil
//	ParseAmount(" 3 ")   -> 3, nil
//	ParseAmount("0")     -> 0, ErrInvalidAmount
//	ParseAmount("-5")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return 0, ErrInvalidAmount
	}
	f := d.InexactFloat64()
	if f <= 0 || math.IsInf(f, 0) {
		return 0, ErrInvalidAmount
	}
	return f, nil
}
