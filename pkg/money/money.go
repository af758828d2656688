// Package money implements fixed-point arithmetic for rupiah amounts.
//
// Every amount in the system is an int64 count of the smallest currency
// unit. Percentage math goes through ApplyPercent so the whole codebase
// shares one rounding rule: round half up.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value in minor currency units.
type Amount = int64

// ApplyPercent returns rate% of base, rounded half up to the nearest
// minor unit. The rate is expressed in percent (5 means 5%).
func ApplyPercent(base Amount, rate decimal.Decimal) Amount {
	if base == 0 || rate.IsZero() {
		return 0
	}
	// decimal.Round is half away from zero, which is half up for the
	// non-negative amounts this system deals in.
	result := decimal.NewFromInt(base).
		Mul(rate).
		Div(decimal.NewFromInt(100)).
		Round(0)
	return result.IntPart()
}

// ParsePercent parses a percentage string ("2.5") into a decimal rate.
func ParsePercent(raw string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid percent %q: %w", raw, err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("percent %q must not be negative", raw)
	}
	return rate, nil
}
