package ledger

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Money is a monetary amount in minor units (cents). All ledger
// arithmetic is integer arithmetic; floating point never touches a
// balance. Negative amounts are representable since balances may swing
// negative mid-run.
type Money int64

// Cents builds a Money from a count of minor units.
func Cents(n int64) Money { return Money(n) }

// FromDollars converts a float dollar amount, rounding to the nearest
// cent. Convenience for configs and tests; hot paths stay integer.
func FromDollars(d float64) Money {
	return Money(int64(math.Round(d * 100)))
}

// FromDecimal converts an exact decimal dollar amount. Amounts with
// fractional cents are rejected rather than silently rounded.
func FromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Mul(decimal.NewFromInt(100))
	if !cents.IsInteger() {
		return 0, fmt.Errorf("amount %s has fractional cents", d)
	}
	return Money(cents.IntPart()), nil
}

// Decimal returns the amount as exact decimal dollars.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// Dollars returns the amount as float dollars, for display only.
func (m Money) Dollars() float64 { return float64(m) / 100 }

// Abs returns the magnitude of the amount.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

func (m Money) String() string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s$%d.%02d", sign, v/100, v%100)
}
