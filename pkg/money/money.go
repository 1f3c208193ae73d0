// Package money holds the rupee/paise helpers shared by the wallet flows. All
// amounts are decimal rupees with two fractional digits.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const Places = 2

var hundred = decimal.NewFromInt(100)

// Round2 rounds half away from zero to two places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// ToPaise converts rupees to the integer minor unit the gateway expects.
func ToPaise(rupees decimal.Decimal) int64 {
	return rupees.Mul(hundred).Round(0).IntPart()
}

// FromPaise converts a gateway amount in paise back to rupees.
func FromPaise(paise int64) decimal.Decimal {
	return decimal.NewFromInt(paise).Div(hundred).Round(Places)
}

// Share splits total into divisor equal parts rounded to two places.
func Share(total decimal.Decimal, divisor int) (decimal.Decimal, error) {
	if divisor <= 0 {
		return decimal.Zero, fmt.Errorf("divisor must be positive, got %d", divisor)
	}
	return Round2(total.Div(decimal.NewFromInt(int64(divisor)))), nil
}

// Parse reads a decimal amount from user input.
func Parse(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return d, nil
}

// Amount is a rupee value that always encodes with two fractional digits, to
// match the numeric(12,2) ledger columns. Decoding accepts any decimal form.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps d for a response body.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// MarshalJSON renders the amount as a quoted string such as "75.00".
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.StringFixed(Places) + `"`), nil
}
