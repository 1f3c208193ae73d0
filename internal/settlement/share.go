package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/turfpay-backend/pkg/money"
)

// ComputeShare splits the turf price into divisor equal parts, rounded half away
// from zero to two places. An unset or non-positive price is ErrPriceNotSet and a
// non-positive divisor is ErrNoParticipants.
func ComputeShare(total decimal.NullDecimal, divisor int) (decimal.Decimal, error) {
	if !total.Valid || !total.Decimal.IsPositive() {
		return decimal.Zero, ErrPriceNotSet
	}
	if divisor <= 0 {
		return decimal.Zero, ErrNoParticipants
	}
	return money.Share(total.Decimal, divisor)
}
