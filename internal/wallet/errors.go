package wallet

import (
	"errors"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/turfpay-backend/pkg/errors"
	"github.com/angelmondragon/turfpay-backend/pkg/money"
)

// ErrInsufficientBalance is wrapped by every short-balance failure.
var ErrInsufficientBalance = errors.New("insufficient wallet balance")

// ShortfallDetails is attached to insufficient balance errors.
type ShortfallDetails struct {
	Required       money.Amount `json:"required"`
	CurrentBalance money.Amount `json:"currentBalance"`
	Shortfall      money.Amount `json:"shortfall"`
}

// InsufficientBalance builds the business-rule error for a debit of required
// against current.
func InsufficientBalance(required, current decimal.Decimal) *pkgerrors.Error {
	return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrInsufficientBalance, "Insufficient wallet balance").
		WithDetails(ShortfallDetails{
			Required:       money.NewAmount(required),
			CurrentBalance: money.NewAmount(current),
			Shortfall:      money.NewAmount(required.Sub(current)),
		})
}
