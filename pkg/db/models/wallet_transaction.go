package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/turfpay-backend/pkg/enums"
	"github.com/angelmondragon/turfpay-backend/pkg/money"
)

// WalletTransaction is an immutable ledger entry.
type WalletTransaction struct {
	ID                uuid.UUID               `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID            uuid.UUID               `gorm:"column:user_id;type:uuid;not null" json:"userId"`
	Type              enums.TransactionType   `gorm:"column:type;type:text;not null" json:"type"`
	Amount            decimal.Decimal         `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Reason            enums.TransactionReason `gorm:"column:reason;type:text;not null" json:"reason"`
	GameID            *uuid.UUID              `gorm:"column:game_id;type:uuid" json:"gameId"`
	RazorpayPaymentID *string                 `gorm:"column:razorpay_payment_id" json:"razorpayPaymentId"`
	RazorpayOrderID   *string                 `gorm:"column:razorpay_order_id" json:"razorpayOrderId"`
	Description       *string                 `gorm:"column:description" json:"description"`
	BalanceAfter      decimal.Decimal         `gorm:"column:balance_after;type:numeric(12,2);not null" json:"balanceAfter"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (t *WalletTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// IsGamePayment reports whether the entry is the debit that settles a game share.
func (t WalletTransaction) IsGamePayment() bool {
	return t.Type == enums.TransactionDebit && t.Reason == enums.ReasonGameJoin && t.GameID != nil
}

// MarshalJSON renders the money columns with two fractional digits.
func (t WalletTransaction) MarshalJSON() ([]byte, error) {
	type entry WalletTransaction
	return json.Marshal(struct {
		entry
		Amount       money.Amount `json:"amount"`
		BalanceAfter money.Amount `json:"balanceAfter"`
	}{
		entry:        entry(t),
		Amount:       money.NewAmount(t.Amount),
		BalanceAfter: money.NewAmount(t.BalanceAfter),
	})
}
