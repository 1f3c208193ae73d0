package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletToppedUpEvent is emitted once per captured Razorpay payment credited to a wallet.
type WalletToppedUpEvent struct {
	UserID            uuid.UUID       `json:"user_id"`
	TransactionID     uuid.UUID       `json:"transaction_id"`
	Amount            decimal.Decimal `json:"amount"`
	BalanceAfter      decimal.Decimal `json:"balance_after"`
	RazorpayPaymentID string          `json:"razorpay_payment_id"`
	RazorpayOrderID   string          `json:"razorpay_order_id"`
	CreditedAt        time.Time       `json:"credited_at"`
}

// GameJoinedEvent reports a wallet-funded join.
type GameJoinedEvent struct {
	GameID         uuid.UUID       `json:"game_id"`
	UserID         uuid.UUID       `json:"user_id"`
	TransactionID  uuid.UUID       `json:"transaction_id"`
	Amount         decimal.Decimal `json:"amount"`
	AvailableSpots int             `json:"available_spots"`
	JoinedAt       time.Time       `json:"joined_at"`
}

// GameSharePaidEvent reports a per-player share paid by an existing roster member.
type GameSharePaidEvent struct {
	GameID        uuid.UUID       `json:"game_id"`
	UserID        uuid.UUID       `json:"user_id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAt        time.Time       `json:"paid_at"`
}
