package topup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/turfpay-backend/internal/ledger"
	"github.com/angelmondragon/turfpay-backend/internal/wallet"
	"github.com/angelmondragon/turfpay-backend/pkg/db"
	"github.com/angelmondragon/turfpay-backend/pkg/db/models"
	"github.com/angelmondragon/turfpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/turfpay-backend/pkg/errors"
	"github.com/angelmondragon/turfpay-backend/pkg/logger"
	"github.com/angelmondragon/turfpay-backend/pkg/metrics"
	"github.com/angelmondragon/turfpay-backend/pkg/money"
	"github.com/angelmondragon/turfpay-backend/pkg/outbox"
	"github.com/angelmondragon/turfpay-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/turfpay-backend/pkg/razorpay"
)

const (
	maxReceiptLen = 40
	noteTypeTopup = "WALLET_TOPUP"
)

const gatewayUnavailableMsg = "Wallet top-up is temporarily unavailable. Missing Razorpay credentials."

// Gateway is the Razorpay surface used by the top-up flow.
type Gateway interface {
	KeyID() string
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*razorpay.Payment, error)
	FetchOrder(ctx context.Context, orderID string) (*razorpay.Order, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type topupMetrics interface {
	ObserveTopup(result string, amount decimal.Decimal)
}

// OrderResult is handed to the client checkout widget. Amount is in rupees.
type OrderResult struct {
	OrderID  string       `json:"orderId"`
	Amount   money.Amount `json:"amount"`
	Currency string       `json:"currency"`
	KeyID    string       `json:"keyId"`
	Receipt  string       `json:"receipt"`
}

// VerifyInput is the checkout callback payload.
type VerifyInput struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// CreditResult reports the outcome of a verified top-up. AlreadyProcessed is
// set when the payment had been credited by an earlier call.
type CreditResult struct {
	TransactionID    uuid.UUID    `json:"transactionId"`
	AmountCredited   money.Amount `json:"amountCredited"`
	WalletBalance    money.Amount `json:"walletBalance"`
	AlreadyProcessed bool         `json:"alreadyProcessed"`
}

type Service interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*OrderResult, error)
	VerifyAndCredit(ctx context.Context, userID uuid.UUID, input VerifyInput) (*CreditResult, error)
}

type ServiceParams struct {
	Tx        db.TxRunner
	Retry     db.RetryPolicy
	Gateway   Gateway
	Wallet    wallet.Service
	Ledger    ledger.Service
	Outbox    outboxPublisher
	MinAmount decimal.Decimal
	Metrics   topupMetrics
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	tx        db.TxRunner
	retry     db.RetryPolicy
	gateway   Gateway
	wallet    wallet.Service
	ledger    ledger.Service
	outbox    outboxPublisher
	minAmount decimal.Decimal
	metrics   topupMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the top-up flow. A nil Gateway is allowed and makes every
// call fail with ErrGatewayUnavailable.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Wallet == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	gateway := params.Gateway
	if c, ok := gateway.(*razorpay.Client); ok && c == nil {
		gateway = nil
	}
	minAmount := params.MinAmount
	if !minAmount.IsPositive() {
		minAmount = decimal.NewFromInt(1)
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:        params.Tx,
		retry:     params.Retry,
		gateway:   gateway,
		wallet:    params.Wallet,
		ledger:    params.Ledger,
		outbox:    params.Outbox,
		minAmount: minAmount,
		metrics:   params.Metrics,
		logg:      logg,
		now:       now,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*OrderResult, error) {
	if s.gateway == nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ErrGatewayUnavailable, gatewayUnavailableMsg)
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidAmount, "Amount must be a positive number")
	}
	if amount.LessThan(s.minAmount) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidAmount,
			fmt.Sprintf("Minimum amount is ₹%s", s.minAmount.String()))
	}

	receipt := fmt.Sprintf("wallet_%s_%d", userID, s.now().UnixMilli())
	if len(receipt) > maxReceiptLen {
		receipt = receipt[:maxReceiptLen]
	}
	order, err := s.gateway.CreateOrder(ctx, razorpay.OrderRequest{
		Amount:   money.ToPaise(amount),
		Currency: razorpay.CurrencyINR,
		Receipt:  receipt,
		Notes: map[string]string{
			razorpay.NoteUserID: userID.String(),
			razorpay.NoteType:   noteTypeTopup,
		},
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"user_id":  userID.String(),
		"order_id": order.ID,
		"amount":   amount.String(),
	})
	s.logg.Info(ctx, "topup.order_created")

	currency := order.Currency
	if currency == "" {
		currency = razorpay.CurrencyINR
	}
	return &OrderResult{
		OrderID:  order.ID,
		Amount:   money.NewAmount(amount),
		Currency: currency,
		KeyID:    s.gateway.KeyID(),
		Receipt:  receipt,
	}, nil
}

func (s *service) VerifyAndCredit(ctx context.Context, userID uuid.UUID, input VerifyInput) (*CreditResult, error) {
	res, err := s.verifyAndCredit(ctx, userID, input)
	if err != nil {
		s.observe(metrics.TopupResultRejected, decimal.Zero)
		return nil, err
	}
	if res.AlreadyProcessed {
		s.observe(metrics.TopupResultReplayed, res.AmountCredited.Decimal)
	} else {
		s.observe(metrics.TopupResultCredited, res.AmountCredited.Decimal)
	}
	return res, nil
}

func (s *service) verifyAndCredit(ctx context.Context, userID uuid.UUID, input VerifyInput) (*CreditResult, error) {
	if s.gateway == nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ErrGatewayUnavailable, gatewayUnavailableMsg)
	}
	orderID := strings.TrimSpace(input.OrderID)
	paymentID := strings.TrimSpace(input.PaymentID)
	signature := strings.TrimSpace(input.Signature)
	if orderID == "" || paymentID == "" || signature == "" {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrMissingFields, "Missing Razorpay payment details")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"user_id":    userID.String(),
		"order_id":   orderID,
		"payment_id": paymentID,
	})

	if !s.gateway.VerifyPaymentSignature(orderID, paymentID, signature) {
		s.logg.Warn(ctx, "topup.signature_mismatch")
		return nil, pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrSignatureMismatch, "Invalid payment signature")
	}

	payment, err := s.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !payment.IsCaptured() {
		return nil, pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrPaymentNotCaptured,
			fmt.Sprintf("Payment not captured. Status: %s", payment.Status))
	}
	if payment.OrderID != orderID {
		return nil, pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrOrderMismatch, "Order ID mismatch")
	}

	order, err := s.gateway.FetchOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Notes[razorpay.NoteUserID] != userID.String() {
		s.logg.Warn(ctx, "topup.foreign_order")
		return nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, ErrForeignPayment, "Payment belongs to another account")
	}

	amount, err := verifiedAmount(payment, order)
	if err != nil {
		return nil, err
	}

	existing, err := s.ledger.FindByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load ledger entry")
	}
	if existing != nil {
		return s.replay(ctx, userID, existing)
	}

	var result *CreditResult
	err = db.RetryTx(ctx, s.tx, s.retry, func(tx *gorm.DB) error {
		result = nil
		w, err := s.wallet.Credit(ctx, tx, userID, amount)
		if err != nil {
			return err
		}
		desc := fmt.Sprintf("Wallet top-up via Razorpay - Order: %s", orderID)
		entry := &models.WalletTransaction{
			UserID:            userID,
			Type:              enums.TransactionCredit,
			Amount:            amount,
			Reason:            enums.ReasonAddMoney,
			RazorpayPaymentID: &paymentID,
			RazorpayOrderID:   &orderID,
			Description:       &desc,
			BalanceAfter:      w.Balance,
		}
		if err := s.ledger.WithTx(tx).Append(ctx, entry); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWalletToppedUp,
			AggregateType: enums.AggregateWallet,
			AggregateID:   w.ID,
			Actor:         outbox.Actor(userID),
			Data: payloads.WalletToppedUpEvent{
				UserID:            userID,
				TransactionID:     entry.ID,
				Amount:            entry.Amount,
				BalanceAfter:      w.Balance,
				RazorpayPaymentID: paymentID,
				RazorpayOrderID:   orderID,
				CreditedAt:        entry.CreatedAt,
			},
		}); err != nil {
			return err
		}
		result = &CreditResult{
			TransactionID:  entry.ID,
			AmountCredited: money.NewAmount(entry.Amount),
			WalletBalance:  money.NewAmount(w.Balance),
		}
		return nil
	})
	if errors.Is(err, ledger.ErrDuplicateExternalReference) {
		// A concurrent verify for the same payment committed first.
		winner, findErr := s.ledger.FindByPaymentID(ctx, paymentID)
		if findErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, findErr, "load ledger entry")
		}
		if winner == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ledger entry vanished")
		}
		return s.replay(ctx, userID, winner)
	}
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "credit wallet")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"amount":         result.AmountCredited.String(),
		"balance":        result.WalletBalance.String(),
		"transaction_id": result.TransactionID.String(),
	})
	s.logg.Info(ctx, "wallet.credited")
	return result, nil
}

// verifiedAmount derives the credit from the gateway, falling back to the order
// when the payment carries no amount.
func verifiedAmount(payment *razorpay.Payment, order *razorpay.Order) (decimal.Decimal, error) {
	if payment.Amount > 0 {
		return money.FromPaise(payment.Amount), nil
	}
	if order.Amount <= 0 {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeGateway, ErrAmountUnverified, "Could not verify payment amount")
	}
	return money.FromPaise(order.Amount), nil
}

func (s *service) replay(ctx context.Context, userID uuid.UUID, entry *models.WalletTransaction) (*CreditResult, error) {
	if entry.UserID != userID {
		s.logg.Warn(ctx, "topup.foreign_payment")
		return nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, ErrForeignPayment, "Payment belongs to another account")
	}
	balance, err := s.wallet.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"amount":         entry.Amount.String(),
		"transaction_id": entry.ID.String(),
	})
	s.logg.Info(ctx, "topup.replayed")
	return &CreditResult{
		TransactionID:    entry.ID,
		AmountCredited:   money.NewAmount(entry.Amount),
		WalletBalance:    money.NewAmount(balance),
		AlreadyProcessed: true,
	}, nil
}

func (s *service) observe(result string, amount decimal.Decimal) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveTopup(result, amount)
}
