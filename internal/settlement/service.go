package settlement

import (
	"context"
	"errors"
	"fmt"
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
	"github.com/angelmondragon/turfpay-backend/pkg/money"
	"github.com/angelmondragon/turfpay-backend/pkg/outbox"
	"github.com/angelmondragon/turfpay-backend/pkg/outbox/payloads"
)

// GameStore is the slice of game persistence settlement needs. LockGame and
// SetPrice run on the caller's transaction.
type GameStore interface {
	LockGame(ctx context.Context, tx *gorm.DB, gameID uuid.UUID) (*models.Game, error)
	LoadGame(ctx context.Context, gameID uuid.UUID) (*models.Game, error)
	SetPrice(ctx context.Context, tx *gorm.DB, game *models.Game, price decimal.Decimal) error
}

type userLookup interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type debitMetrics interface {
	IncDebit(reason string)
}

// Policies selects the divisor for each read/write path.
type Policies struct {
	PayShare enums.SharePolicy
	Status   enums.SharePolicy
}

// DefaultPolicies matches the long-standing behavior: pay-share splits across the
// current roster, the status view across the full team size.
func DefaultPolicies() Policies {
	return Policies{PayShare: enums.SharePolicyOccupancy, Status: enums.SharePolicyCapacity}
}

// PayShareResult describes the debit that settled a user's share.
type PayShareResult struct {
	GameID        uuid.UUID    `json:"gameId"`
	TransactionID uuid.UUID    `json:"transactionId"`
	AmountPaid    money.Amount `json:"amountPaid"`
	WalletBalance money.Amount `json:"walletBalance"`
	PaidAt        time.Time    `json:"paidAt"`
	AlreadyPaid   bool         `json:"alreadyPaid"`
}

// PlayerStatus is one roster line in the payment status view.
type PlayerStatus struct {
	UserID uuid.UUID           `json:"userId"`
	Name   string              `json:"name"`
	Email  string              `json:"email"`
	Status enums.PaymentStatus `json:"status"`
	Amount money.Amount        `json:"amount"`
	PaidAt *time.Time          `json:"paidAt"`
}

// GameStatus summarizes who has paid for a game.
type GameStatus struct {
	GameID          uuid.UUID      `json:"gameId"`
	TotalPrice      *money.Amount  `json:"totalPrice"`
	AmountPerPlayer money.Amount   `json:"amountPerPlayer"`
	TotalCollected  money.Amount   `json:"totalCollected"`
	PaidCount       int            `json:"paidCount"`
	PendingCount    int            `json:"pendingCount"`
	Players         []PlayerStatus `json:"players"`
}

type Service interface {
	PayShare(ctx context.Context, userID, gameID uuid.UUID, priceOverride *decimal.Decimal) (*PayShareResult, error)
	GameStatus(ctx context.Context, gameID uuid.UUID) (*GameStatus, error)
}

type ServiceParams struct {
	Tx       db.TxRunner
	Retry    db.RetryPolicy
	Games    GameStore
	Users    userLookup
	Wallet   wallet.Service
	Ledger   ledger.Service
	Outbox   outboxPublisher
	Policies Policies
	Metrics  debitMetrics
	Logger   *logger.Logger
}

type service struct {
	tx       db.TxRunner
	retry    db.RetryPolicy
	games    GameStore
	users    userLookup
	wallet   wallet.Service
	ledger   ledger.Service
	outbox   outboxPublisher
	policies Policies
	metrics  debitMetrics
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Games == nil {
		return nil, fmt.Errorf("game store required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user lookup required")
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
	policies := params.Policies
	defaults := DefaultPolicies()
	if !policies.PayShare.IsValid() {
		policies.PayShare = defaults.PayShare
	}
	if !policies.Status.IsValid() {
		policies.Status = defaults.Status
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		tx:       params.Tx,
		retry:    params.Retry,
		games:    params.Games,
		users:    params.Users,
		wallet:   params.Wallet,
		ledger:   params.Ledger,
		outbox:   params.Outbox,
		policies: policies,
		metrics:  params.Metrics,
		logg:     logg,
	}, nil
}

func (s *service) PayShare(ctx context.Context, userID, gameID uuid.UUID, priceOverride *decimal.Decimal) (*PayShareResult, error) {
	if userID == uuid.Nil || gameID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id and game id are required")
	}

	var result *PayShareResult
	err := db.RetryTx(ctx, s.tx, s.retry, func(tx *gorm.DB) error {
		result = nil

		game, err := s.games.LockGame(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if !game.HasPlayer(userID) {
			return pkgerrors.Wrap(pkgerrors.CodeForbidden, ErrNotAParticipant, "You are not a participant in this game")
		}
		if len(game.Players) == 0 {
			return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrNoParticipants, "Game has no participants")
		}

		if !game.PriceSet() {
			if priceOverride == nil || !priceOverride.IsPositive() {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrPriceRequired, "Price required to process payment")
			}
			if err := s.games.SetPrice(ctx, tx, game, money.Round2(*priceOverride)); err != nil {
				return err
			}
		}

		share, err := ComputeShare(game.TurfPrice, s.policies.PayShare.Divisor(game.TeamSize, len(game.Players)))
		if err != nil {
			return shareError(err)
		}

		ledgerTx := s.ledger.WithTx(tx)
		existing, err := ledgerTx.FindGamePayment(ctx, userID, gameID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = alreadyPaid(existing)
			return nil
		}

		w, err := s.wallet.Debit(ctx, tx, userID, share)
		if err != nil {
			return err
		}
		desc := fmt.Sprintf("Payment for game %s", game.TeamName)
		entry := &models.WalletTransaction{
			UserID:       userID,
			Type:         enums.TransactionDebit,
			Amount:       share,
			Reason:       enums.ReasonGameJoin,
			GameID:       &gameID,
			Description:  &desc,
			BalanceAfter: w.Balance,
		}
		if err := ledgerTx.Append(ctx, entry); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventGameSharePaid,
			AggregateType: enums.AggregateGame,
			AggregateID:   gameID,
			Actor:         outbox.Actor(userID),
			Data: payloads.GameSharePaidEvent{
				GameID:        gameID,
				UserID:        userID,
				TransactionID: entry.ID,
				Amount:        entry.Amount,
				PaidAt:        entry.CreatedAt,
			},
		}); err != nil {
			return err
		}

		result = &PayShareResult{
			GameID:        gameID,
			TransactionID: entry.ID,
			AmountPaid:    money.NewAmount(entry.Amount),
			WalletBalance: money.NewAmount(w.Balance),
			PaidAt:        entry.CreatedAt,
		}
		return nil
	})

	if errors.Is(err, ledger.ErrDuplicateGamePayment) {
		// Another request for the same (user, game) committed first.
		winner, findErr := s.ledger.FindGamePayment(ctx, userID, gameID)
		if findErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, findErr, "load game payment")
		}
		if winner == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "game payment vanished")
		}
		result, err = alreadyPaid(winner), nil
	}
	if err != nil {
		return nil, mapError(err)
	}

	ctx = s.logg.WithUserID(s.logg.WithGameID(ctx, gameID.String()), userID.String())
	ctx = s.logg.WithFields(ctx, map[string]any{
		"amount":         result.AmountPaid.String(),
		"already_paid":   result.AlreadyPaid,
		"transaction_id": result.TransactionID.String(),
	})
	if result.AlreadyPaid {
		balance, err := s.wallet.Balance(ctx, userID)
		if err != nil {
			return nil, err
		}
		result.WalletBalance = money.NewAmount(balance)
		s.logg.Info(ctx, "game.share_already_paid")
		return result, nil
	}
	if s.metrics != nil {
		s.metrics.IncDebit(string(enums.ReasonGameJoin))
	}
	s.logg.Info(ctx, "game.share_paid")
	return result, nil
}

func alreadyPaid(entry *models.WalletTransaction) *PayShareResult {
	r := &PayShareResult{
		TransactionID: entry.ID,
		AmountPaid:    money.NewAmount(entry.Amount),
		PaidAt:        entry.CreatedAt,
		AlreadyPaid:   true,
	}
	if entry.GameID != nil {
		r.GameID = *entry.GameID
	}
	return r
}

func (s *service) GameStatus(ctx context.Context, gameID uuid.UUID) (*GameStatus, error) {
	game, err := s.games.LoadGame(ctx, gameID)
	if err != nil {
		return nil, mapError(err)
	}

	payments, err := s.ledger.ListGamePayments(ctx, gameID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load game payments")
	}
	paidBy := make(map[uuid.UUID]models.WalletTransaction, len(payments))
	for _, p := range payments {
		paidBy[p.UserID] = p
	}

	ids := make([]uuid.UUID, 0, len(game.Players))
	for _, p := range game.Players {
		ids = append(ids, p.UserID)
	}
	profiles, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load players")
	}

	perPlayer, err := ComputeShare(game.TurfPrice, s.policies.Status.Divisor(game.TeamSize, len(game.Players)))
	if err != nil {
		perPlayer = decimal.Zero
	}

	status := &GameStatus{
		GameID:          game.ID,
		AmountPerPlayer: money.NewAmount(perPlayer),
		TotalCollected:  money.NewAmount(decimal.Zero),
		Players:         make([]PlayerStatus, 0, len(game.Players)),
	}
	if game.TurfPrice.Valid {
		price := money.NewAmount(game.TurfPrice.Decimal)
		status.TotalPrice = &price
	}
	for _, p := range game.Players {
		profile := profiles[p.UserID]
		line := PlayerStatus{
			UserID: p.UserID,
			Name:   profile.Name,
			Email:  profile.Email,
			Status: enums.PaymentStatusPending,
			Amount: money.NewAmount(decimal.Zero),
		}
		if payment, ok := paidBy[p.UserID]; ok {
			paidAt := payment.CreatedAt
			line.Status = enums.PaymentStatusPaid
			line.Amount = money.NewAmount(payment.Amount)
			line.PaidAt = &paidAt
			status.PaidCount++
			status.TotalCollected = money.NewAmount(status.TotalCollected.Add(payment.Amount))
		} else {
			status.PendingCount++
		}
		status.Players = append(status.Players, line)
	}
	return status, nil
}

func shareError(err error) error {
	switch {
	case errors.Is(err, ErrPriceNotSet):
		return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrPriceNotSet, "Game price not set. Please contact game organizer.")
	case errors.Is(err, ErrNoParticipants):
		return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrNoParticipants, "Game has no participants")
	}
	return err
}

// mapError gives untyped persistence failures a code. Typed errors pass through.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrGameNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrGameNotFound, "Game not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settle game payment")
}
