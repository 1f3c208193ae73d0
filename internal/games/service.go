package games

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/turfpay-backend/internal/ledger"
	"github.com/angelmondragon/turfpay-backend/internal/settlement"
	"github.com/angelmondragon/turfpay-backend/internal/users"
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

const lifecycleBatchSize = 100

type userDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type debitMetrics interface {
	IncDebit(reason string)
}

type Service interface {
	Create(ctx context.Context, creatorID uuid.UUID, input CreateGameInput) (*GameDTO, error)
	ListOpen(ctx context.Context, filter ListFilter) ([]GameDTO, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]GameDTO, error)
	Roster(ctx context.Context, gameID uuid.UUID) (*RosterDTO, error)
	AutoJoin(ctx context.Context, userID uuid.UUID, filter ListFilter) (*GameDTO, error)
	Join(ctx context.Context, userID, gameID uuid.UUID) (*GameDTO, error)
	Leave(ctx context.Context, userID, gameID uuid.UUID) (*GameDTO, error)
	AddPlayer(ctx context.Context, actorID, gameID, playerID uuid.UUID) (*GameDTO, error)
	KickPlayer(ctx context.Context, actorID, gameID, playerID uuid.UUID) (*GameDTO, error)
	UpdateStatus(ctx context.Context, actorID, gameID uuid.UUID, status enums.GameStatus) (*GameDTO, error)
	JoinWithWallet(ctx context.Context, userID, gameID uuid.UUID) (*JoinResult, error)
	AdvanceLifecycle(ctx context.Context, now time.Time, gameDuration time.Duration) (LifecycleResult, error)
}

type ServiceParams struct {
	Tx         db.TxRunner
	Retry      db.RetryPolicy
	Repo       Repository
	Users      userDirectory
	Wallet     wallet.Service
	Ledger     ledger.Service
	Outbox     outboxPublisher
	JoinPolicy enums.SharePolicy
	Metrics    debitMetrics
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	tx         db.TxRunner
	retry      db.RetryPolicy
	repo       Repository
	users      userDirectory
	wallet     wallet.Service
	ledger     ledger.Service
	outbox     outboxPublisher
	joinPolicy enums.SharePolicy
	metrics    debitMetrics
	logg       *logger.Logger
	now        func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("game repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user directory required")
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
	policy := params.JoinPolicy
	if !policy.IsValid() {
		policy = enums.SharePolicyCapacity
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		tx:         params.Tx,
		retry:      params.Retry,
		repo:       params.Repo,
		users:      params.Users,
		wallet:     params.Wallet,
		ledger:     params.Ledger,
		outbox:     params.Outbox,
		joinPolicy: policy,
		metrics:    params.Metrics,
		logg:       logg,
		now:        now,
	}, nil
}

func (s *service) Create(ctx context.Context, creatorID uuid.UUID, input CreateGameInput) (*GameDTO, error) {
	input = input.normalized()
	if creatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	if input.TeamName == "" || input.GameType == "" || input.TurfLocation == "" || input.TurfDateTime.IsZero() || input.TeamSize < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Missing fields")
	}

	game := &models.Game{
		TeamName:     input.TeamName,
		TeamSize:     input.TeamSize,
		GameType:     input.GameType,
		TurfLocation: input.TurfLocation,
		TurfDateTime: input.TurfDateTime,
		CreatedBy:    creatorID,
		CaptainID:    &creatorID,
		Status:       enums.GameStatusUpcoming,
	}
	if input.TurfPrice != nil {
		if input.TurfPrice.IsNegative() {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidPrice, "turfPrice must be zero or positive")
		}
		game.TurfPrice = decimal.NullDecimal{Decimal: money.Round2(*input.TurfPrice), Valid: true}
	}
	game.Players = []models.GamePlayer{{UserID: creatorID, Position: 1, JoinedAt: s.now()}}
	Derive(game)

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Create(ctx, game)
	}); err != nil {
		return nil, mapError(err)
	}

	ctx = s.logg.WithUserID(s.logg.WithGameID(ctx, game.ID.String()), creatorID.String())
	s.logg.Info(ctx, "game.created")
	return FromModel(game), nil
}

func (s *service) ListOpen(ctx context.Context, filter ListFilter) ([]GameDTO, error) {
	rows, err := s.repo.ListOpen(ctx, filter)
	if err != nil {
		return nil, mapError(err)
	}
	return FromModels(rows), nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID) ([]GameDTO, error) {
	rows, err := s.repo.ListByPlayer(ctx, userID)
	if err != nil {
		return nil, mapError(err)
	}
	return FromModels(rows), nil
}

func (s *service) Roster(ctx context.Context, gameID uuid.UUID) (*RosterDTO, error) {
	game, err := s.repo.FindByID(ctx, gameID)
	if err != nil {
		return nil, mapError(err)
	}

	ids := make([]uuid.UUID, 0, len(game.Players)+1)
	for _, p := range game.Players {
		ids = append(ids, p.UserID)
	}
	if game.CaptainID != nil {
		ids = append(ids, *game.CaptainID)
	}
	profiles, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, mapError(err)
	}

	out := &RosterDTO{GameID: game.ID, TeamName: game.TeamName, Players: make([]users.UserDTO, 0, len(game.Players))}
	if game.CaptainID != nil {
		if u, ok := profiles[*game.CaptainID]; ok {
			out.Captain = users.FromModel(&u)
		}
	}
	for _, p := range game.Players {
		if u, ok := profiles[p.UserID]; ok {
			out.Players = append(out.Players, *users.FromModel(&u))
		}
	}
	return out, nil
}

func (s *service) AutoJoin(ctx context.Context, userID uuid.UUID, filter ListFilter) (*GameDTO, error) {
	candidate, err := s.repo.FindEarliestOpenExcluding(ctx, userID, filter)
	if err != nil {
		return nil, mapError(err)
	}
	if candidate == nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrNoOpenGames, "No suitable game found to auto-join")
	}
	return s.Join(ctx, userID, candidate.ID)
}

func (s *service) Join(ctx context.Context, userID, gameID uuid.UUID) (*GameDTO, error) {
	game, err := s.mutate(ctx, gameID, func(repo Repository, game *models.Game) error {
		if !game.IsOpen || game.AvailableSpots <= 0 {
			return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrGameClosed, "No spots available")
		}
		if game.HasPlayer(userID) {
			return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrAlreadyJoined, "Already joined")
		}
		return s.addToRoster(ctx, repo, game, userID)
	})
	if err != nil {
		return nil, err
	}
	s.logRoster(ctx, "game.joined", game.ID, userID)
	return FromModel(game), nil
}

func (s *service) Leave(ctx context.Context, userID, gameID uuid.UUID) (*GameDTO, error) {
	game, err := s.mutate(ctx, gameID, func(repo Repository, game *models.Game) error {
		return removeFromRoster(ctx, repo, game, userID, "You are not in this game")
	})
	if err != nil {
		return nil, err
	}
	s.logRoster(ctx, "game.left", game.ID, userID)
	return FromModel(game), nil
}

func (s *service) AddPlayer(ctx context.Context, actorID, gameID, playerID uuid.UUID) (*GameDTO, error) {
	if playerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "userId is required")
	}
	exists, err := s.users.Exists(ctx, playerID)
	if err != nil {
		return nil, mapError(err)
	}

	game, err := s.mutate(ctx, gameID, func(repo Repository, game *models.Game) error {
		if !game.IsManagedBy(actorID) {
			return pkgerrors.Wrap(pkgerrors.CodeForbidden, ErrNotManager, "Not allowed to add players")
		}
		if game.HasPlayer(playerID) {
			return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrAlreadyJoined, "User already in this game")
		}
		if game.AvailableSpots <= 0 {
			return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrGameClosed, "No spots left")
		}
		if !exists {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrUserNotFound, "User not found")
		}
		return s.addToRoster(ctx, repo, game, playerID)
	})
	if err != nil {
		return nil, err
	}
	s.logRoster(ctx, "game.player_added", game.ID, playerID)
	return FromModel(game), nil
}

func (s *service) KickPlayer(ctx context.Context, actorID, gameID, playerID uuid.UUID) (*GameDTO, error) {
	game, err := s.mutate(ctx, gameID, func(repo Repository, game *models.Game) error {
		if !game.IsManagedBy(actorID) {
			return pkgerrors.Wrap(pkgerrors.CodeForbidden, ErrNotManager, "Not allowed to kick players")
		}
		if playerID == game.CreatedBy {
			return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrCannotKickCreator, "Cannot remove the game creator")
		}
		return removeFromRoster(ctx, repo, game, playerID, "Player not in this game")
	})
	if err != nil {
		return nil, err
	}
	s.logRoster(ctx, "game.player_kicked", game.ID, playerID)
	return FromModel(game), nil
}

func (s *service) UpdateStatus(ctx context.Context, actorID, gameID uuid.UUID, status enums.GameStatus) (*GameDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}
	game, err := s.mutate(ctx, gameID, func(_ Repository, game *models.Game) error {
		if !game.IsManagedBy(actorID) {
			return pkgerrors.Wrap(pkgerrors.CodeForbidden, ErrNotManager, "Not allowed to change game status")
		}
		if !game.Status.CanTransitionTo(status) {
			return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrInvalidTransition,
				fmt.Sprintf("Cannot change status from %s to %s", game.Status, status))
		}
		game.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithField(s.logg.WithGameID(ctx, game.ID.String()), "status", string(status))
	s.logg.Info(ctx, "game.status_changed")
	return FromModel(game), nil
}

func (s *service) JoinWithWallet(ctx context.Context, userID, gameID uuid.UUID) (*JoinResult, error) {
	var (
		result  *JoinResult
		charged bool
	)
	err := db.RetryTx(ctx, s.tx, s.retry, func(tx *gorm.DB) error {
		result, charged = nil, false

		repo := s.repo.WithTx(tx)
		game, err := repo.LockByID(ctx, gameID)
		if err != nil {
			return err
		}
		Derive(game)
		if !game.IsOpen || game.AvailableSpots <= 0 {
			return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrGameClosed, "No spots available in this game")
		}
		if game.HasPlayer(userID) {
			return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrAlreadyJoined, "You are already part of this game")
		}
		if !game.PriceSet() {
			return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrPriceNotSet, "Game price not set. Please contact game organizer.")
		}
		perPlayer, err := settlement.ComputeShare(game.TurfPrice, s.joinPolicy.Divisor(game.TeamSize, len(game.Players)))
		if err != nil || !perPlayer.IsPositive() {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidPrice, "Invalid game price")
		}

		ledgerTx := s.ledger.WithTx(tx)
		existing, err := ledgerTx.FindGamePayment(ctx, userID, gameID)
		if err != nil {
			return err
		}

		var (
			entry   *models.WalletTransaction
			balance decimal.Decimal
		)
		if existing == nil {
			w, err := s.wallet.Debit(ctx, tx, userID, perPlayer)
			if err != nil {
				return err
			}
			desc := fmt.Sprintf("Payment for joining game: %s", game.TeamName)
			entry = &models.WalletTransaction{
				UserID:       userID,
				Type:         enums.TransactionDebit,
				Amount:       perPlayer,
				Reason:       enums.ReasonGameJoin,
				GameID:       &gameID,
				Description:  &desc,
				BalanceAfter: w.Balance,
			}
			if err := ledgerTx.Append(ctx, entry); err != nil {
				return err
			}
			balance = w.Balance
			charged = true
		}

		if err := s.addToRoster(ctx, repo, game, userID); err != nil {
			return err
		}
		Derive(game)
		if err := repo.Save(ctx, game); err != nil {
			return err
		}

		if charged {
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventGameJoined,
				AggregateType: enums.AggregateGame,
				AggregateID:   gameID,
				Actor:         outbox.Actor(userID),
				Data: payloads.GameJoinedEvent{
					GameID:         gameID,
					UserID:         userID,
					TransactionID:  entry.ID,
					Amount:         entry.Amount,
					AvailableSpots: game.AvailableSpots,
					JoinedAt:       entry.CreatedAt,
				},
			}); err != nil {
				return err
			}
		}

		amount := decimal.Zero
		if charged {
			amount = perPlayer
		}
		result = &JoinResult{
			WalletBalance:  money.NewAmount(balance),
			AmountDeducted: money.NewAmount(amount),
			Game: JoinedGame{
				ID:             game.ID,
				TeamName:       game.TeamName,
				Players:        len(game.Players),
				AvailableSpots: game.AvailableSpots,
			},
		}
		return nil
	})
	if errors.Is(err, ledger.ErrDuplicateGamePayment) {
		// A concurrent join for the same user committed first.
		err = pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrAlreadyJoined, "You are already part of this game")
	}
	if err != nil {
		return nil, mapError(err)
	}

	if !charged {
		balance, err := s.wallet.Balance(ctx, userID)
		if err != nil {
			return nil, err
		}
		result.WalletBalance = money.NewAmount(balance)
	}

	ctx = s.logg.WithUserID(s.logg.WithGameID(ctx, gameID.String()), userID.String())
	ctx = s.logg.WithFields(ctx, map[string]any{
		"amount":  result.AmountDeducted.String(),
		"charged": charged,
	})
	if charged && s.metrics != nil {
		s.metrics.IncDebit(string(enums.ReasonGameJoin))
	}
	s.logg.Info(ctx, "game.joined_with_wallet")
	return result, nil
}

// AdvanceLifecycle starts upcoming games whose start time has passed and
// finishes ongoing games older than gameDuration.
func (s *service) AdvanceLifecycle(ctx context.Context, now time.Time, gameDuration time.Duration) (LifecycleResult, error) {
	var res LifecycleResult

	started, err := s.transitionDue(ctx, enums.GameStatusUpcoming, enums.GameStatusOngoing, now)
	res.Started = started
	if err != nil {
		return res, err
	}
	finished, err := s.transitionDue(ctx, enums.GameStatusOngoing, enums.GameStatusFinished, now.Add(-gameDuration))
	res.Finished = finished
	return res, err
}

func (s *service) transitionDue(ctx context.Context, from, to enums.GameStatus, before time.Time) (int, error) {
	ids, err := s.repo.ListIDsByStatusBefore(ctx, from, before, lifecycleBatchSize)
	if err != nil {
		return 0, mapError(err)
	}

	moved := 0
	for _, id := range ids {
		changed := false
		_, err := s.mutate(ctx, id, func(_ Repository, game *models.Game) error {
			changed = false
			if game.Status != from || game.TurfDateTime.After(before) {
				return nil
			}
			game.Status = to
			changed = true
			return nil
		})
		if err != nil {
			return moved, err
		}
		if changed {
			moved++
			ctx := s.logg.WithField(s.logg.WithGameID(ctx, id.String()), "status", string(to))
			s.logg.Info(ctx, "game.status_advanced")
		}
	}
	return moved, nil
}

// mutate locks the game, applies fn, recomputes the derived fields and saves
// with the version check, retrying lost races.
func (s *service) mutate(ctx context.Context, gameID uuid.UUID, fn func(repo Repository, game *models.Game) error) (*models.Game, error) {
	var out *models.Game
	err := db.RetryTx(ctx, s.tx, s.retry, func(tx *gorm.DB) error {
		out = nil
		repo := s.repo.WithTx(tx)
		game, err := repo.LockByID(ctx, gameID)
		if err != nil {
			return err
		}
		Derive(game)
		if err := fn(repo, game); err != nil {
			return err
		}
		Derive(game)
		if err := repo.Save(ctx, game); err != nil {
			return err
		}
		out = game
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (s *service) addToRoster(ctx context.Context, repo Repository, game *models.Game, userID uuid.UUID) error {
	player := models.GamePlayer{
		GameID:   game.ID,
		UserID:   userID,
		Position: nextPosition(game),
		JoinedAt: s.now(),
	}
	if err := repo.AddPlayer(ctx, &player); err != nil {
		if errors.Is(err, ErrAlreadyJoined) {
			return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrAlreadyJoined, "Already joined")
		}
		return err
	}
	game.Players = append(game.Players, player)
	return nil
}

func removeFromRoster(ctx context.Context, repo Repository, game *models.Game, userID uuid.UUID, notFoundMsg string) error {
	if !game.HasPlayer(userID) {
		return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrNotInGame, notFoundMsg)
	}
	removed, err := repo.RemovePlayer(ctx, game.ID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrNotInGame, notFoundMsg)
	}

	kept := game.Players[:0]
	for _, p := range game.Players {
		if p.UserID != userID {
			kept = append(kept, p)
		}
	}
	game.Players = kept
	if game.CaptainID != nil && *game.CaptainID == userID {
		game.CaptainID = nil
	}
	return nil
}

func (s *service) logRoster(ctx context.Context, msg string, gameID, userID uuid.UUID) {
	ctx = s.logg.WithUserID(s.logg.WithGameID(ctx, gameID.String()), userID.String())
	s.logg.Info(ctx, msg)
}

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
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "game operation failed")
}
