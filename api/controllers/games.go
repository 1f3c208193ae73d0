package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/turfpay-backend/api/responses"
	"github.com/angelmondragon/turfpay-backend/api/validators"
	"github.com/angelmondragon/turfpay-backend/internal/games"
	"github.com/angelmondragon/turfpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/turfpay-backend/pkg/errors"
	"github.com/angelmondragon/turfpay-backend/pkg/logger"
)

type gameBrowser interface {
	ListOpen(ctx context.Context, filter games.ListFilter) ([]games.GameDTO, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]games.GameDTO, error)
	Roster(ctx context.Context, gameID uuid.UUID) (*games.RosterDTO, error)
}

type gameCreator interface {
	Create(ctx context.Context, creatorID uuid.UUID, input games.CreateGameInput) (*games.GameDTO, error)
}

type gameAutoJoiner interface {
	AutoJoin(ctx context.Context, userID uuid.UUID, filter games.ListFilter) (*games.GameDTO, error)
}

type rosterMutator interface {
	Join(ctx context.Context, userID, gameID uuid.UUID) (*games.GameDTO, error)
	Leave(ctx context.Context, userID, gameID uuid.UUID) (*games.GameDTO, error)
	AddPlayer(ctx context.Context, actorID, gameID, playerID uuid.UUID) (*games.GameDTO, error)
	KickPlayer(ctx context.Context, actorID, gameID, playerID uuid.UUID) (*games.GameDTO, error)
	UpdateStatus(ctx context.Context, actorID, gameID uuid.UUID, status enums.GameStatus) (*games.GameDTO, error)
}

type walletJoiner interface {
	JoinWithWallet(ctx context.Context, userID, gameID uuid.UUID) (*games.JoinResult, error)
}

// Missing fields are reported by the service; only upper bounds are checked here.
type createGameRequest struct {
	TeamName     string           `json:"teamName" validate:"max=120"`
	TeamSize     int              `json:"teamSize" validate:"max=100"`
	GameType     string           `json:"gameType" validate:"max=64"`
	TurfLocation string           `json:"turfLocation" validate:"max=255"`
	TurfDateTime time.Time        `json:"turfDateTime"`
	TurfPrice    *decimal.Decimal `json:"turfPrice"`
}

type addPlayerRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=upcoming ongoing finished cancelled"`
}

func listFilterFromQuery(r *http.Request) (games.ListFilter, error) {
	date, err := validators.ParseQueryDate(r, "date")
	if err != nil {
		return games.ListFilter{}, err
	}
	q := r.URL.Query()
	return games.ListFilter{
		GameType: validators.SanitizeString(q.Get("gameType"), 64),
		Location: validators.SanitizeString(q.Get("location"), 255),
		Date:     date,
	}, nil
}

// GamesListOpen lists open upcoming games. Filters: gameType, location, date.
func GamesListOpen(svc gameBrowser, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "games")
			return
		}
		filter, err := listFilterFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListOpen(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GamesListMine(svc gameBrowser, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "games")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		list, err := svc.ListMine(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GamesRoster(svc gameBrowser, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "games")
			return
		}
		gameID, err := validators.PathUUID(r, "gameId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		roster, err := svc.Roster(r.Context(), gameID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, roster)
	}
}

// GamesCreate schedules a game with the caller as creator, captain and first player.
func GamesCreate(svc gameCreator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "games")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		var body createGameRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		game, err := svc.Create(r.Context(), userID, games.CreateGameInput{
			TeamName:     body.TeamName,
			TeamSize:     body.TeamSize,
			GameType:     body.GameType,
			TurfLocation: body.TurfLocation,
			TurfDateTime: body.TurfDateTime,
			TurfPrice:    body.TurfPrice,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, game)
	}
}

// GamesAutoJoin puts the caller into the earliest open game they are not in,
// narrowed by the same filters as the open list.
func GamesAutoJoin(svc gameAutoJoiner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "games")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		filter, err := listFilterFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		game, err := svc.AutoJoin(r.Context(), userID, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, game)
	}
}

type rosterAction func(ctx context.Context, svc rosterMutator, userID, gameID uuid.UUID, r *http.Request) (*games.GameDTO, error)

func rosterHandler(svc rosterMutator, logg *logger.Logger, action rosterAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "games")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		gameID, err := validators.PathUUID(r, "gameId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		game, err := action(r.Context(), svc, userID, gameID, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, game)
	}
}

// GamesJoin adds the caller to the roster without charging the wallet.
func GamesJoin(svc rosterMutator, logg *logger.Logger) http.HandlerFunc {
	return rosterHandler(svc, logg, func(ctx context.Context, svc rosterMutator, userID, gameID uuid.UUID, _ *http.Request) (*games.GameDTO, error) {
		return svc.Join(ctx, userID, gameID)
	})
}

func GamesLeave(svc rosterMutator, logg *logger.Logger) http.HandlerFunc {
	return rosterHandler(svc, logg, func(ctx context.Context, svc rosterMutator, userID, gameID uuid.UUID, _ *http.Request) (*games.GameDTO, error) {
		return svc.Leave(ctx, userID, gameID)
	})
}

func GamesAddPlayer(svc rosterMutator, logg *logger.Logger) http.HandlerFunc {
	return rosterHandler(svc, logg, func(ctx context.Context, svc rosterMutator, userID, gameID uuid.UUID, r *http.Request) (*games.GameDTO, error) {
		var body addPlayerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		playerID, err := uuid.Parse(strings.TrimSpace(body.UserID))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
		}
		return svc.AddPlayer(ctx, userID, gameID, playerID)
	})
}

func GamesKickPlayer(svc rosterMutator, logg *logger.Logger) http.HandlerFunc {
	return rosterHandler(svc, logg, func(ctx context.Context, svc rosterMutator, userID, gameID uuid.UUID, r *http.Request) (*games.GameDTO, error) {
		playerID, err := validators.PathUUID(r, "playerId")
		if err != nil {
			return nil, err
		}
		return svc.KickPlayer(ctx, userID, gameID, playerID)
	})
}

func GamesUpdateStatus(svc rosterMutator, logg *logger.Logger) http.HandlerFunc {
	return rosterHandler(svc, logg, func(ctx context.Context, svc rosterMutator, userID, gameID uuid.UUID, r *http.Request) (*games.GameDTO, error) {
		var body updateStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.UpdateStatus(ctx, userID, gameID, enums.GameStatus(body.Status))
	})
}

// GamesJoinWithWallet charges the caller's share and adds them to the roster.
func GamesJoinWithWallet(svc walletJoiner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "games")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}
		gameID, err := validators.PathUUID(r, "gameId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.JoinWithWallet(r.Context(), userID, gameID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
