package controllers

import (
	"context"
	"math"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/turfpay-backend/api/responses"
	"github.com/angelmondragon/turfpay-backend/api/validators"
	"github.com/angelmondragon/turfpay-backend/internal/ledger"
	"github.com/angelmondragon/turfpay-backend/internal/settlement"
	"github.com/angelmondragon/turfpay-backend/internal/topup"
	"github.com/angelmondragon/turfpay-backend/internal/wallet"
	"github.com/angelmondragon/turfpay-backend/pkg/logger"
	"github.com/angelmondragon/turfpay-backend/pkg/money"
	"github.com/angelmondragon/turfpay-backend/pkg/pagination"
)

type walletReader interface {
	Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	Summary(ctx context.Context, userID uuid.UUID, recent int) (*wallet.Summary, error)
}

type transactionQuerier interface {
	Query(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ledger.Page, error)
}

type createOrderRequest struct {
	Amount *decimal.Decimal `json:"amount" validate:"required"`
}

type payShareRequest struct {
	Price *decimal.Decimal `json:"price"`
}

type balanceResponse struct {
	Balance money.Amount `json:"balance"`
}

// WalletCreateOrder opens a gateway order for a wallet top-up.
func WalletCreateOrder(svc topup.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "topup")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreateOrder(r.Context(), userID, *body.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// WalletVerifyAndCredit confirms a checkout callback and credits the wallet.
func WalletVerifyAndCredit(svc topup.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "topup")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		var body topup.VerifyInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.VerifyAndCredit(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func WalletBalance(svc walletReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "wallet")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		balance, err := svc.Balance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, balanceResponse{Balance: money.NewAmount(balance)})
	}
}

// WalletMe returns the balance with the most recent ledger entries and game payments.
func WalletMe(svc walletReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "wallet")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		summary, err := svc.Summary(r.Context(), userID, ledger.DefaultRecentLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// WalletTransactions pages through the caller's ledger, newest first. Limits
// above the maximum are clamped rather than rejected.
func WalletTransactions(svc transactionQuerier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "ledger")
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		page, err := validators.ParseQueryInt(r, "page", pagination.DefaultPage, 1, math.MaxInt32)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, math.MaxInt32)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Query(r.Context(), userID, pagination.Params{Page: page, Limit: limit})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func WalletGameStatus(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "settlement")
			return
		}
		if _, ok := requireUser(w, r, logg); !ok {
			return
		}
		gameID, err := validators.PathUUID(r, "gameId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.GameStatus(r.Context(), gameID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// WalletPayShare settles the caller's share of a game. The optional price sets
// the game's turf price first.
func WalletPayShare(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "settlement")
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

		var body payShareRequest
		if err := validators.DecodeOptionalJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.PayShare(r.Context(), userID, gameID, body.Price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
