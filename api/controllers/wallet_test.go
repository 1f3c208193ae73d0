package controllers

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/turfpay-backend/internal/ledger"
	"github.com/angelmondragon/turfpay-backend/internal/settlement"
	"github.com/angelmondragon/turfpay-backend/internal/topup"
	"github.com/angelmondragon/turfpay-backend/internal/wallet"
	"github.com/angelmondragon/turfpay-backend/pkg/db/models"
	"github.com/angelmondragon/turfpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/turfpay-backend/pkg/errors"
	"github.com/angelmondragon/turfpay-backend/pkg/money"
	"github.com/angelmondragon/turfpay-backend/pkg/pagination"
)

type stubTopup struct {
	gotAmount decimal.Decimal
	gotInput  topup.VerifyInput
	gotUser   uuid.UUID
	order     *topup.OrderResult
	credit    *topup.CreditResult
	err       error
}

func (s *stubTopup) CreateOrder(_ context.Context, userID uuid.UUID, amount decimal.Decimal) (*topup.OrderResult, error) {
	s.gotUser = userID
	s.gotAmount = amount
	return s.order, s.err
}

func (s *stubTopup) VerifyAndCredit(_ context.Context, userID uuid.UUID, input topup.VerifyInput) (*topup.CreditResult, error) {
	s.gotUser = userID
	s.gotInput = input
	return s.credit, s.err
}

type stubWalletReader struct {
	balance decimal.Decimal
	summary *wallet.Summary
	recent  int
	err     error
}

func (s *stubWalletReader) Balance(context.Context, uuid.UUID) (decimal.Decimal, error) {
	return s.balance, s.err
}

func (s *stubWalletReader) Summary(_ context.Context, _ uuid.UUID, recent int) (*wallet.Summary, error) {
	s.recent = recent
	return s.summary, s.err
}

type stubLedgerQuery struct {
	got pagination.Params
}

func (s *stubLedgerQuery) Query(_ context.Context, _ uuid.UUID, params pagination.Params) (*ledger.Page, error) {
	s.got = params
	n := params.Normalize()
	return &ledger.Page{Transactions: []models.WalletTransaction{}, Pagination: pagination.NewMeta(n, 0)}, nil
}

type stubSettlement struct {
	gotPrice *decimal.Decimal
	gotGame  uuid.UUID
	result   *settlement.PayShareResult
	status   *settlement.GameStatus
	err      error
}

func (s *stubSettlement) PayShare(_ context.Context, _ uuid.UUID, gameID uuid.UUID, price *decimal.Decimal) (*settlement.PayShareResult, error) {
	s.gotGame = gameID
	s.gotPrice = price
	return s.result, s.err
}

func (s *stubSettlement) GameStatus(_ context.Context, gameID uuid.UUID) (*settlement.GameStatus, error) {
	s.gotGame = gameID
	return s.status, s.err
}

func TestWalletCreateOrder(t *testing.T) {
	userID := uuid.New()
	svc := &stubTopup{order: &topup.OrderResult{OrderID: "order_1", Amount: money.NewAmount(decimal.RequireFromString("100.5")), Currency: "INR", KeyID: "rzp_test"}}

	rec := serve(WalletCreateOrder(svc, nil), newRequest(http.MethodPost, "/api/v1/wallet/create-order", strings.NewReader(`{"amount":100.5}`), userID, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, svc.gotUser)
	assert.True(t, svc.gotAmount.Equal(decimal.RequireFromString("100.5")))

	var out map[string]any
	decodeData(t, rec, &out)
	assert.Equal(t, "order_1", out["orderId"])
	assert.Equal(t, "rzp_test", out["keyId"])
	assert.Equal(t, "100.50", out["amount"])
}

func TestWalletCreateOrderRequiresAmount(t *testing.T) {
	svc := &stubTopup{}
	rec := serve(WalletCreateOrder(svc, nil), newRequest(http.MethodPost, "/", strings.NewReader(`{}`), uuid.New(), nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), decodeError(t, rec).Error.Code)
}

func TestWalletCreateOrderGatewayUnavailable(t *testing.T) {
	svc := &stubTopup{err: pkgerrors.Wrap(pkgerrors.CodeDependency, topup.ErrGatewayUnavailable, "Payment gateway not configured")}
	rec := serve(WalletCreateOrder(svc, nil), newRequest(http.MethodPost, "/", strings.NewReader(`{"amount":10}`), uuid.New(), nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Payment gateway not configured", decodeError(t, rec).Error.Message)
}

func TestWalletCreateOrderRequiresUser(t *testing.T) {
	rec := serve(WalletCreateOrder(&stubTopup{}, nil), newRequest(http.MethodPost, "/", strings.NewReader(`{"amount":10}`), uuid.Nil, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWalletVerifyAndCredit(t *testing.T) {
	userID := uuid.New()
	svc := &stubTopup{credit: &topup.CreditResult{TransactionID: uuid.New(), AmountCredited: money.NewAmount(decimal.RequireFromString("500.50")), WalletBalance: money.NewAmount(decimal.RequireFromString("500.50"))}}
	body := `{"razorpay_order_id":"order_1","razorpay_payment_id":"pay_1","razorpay_signature":"sig"}`

	rec := serve(WalletVerifyAndCredit(svc, nil), newRequest(http.MethodPost, "/", strings.NewReader(body), userID, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, topup.VerifyInput{OrderID: "order_1", PaymentID: "pay_1", Signature: "sig"}, svc.gotInput)

	var out struct {
		AmountCredited   decimal.Decimal `json:"amountCredited"`
		AlreadyProcessed bool            `json:"alreadyProcessed"`
	}
	decodeData(t, rec, &out)
	assert.True(t, out.AmountCredited.Equal(decimal.RequireFromString("500.50")))
	assert.False(t, out.AlreadyProcessed)
}

func TestWalletVerifySignatureMismatch(t *testing.T) {
	svc := &stubTopup{err: pkgerrors.Wrap(pkgerrors.CodeBusinessRule, topup.ErrSignatureMismatch, "Invalid payment signature")}
	rec := serve(WalletVerifyAndCredit(svc, nil), newRequest(http.MethodPost, "/", strings.NewReader(`{"razorpay_order_id":"o","razorpay_payment_id":"p","razorpay_signature":"forged"}`), uuid.New(), nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeBusinessRule), decodeError(t, rec).Error.Code)
}

func TestWalletBalance(t *testing.T) {
	svc := &stubWalletReader{balance: decimal.RequireFromString("75.00")}
	rec := serve(WalletBalance(svc, nil), newRequest(http.MethodGet, "/", nil, uuid.New(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.JSONEq(t, `{"data":{"balance":"75.00"}}`, rec.Body.String())

	var out balanceResponse
	decodeData(t, rec, &out)
	assert.True(t, out.Balance.Equal(decimal.NewFromInt(75)))
}

func TestWalletMeUsesRecentLimit(t *testing.T) {
	gameID := uuid.New()
	svc := &stubWalletReader{summary: &wallet.Summary{
		Balance:      money.NewAmount(decimal.NewFromInt(75)),
		Transactions: []models.WalletTransaction{},
		GamePayments: []wallet.GamePayment{{GameID: gameID, Amount: money.NewAmount(decimal.NewFromInt(25)), Status: enums.PaymentStatusPaid, PaidAt: time.Now()}},
	}}
	rec := serve(WalletMe(svc, nil), newRequest(http.MethodGet, "/", nil, uuid.New(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ledger.DefaultRecentLimit, svc.recent)

	var out wallet.Summary
	decodeData(t, rec, &out)
	require.Len(t, out.GamePayments, 1)
	assert.Equal(t, gameID, out.GamePayments[0].GameID)
}

func TestWalletTransactionsPagination(t *testing.T) {
	svc := &stubLedgerQuery{}
	rec := serve(WalletTransactions(svc, nil), newRequest(http.MethodGet, "/?page=3&limit=500", nil, uuid.New(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pagination.Params{Page: 3, Limit: 500}, svc.got)

	var out ledger.Page
	decodeData(t, rec, &out)
	assert.Equal(t, pagination.MaxLimit, out.Pagination.Limit)

	rec = serve(WalletTransactions(svc, nil), newRequest(http.MethodGet, "/", nil, uuid.New(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pagination.Params{Page: pagination.DefaultPage, Limit: pagination.DefaultLimit}, svc.got)

	rec = serve(WalletTransactions(svc, nil), newRequest(http.MethodGet, "/?page=abc", nil, uuid.New(), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWalletPayShare(t *testing.T) {
	gameID := uuid.New()
	svc := &stubSettlement{result: &settlement.PayShareResult{GameID: gameID, AmountPaid: money.NewAmount(decimal.NewFromInt(25)), WalletBalance: money.NewAmount(decimal.NewFromInt(75))}}
	params := map[string]string{"gameId": gameID.String()}

	rec := serve(WalletPayShare(svc, nil), newRequest(http.MethodPost, "/", nil, uuid.New(), params))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, gameID, svc.gotGame)
	assert.Nil(t, svc.gotPrice)

	rec = serve(WalletPayShare(svc, nil), newRequest(http.MethodPost, "/", strings.NewReader(`{"price":90.005}`), uuid.New(), params))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.gotPrice)
	assert.Equal(t, "90.005", svc.gotPrice.String())
}

func TestWalletPayShareErrors(t *testing.T) {
	svc := &stubSettlement{err: pkgerrors.Wrap(pkgerrors.CodeForbidden, settlement.ErrNotAParticipant, "You are not a participant in this game")}

	rec := serve(WalletPayShare(svc, nil), newRequest(http.MethodPost, "/", nil, uuid.New(), map[string]string{"gameId": "not-a-uuid"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(WalletPayShare(svc, nil), newRequest(http.MethodPost, "/", nil, uuid.New(), map[string]string{"gameId": uuid.NewString()}))
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You are not a participant in this game", decodeError(t, rec).Error.Message)
}

func TestWalletPayShareInsufficientBalance(t *testing.T) {
	svc := &stubSettlement{err: wallet.InsufficientBalance(decimal.NewFromInt(25), decimal.NewFromInt(10))}
	rec := serve(WalletPayShare(svc, nil), newRequest(http.MethodPost, "/", nil, uuid.New(), map[string]string{"gameId": uuid.NewString()}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeError(t, rec)
	assert.Equal(t, string(pkgerrors.CodeBusinessRule), env.Error.Code)
	assert.Equal(t, "15.00", env.Error.Details["shortfall"])
	assert.Equal(t, "25.00", env.Error.Details["required"])
}

func TestWalletGameStatus(t *testing.T) {
	gameID := uuid.New()
	svc := &stubSettlement{status: &settlement.GameStatus{GameID: gameID, AmountPerPlayer: money.NewAmount(decimal.NewFromInt(25)), PaidCount: 1, PendingCount: 1}}
	rec := serve(WalletGameStatus(svc, nil), newRequest(http.MethodGet, "/", nil, uuid.New(), map[string]string{"gameId": gameID.String()}))
	require.Equal(t, http.StatusOK, rec.Code)

	var out settlement.GameStatus
	decodeData(t, rec, &out)
	assert.Equal(t, 1, out.PaidCount)
	assert.True(t, out.AmountPerPlayer.Equal(decimal.NewFromInt(25)))
}
