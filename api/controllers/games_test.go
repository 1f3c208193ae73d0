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

	"github.com/angelmondragon/turfpay-backend/internal/games"
	"github.com/angelmondragon/turfpay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/turfpay-backend/pkg/errors"
	"github.com/angelmondragon/turfpay-backend/pkg/money"
)

type stubGames struct {
	calls      []string
	filter     games.ListFilter
	created    games.CreateGameInput
	playerID   uuid.UUID
	status     enums.GameStatus
	game       *games.GameDTO
	joinResult *games.JoinResult
	err        error
}

func (s *stubGames) record(name string) (*games.GameDTO, error) {
	s.calls = append(s.calls, name)
	return s.game, s.err
}

func (s *stubGames) ListOpen(_ context.Context, filter games.ListFilter) ([]games.GameDTO, error) {
	s.filter = filter
	if s.game == nil {
		return []games.GameDTO{}, s.err
	}
	return []games.GameDTO{*s.game}, s.err
}

func (s *stubGames) ListMine(context.Context, uuid.UUID) ([]games.GameDTO, error) {
	return []games.GameDTO{}, s.err
}

func (s *stubGames) Roster(_ context.Context, gameID uuid.UUID) (*games.RosterDTO, error) {
	return &games.RosterDTO{GameID: gameID}, s.err
}

func (s *stubGames) Create(_ context.Context, _ uuid.UUID, input games.CreateGameInput) (*games.GameDTO, error) {
	s.created = input
	return s.record("create")
}

func (s *stubGames) AutoJoin(_ context.Context, _ uuid.UUID, filter games.ListFilter) (*games.GameDTO, error) {
	s.filter = filter
	return s.record("auto-join")
}

func (s *stubGames) Join(context.Context, uuid.UUID, uuid.UUID) (*games.GameDTO, error) {
	return s.record("join")
}

func (s *stubGames) Leave(context.Context, uuid.UUID, uuid.UUID) (*games.GameDTO, error) {
	return s.record("leave")
}

func (s *stubGames) AddPlayer(_ context.Context, _, _, playerID uuid.UUID) (*games.GameDTO, error) {
	s.playerID = playerID
	return s.record("add-player")
}

func (s *stubGames) KickPlayer(_ context.Context, _, _, playerID uuid.UUID) (*games.GameDTO, error) {
	s.playerID = playerID
	return s.record("kick")
}

func (s *stubGames) UpdateStatus(_ context.Context, _, _ uuid.UUID, status enums.GameStatus) (*games.GameDTO, error) {
	s.status = status
	return s.record("status")
}

func (s *stubGames) JoinWithWallet(context.Context, uuid.UUID, uuid.UUID) (*games.JoinResult, error) {
	s.calls = append(s.calls, "join-with-wallet")
	return s.joinResult, s.err
}

func sampleGame() *games.GameDTO {
	return &games.GameDTO{ID: uuid.New(), TeamName: "Strikers", TeamSize: 2, Status: enums.GameStatusUpcoming, AvailableSpots: 1, IsOpen: true}
}

func TestGamesListOpenFilters(t *testing.T) {
	svc := &stubGames{game: sampleGame()}
	rec := serve(GamesListOpen(svc, nil), newRequest(http.MethodGet, "/api/v1/games?gameType=football&location=%20Andheri%20&date=2026-03-14", nil, uuid.Nil, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "football", svc.filter.GameType)
	assert.Equal(t, "Andheri", svc.filter.Location)
	require.NotNil(t, svc.filter.Date)
	assert.Equal(t, time.March, svc.filter.Date.Month())

	var out []games.GameDTO
	decodeData(t, rec, &out)
	assert.Len(t, out, 1)

	rec = serve(GamesListOpen(svc, nil), newRequest(http.MethodGet, "/api/v1/games?date=tomorrow", nil, uuid.Nil, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGamesCreate(t *testing.T) {
	svc := &stubGames{game: sampleGame()}
	body := `{"teamName":"Strikers","teamSize":2,"gameType":"football","turfLocation":"Andheri","turfDateTime":"2026-03-14T18:00:00Z","turfPrice":50}`

	rec := serve(GamesCreate(svc, nil), newRequest(http.MethodPost, "/api/v1/games", strings.NewReader(body), uuid.New(), nil))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Strikers", svc.created.TeamName)
	assert.Equal(t, 2, svc.created.TeamSize)
	require.NotNil(t, svc.created.TurfPrice)
	assert.True(t, svc.created.TurfPrice.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 18, svc.created.TurfDateTime.Hour())
}

func TestGamesCreateValidation(t *testing.T) {
	svc := &stubGames{err: pkgerrors.New(pkgerrors.CodeValidation, "Missing fields")}
	rec := serve(GamesCreate(svc, nil), newRequest(http.MethodPost, "/", strings.NewReader(`{"teamName":"x"}`), uuid.New(), nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing fields", decodeError(t, rec).Error.Message)

	rec = serve(GamesCreate(svc, nil), newRequest(http.MethodPost, "/", strings.NewReader(`{"teamSize":500}`), uuid.New(), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGamesRosterRoutes(t *testing.T) {
	gameID := uuid.New()
	playerID := uuid.New()
	params := map[string]string{"gameId": gameID.String(), "playerId": playerID.String()}
	svc := &stubGames{game: sampleGame()}

	cases := []struct {
		name    string
		handler http.HandlerFunc
		body    string
	}{
		{"join", GamesJoin(svc, nil), ""},
		{"leave", GamesLeave(svc, nil), ""},
		{"add-player", GamesAddPlayer(svc, nil), `{"userId":"` + playerID.String() + `"}`},
		{"kick", GamesKickPlayer(svc, nil), ""},
		{"status", GamesUpdateStatus(svc, nil), `{"status":"ongoing"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := newRequest(http.MethodPost, "/", strings.NewReader(tc.body), uuid.New(), params)
			rec := serve(tc.handler, req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tc.name, svc.calls[len(svc.calls)-1])
		})
	}
	assert.Equal(t, playerID, svc.playerID)
	assert.Equal(t, enums.GameStatusOngoing, svc.status)
}

func TestGamesUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc := &stubGames{game: sampleGame()}
	rec := serve(GamesUpdateStatus(svc, nil), newRequest(http.MethodPost, "/", strings.NewReader(`{"status":"paused"}`), uuid.New(), map[string]string{"gameId": uuid.NewString()}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.calls)
}

func TestGamesAddPlayerRequiresUUID(t *testing.T) {
	svc := &stubGames{game: sampleGame()}
	rec := serve(GamesAddPlayer(svc, nil), newRequest(http.MethodPost, "/", strings.NewReader(`{"userId":"bob"}`), uuid.New(), map[string]string{"gameId": uuid.NewString()}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.calls)
}

func TestGamesKickForbidden(t *testing.T) {
	svc := &stubGames{err: pkgerrors.Wrap(pkgerrors.CodeForbidden, games.ErrNotManager, "Not allowed to kick players")}
	rec := serve(GamesKickPlayer(svc, nil), newRequest(http.MethodPost, "/", nil, uuid.New(), map[string]string{"gameId": uuid.NewString(), "playerId": uuid.NewString()}))
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Not allowed to kick players", decodeError(t, rec).Error.Message)
}

func TestGamesAutoJoinNoGame(t *testing.T) {
	svc := &stubGames{err: pkgerrors.Wrap(pkgerrors.CodeNotFound, games.ErrNoOpenGames, "No suitable game found to auto-join")}
	rec := serve(GamesAutoJoin(svc, nil), newRequest(http.MethodPost, "/?gameType=cricket", nil, uuid.New(), nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "cricket", svc.filter.GameType)
}

func TestGamesJoinWithWallet(t *testing.T) {
	gameID := uuid.New()
	svc := &stubGames{joinResult: &games.JoinResult{
		WalletBalance:  money.NewAmount(decimal.NewFromInt(75)),
		AmountDeducted: money.NewAmount(decimal.NewFromInt(25)),
		Game:           games.JoinedGame{ID: gameID, TeamName: "Strikers", Players: 2},
	}}
	rec := serve(GamesJoinWithWallet(svc, nil), newRequest(http.MethodPost, "/", nil, uuid.New(), map[string]string{"gameId": gameID.String()}))

	require.Equal(t, http.StatusOK, rec.Code)
	var out games.JoinResult
	decodeData(t, rec, &out)
	assert.True(t, out.AmountDeducted.Equal(decimal.NewFromInt(25)))
	assert.True(t, out.WalletBalance.Equal(decimal.NewFromInt(75)))
	assert.Equal(t, gameID, out.Game.ID)
}

func TestGamesJoinWithWalletRequiresUser(t *testing.T) {
	svc := &stubGames{}
	rec := serve(GamesJoinWithWallet(svc, nil), newRequest(http.MethodPost, "/", nil, uuid.Nil, map[string]string{"gameId": uuid.NewString()}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, svc.calls)
}
