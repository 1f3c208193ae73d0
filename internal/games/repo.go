package games

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/turfpay-backend/pkg/db"
	"github.com/angelmondragon/turfpay-backend/pkg/db/models"
	"github.com/angelmondragon/turfpay-backend/pkg/enums"
)

// ListFilter narrows the open games listing.
type ListFilter struct {
	GameType string
	Location string
	Date     *time.Time
}

// Repository persists games and their rosters. Loaded games always carry
// Players ordered by position.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, game *models.Game) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Game, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.Game, error)
	AddPlayer(ctx context.Context, player *models.GamePlayer) error
	RemovePlayer(ctx context.Context, gameID, userID uuid.UUID) (bool, error)
	Save(ctx context.Context, game *models.Game) error
	ListOpen(ctx context.Context, filter ListFilter) ([]models.Game, error)
	ListByPlayer(ctx context.Context, userID uuid.UUID) ([]models.Game, error)
	FindEarliestOpenExcluding(ctx context.Context, userID uuid.UUID, filter ListFilter) (*models.Game, error)
	ListIDsByStatusBefore(ctx context.Context, status enums.GameStatus, before time.Time, limit int) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, game *models.Game) error {
	if err := r.db.WithContext(ctx).Create(game).Error; err != nil {
		return err
	}
	for i := range game.Players {
		game.Players[i].GameID = game.ID
		if err := r.db.WithContext(ctx).Create(&game.Players[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	var game models.Game
	if err := r.db.WithContext(ctx).First(&game, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := r.attachPlayers(ctx, []*models.Game{&game}); err != nil {
		return nil, err
	}
	return &game, nil
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	var game models.Game
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&game, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := r.attachPlayers(ctx, []*models.Game{&game}); err != nil {
		return nil, err
	}
	return &game, nil
}

func (r *repository) AddPlayer(ctx context.Context, player *models.GamePlayer) error {
	err := r.db.WithContext(ctx).Create(player).Error
	if db.IsUniqueViolation(err, "game_players_pkey", "game_players.game_id") {
		return ErrAlreadyJoined
	}
	return err
}

func (r *repository) RemovePlayer(ctx context.Context, gameID, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("game_id = ? AND user_id = ?", gameID, userID).
		Delete(&models.GamePlayer{})
	return res.RowsAffected > 0, res.Error
}

// Save writes the mutable columns with a version compare-and-swap.
func (r *repository) Save(ctx context.Context, game *models.Game) error {
	if game == nil {
		return errors.New("game required")
	}
	res := r.db.WithContext(ctx).
		Model(&models.Game{}).
		Where("id = ? AND version = ?", game.ID, game.Version).
		Updates(map[string]any{
			"turf_price":      game.TurfPrice,
			"captain_id":      game.CaptainID,
			"status":          game.Status,
			"available_spots": game.AvailableSpots,
			"is_open":         game.IsOpen,
			"version":         gorm.Expr("version + 1"),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return db.ErrConcurrentUpdate
	}
	game.Version++
	return nil
}

func (r *repository) openGames(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Game{}).
		Where("status = ? AND is_open = ? AND available_spots > 0", enums.GameStatusUpcoming, true)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func applyFilter(q *gorm.DB, filter ListFilter) *gorm.DB {
	if gameType := strings.TrimSpace(filter.GameType); gameType != "" {
		q = q.Where("game_type = ?", gameType)
	}
	if location := strings.TrimSpace(filter.Location); location != "" {
		q = q.Where(`LOWER(turf_location) LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(strings.ToLower(location))+"%")
	}
	if filter.Date != nil {
		day := time.Date(filter.Date.Year(), filter.Date.Month(), filter.Date.Day(), 0, 0, 0, 0, time.UTC)
		q = q.Where("turf_date_time >= ? AND turf_date_time < ?", day, day.AddDate(0, 0, 1))
	}
	return q
}

func (r *repository) ListOpen(ctx context.Context, filter ListFilter) ([]models.Game, error) {
	var rows []models.Game
	if err := applyFilter(r.openGames(ctx), filter).
		Order("turf_date_time ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.withPlayers(ctx, rows)
}

func (r *repository) ListByPlayer(ctx context.Context, userID uuid.UUID) ([]models.Game, error) {
	sub := r.db.Model(&models.GamePlayer{}).Select("game_id").Where("user_id = ?", userID)
	var rows []models.Game
	if err := r.db.WithContext(ctx).
		Where("id IN (?)", sub).
		Order("turf_date_time ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.withPlayers(ctx, rows)
}

func (r *repository) FindEarliestOpenExcluding(ctx context.Context, userID uuid.UUID, filter ListFilter) (*models.Game, error) {
	sub := r.db.Model(&models.GamePlayer{}).Select("game_id").Where("user_id = ?", userID)
	var game models.Game
	err := applyFilter(r.openGames(ctx), filter).
		Where("id NOT IN (?)", sub).
		Order("turf_date_time ASC").
		First(&game).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if err := r.attachPlayers(ctx, []*models.Game{&game}); err != nil {
		return nil, err
	}
	return &game, nil
}

func (r *repository) ListIDsByStatusBefore(ctx context.Context, status enums.GameStatus, before time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	q := r.db.WithContext(ctx).
		Model(&models.Game{}).
		Where("status = ? AND turf_date_time <= ?", status, before).
		Order("turf_date_time ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) withPlayers(ctx context.Context, rows []models.Game) ([]models.Game, error) {
	ptrs := make([]*models.Game, len(rows))
	for i := range rows {
		ptrs[i] = &rows[i]
	}
	if err := r.attachPlayers(ctx, ptrs); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.Game{}
	}
	return rows, nil
}

func (r *repository) attachPlayers(ctx context.Context, games []*models.Game) error {
	if len(games) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(games))
	byID := make(map[uuid.UUID]*models.Game, len(games))
	for i, g := range games {
		ids[i] = g.ID
		g.Players = []models.GamePlayer{}
		byID[g.ID] = g
	}
	var players []models.GamePlayer
	if err := r.db.WithContext(ctx).
		Where("game_id IN ?", ids).
		Order("position ASC").
		Find(&players).Error; err != nil {
		return err
	}
	for _, p := range players {
		if g, ok := byID[p.GameID]; ok {
			g.Players = append(g.Players, p)
		}
	}
	return nil
}
