package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tournament-ledger/internal/models"
	"tournament-ledger/internal/prize"
	"tournament-ledger/pkg/common"
)

type TournamentService struct {
	DB     *gorm.DB
	Prizes *prize.Table
}

func NewTournamentService(db *gorm.DB, prizes *prize.Table) *TournamentService {
	return &TournamentService{DB: db, Prizes: prizes}
}

type CreateTournamentDTO struct {
	Title           string     `json:"title"`
	Mode            string     `json:"mode"`
	GameType        string     `json:"gameType"`
	EntryFee        int64      `json:"entryFee"`
	PrizePool       int64      `json:"prizePool"`
	MaxParticipants int        `json:"maxParticipants"`
	StartsAt        *time.Time `json:"startsAt"`
}

// CreateTournament validates the economics against the prize table and stores
// the tournament as upcoming with registration closed.
func (s *TournamentService) CreateTournament(ctx context.Context, actor Actor, data CreateTournamentDTO) (*models.Tournament, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(data.Title)
	if title == "" {
		return nil, validationf("title", "is required")
	}
	mode, err := models.ParseMode(data.Mode)
	if err != nil {
		return nil, validationf("mode", "%v", err)
	}
	gameType, err := models.ParseGameType(data.GameType)
	if err != nil {
		return nil, validationf("gameType", "%v", err)
	}
	if data.EntryFee != prize.EntryFeePerPlayer {
		return nil, validationf("entryFee", "must be %d coins per player", prize.EntryFeePerPlayer)
	}
	pool := s.Prizes.TotalPool(gameType, mode)
	if pool <= 0 {
		return nil, &ConfigurationError{Message: fmt.Sprintf("no prize table for %s-%s", gameType, mode)}
	}
	if data.PrizePool != pool {
		return nil, validationf("prizePool", "must be %d coins for %s %s", pool, gameType, mode)
	}
	if data.MaxParticipants < 0 {
		return nil, validationf("maxParticipants", "cannot be negative")
	}

	tournament := models.Tournament{
		Title:           title,
		Slug:            slug.Make(title),
		Mode:            mode,
		GameType:        gameType,
		EntryFee:        data.EntryFee,
		PrizePool:       data.PrizePool,
		MaxParticipants: data.MaxParticipants,
		Status:          models.TournamentUpcoming,
		IsOpen:          false,
		StartsAt:        data.StartsAt,
	}
	if err := s.DB.WithContext(ctx).Create(&tournament).Error; err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	zap.L().Info("Tournament created",
		zap.Uint("tournament_id", tournament.ID),
		zap.String("mode", string(mode)),
		zap.String("game_type", string(gameType)),
	)
	return &tournament, nil
}

func (s *TournamentService) load(ctx context.Context, id uint) (*models.Tournament, error) {
	var tournament models.Tournament
	err := s.DB.WithContext(ctx).First(&tournament, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "tournament", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tournament: %w", err)
	}
	return &tournament, nil
}

// SetRegistrationOpen opens or closes joining. Only upcoming tournaments can
// be opened.
func (s *TournamentService) SetRegistrationOpen(ctx context.Context, actor Actor, id uint, open bool) (*models.Tournament, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	query := s.DB.WithContext(ctx).Model(&models.Tournament{}).Where("id = ?", id)
	if open {
		query = query.Where("status = ?", models.TournamentUpcoming)
	}
	res := query.Update("is_open", open)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update tournament: %w", res.Error)
	}

	tournament, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 && tournament.IsOpen != open {
		return nil, conflictf("tournament %d is %s and cannot be opened", id, tournament.Status)
	}
	return tournament, nil
}

// StartTournament moves an upcoming tournament to running and closes joining.
func (s *TournamentService) StartTournament(ctx context.Context, actor Actor, id uint) (*models.Tournament, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	res := s.DB.WithContext(ctx).Model(&models.Tournament{}).
		Where("id = ? AND status = ?", id, models.TournamentUpcoming).
		Updates(map[string]interface{}{"status": models.TournamentRunning, "is_open": false})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to start tournament: %w", res.Error)
	}

	tournament, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, conflictf("tournament %d is already %s", id, tournament.Status)
	}
	zap.L().Info("Tournament started", zap.Uint("tournament_id", id))
	return tournament, nil
}

func (s *TournamentService) SetLobbyCode(ctx context.Context, actor Actor, id uint, code string) (*models.Tournament, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, validationf("lobbyCode", "is required")
	}

	tournament, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if tournament.Status == models.TournamentEnded {
		return nil, conflictf("tournament %d has already ended", id)
	}
	if err := s.DB.WithContext(ctx).Model(tournament).Update("lobby_code", code).Error; err != nil {
		return nil, fmt.Errorf("failed to set lobby code: %w", err)
	}
	tournament.LobbyCode = &code
	return tournament, nil
}

// GetTournament returns the tournament with its teams, members and winners.
func (s *TournamentService) GetTournament(ctx context.Context, id uint) (*models.Tournament, error) {
	var tournament models.Tournament
	err := s.DB.WithContext(ctx).
		Preload("Teams.Members", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Winners", func(db *gorm.DB) *gorm.DB { return db.Order("placement ASC") }).
		First(&tournament, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "tournament", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tournament: %w", err)
	}
	return &tournament, nil
}

func (s *TournamentService) ListTournaments(ctx context.Context, status models.TournamentStatus, page, limit int) (common.PaginationResult, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := s.DB.WithContext(ctx).Model(&models.Tournament{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return common.PaginationResult{}, fmt.Errorf("failed to count tournaments: %w", err)
	}
	var tournaments []models.Tournament
	err := query.Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&tournaments).Error
	if err != nil {
		return common.PaginationResult{}, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return common.PaginateResponse(tournaments, total, page, limit, "Tournaments fetched"), nil
}

// StartDueTournaments moves every upcoming tournament whose start time has
// passed to running.
func (s *TournamentService) StartDueTournaments(ctx context.Context, now time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Tournament{}).
		Where("status = ? AND starts_at IS NOT NULL AND starts_at <= ?", models.TournamentUpcoming, now).
		Updates(map[string]interface{}{"status": models.TournamentRunning, "is_open": false})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to start due tournaments: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		zap.L().Info("Started due tournaments", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}
