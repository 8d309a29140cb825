package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tournament-ledger/internal/database"
	"tournament-ledger/internal/models"
	"tournament-ledger/internal/notify"
)

type RegistrationService struct {
	UoW      *UnitOfWork
	Ledger   *LedgerService
	Notifier notify.Notifier
}

func NewRegistrationService(uow *UnitOfWork, ledger *LedgerService, notifier notify.Notifier) *RegistrationService {
	return &RegistrationService{UoW: uow, Ledger: ledger, Notifier: notifier}
}

type MemberDTO struct {
	PlayerName string  `json:"playerName"`
	Phone      string  `json:"phone"`
	GameID     string  `json:"gameId"`
	Email      *string `json:"email,omitempty"`
}

type JoinTournamentDTO struct {
	TournamentID uint        `json:"tournamentId"`
	TeamName     string      `json:"teamName"`
	Captain      MemberDTO   `json:"captain"`
	TeamMembers  []MemberDTO `json:"teamMembers"`
}

type JoinResult struct {
	Team        models.Team        `json:"team"`
	Transaction models.Transaction `json:"transaction"`
	Balance     int64              `json:"balance"`
}

func validateMember(field string, m MemberDTO) error {
	if strings.TrimSpace(m.PlayerName) == "" {
		return validationf(field+".playerName", "is required")
	}
	if strings.TrimSpace(m.Phone) == "" {
		return validationf(field+".phone", "is required")
	}
	if strings.TrimSpace(m.GameID) == "" {
		return validationf(field+".gameId", "is required")
	}
	return nil
}

func (m MemberDTO) toModel(position int, role models.MemberRole, userID *uint) models.TeamMember {
	return models.TeamMember{
		UserID:     userID,
		Position:   position,
		Role:       role,
		PlayerName: strings.TrimSpace(m.PlayerName),
		Phone:      strings.TrimSpace(m.Phone),
		GameID:     strings.TrimSpace(m.GameID),
		Email:      m.Email,
	}
}

// JoinTournament registers the caller's team and collects the entry fee for
// every player from the caller's wallet in one atomic unit.
func (s *RegistrationService) JoinTournament(ctx context.Context, actor Actor, data JoinTournamentDTO) (*JoinResult, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if data.TournamentID == 0 {
		return nil, validationf("tournamentId", "is required")
	}
	if err := validateMember("captain", data.Captain); err != nil {
		return nil, err
	}

	var result JoinResult
	var tournament models.Tournament

	err := s.UoW.Do(ctx, func(tx *gorm.DB) error {
		result = JoinResult{}
		tournament = models.Tournament{}

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&tournament, data.TournamentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Resource: "tournament", ID: data.TournamentID}
		}
		if err != nil {
			return fmt.Errorf("failed to load tournament: %w", err)
		}

		if tournament.Status != models.TournamentUpcoming || !tournament.IsOpen {
			return conflictf("registration is closed for tournament %d", tournament.ID)
		}

		size := tournament.Mode.TeamSize()
		if size == 0 {
			return &ConfigurationError{Message: fmt.Sprintf("tournament %d has unknown mode %q", tournament.ID, tournament.Mode)}
		}
		if len(data.TeamMembers) != size-1 {
			return validationf("teamMembers", "%s tournaments need exactly %d teammates, got %d", tournament.Mode, size-1, len(data.TeamMembers))
		}
		for i, m := range data.TeamMembers {
			if err := validateMember(fmt.Sprintf("teamMembers[%d]", i), m); err != nil {
				return err
			}
		}

		if tournament.MaxParticipants > 0 {
			var teams int64
			if err := tx.Model(&models.Team{}).Where("tournament_id = ?", tournament.ID).Count(&teams).Error; err != nil {
				return fmt.Errorf("failed to count teams: %w", err)
			}
			if teams >= int64(tournament.MaxParticipants) {
				return conflictf("tournament %d is full", tournament.ID)
			}
		}

		var existing int64
		err = tx.Model(&models.Team{}).
			Where("tournament_id = ? AND captain_id = ?", tournament.ID, actor.UserID).
			Count(&existing).Error
		if err != nil {
			return fmt.Errorf("failed to check registration: %w", err)
		}
		if existing > 0 {
			return conflictf("user %d is already registered in tournament %d", actor.UserID, tournament.ID)
		}

		fee := tournament.EntryFee * int64(size)
		balance, err := s.Ledger.Debit(tx, actor.UserID, fee)
		if err != nil {
			var nf *NotFoundError
			if errors.As(err, &nf) {
				return &InsufficientFundsError{Required: fee, Available: 0}
			}
			return err
		}
		result.Balance = balance

		teamName := strings.TrimSpace(data.TeamName)
		if teamName == "" {
			teamName = strings.TrimSpace(data.Captain.PlayerName)
		}
		captainID := actor.UserID
		team := models.Team{
			Name:         teamName,
			TournamentID: tournament.ID,
			CaptainID:    actor.UserID,
			Members:      []models.TeamMember{data.Captain.toModel(1, models.RoleCaptain, &captainID)},
		}
		for i, m := range data.TeamMembers {
			team.Members = append(team.Members, m.toModel(i+2, models.RoleMember, nil))
		}
		if err := tx.Create(&team).Error; err != nil {
			if database.IsDuplicateKey(err) {
				return conflictf("user %d is already registered in tournament %d", actor.UserID, tournament.ID)
			}
			return fmt.Errorf("failed to create team: %w", err)
		}
		result.Team = team

		tournamentID := tournament.ID
		trx, err := s.Ledger.RecordTransaction(tx, TransactionEntry{
			UserID:       actor.UserID,
			AmountCoins:  fee,
			Method:       "wallet",
			Type:         models.TransactionEntry,
			Status:       models.StatusApproved,
			TournamentID: &tournamentID,
		})
		if err != nil {
			return err
		}
		result.Transaction = *trx
		return nil
	})
	if err != nil {
		zap.L().Warn("Tournament registration rejected",
			zap.Uint("user_id", actor.UserID),
			zap.Uint("tournament_id", data.TournamentID),
			zap.Error(err),
		)
		return nil, err
	}

	zap.L().Info("Tournament registration settled",
		zap.Uint("user_id", actor.UserID),
		zap.Uint("tournament_id", tournament.ID),
		zap.Uint("team_id", result.Team.ID),
		zap.Int64("fee", result.Transaction.AmountCoins),
	)

	s.Notifier.Notify(ctx, notify.Notification{
		UserID: actor.UserID,
		Title:  "Registration confirmed",
		Body:   fmt.Sprintf("Team %s is registered for %s. %d coins were deducted.", result.Team.Name, tournament.Title, result.Transaction.AmountCoins),
		Data: map[string]string{
			"type":         "registration",
			"tournamentId": fmt.Sprint(tournament.ID),
			"teamId":       fmt.Sprint(result.Team.ID),
		},
	})

	return &result, nil
}
