package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tournament-ledger/internal/database"
	"tournament-ledger/internal/models"
	"tournament-ledger/internal/notify"
	"tournament-ledger/internal/prize"
)

// A captain's first-place count earns a one-off coin bonus at
// BonusWinThreshold and star eligibility at StarWinThreshold.
const (
	BonusWinThreshold = 5
	BonusCoins        = int64(250)
	StarWinThreshold  = 15
)

type WinnerService struct {
	UoW      *UnitOfWork
	Ledger   *LedgerService
	Prizes   *prize.Table
	Notifier notify.Notifier
}

func NewWinnerService(uow *UnitOfWork, ledger *LedgerService, prizes *prize.Table, notifier notify.Notifier) *WinnerService {
	return &WinnerService{UoW: uow, Ledger: ledger, Prizes: prizes, Notifier: notifier}
}

type DeclareWinnerDTO struct {
	TournamentID uint `json:"tournamentId"`
	TeamID       uint `json:"teamId"`
	Placement    int  `json:"placement"`
}

type DeclareWinnerResult struct {
	Winner          models.Winner `json:"winner"`
	CaptainID       uint          `json:"captainId"`
	Balance         int64         `json:"balance"`
	Wins            int           `json:"wins"`
	BonusCredited   bool          `json:"bonusCredited"`
	BecameStar      bool          `json:"becameStar"`
	TournamentEnded bool          `json:"tournamentEnded"`
	TournamentTitle string        `json:"-"`
}

func ordinal(placement int) string {
	switch placement {
	case 1:
		return "1st"
	case 2:
		return "2nd"
	case 3:
		return "3rd"
	}
	return fmt.Sprintf("%dth", placement)
}

// DeclareWinner claims a placement for a team and pays the prize to its
// captain. Everything, including win counting and bonuses, commits together or
// not at all.
func (s *WinnerService) DeclareWinner(ctx context.Context, actor Actor, data DeclareWinnerDTO) (*DeclareWinnerResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if data.Placement < 1 || data.Placement > 3 {
		return nil, validationf("placement", "must be 1, 2 or 3")
	}
	if data.TeamID == 0 {
		return nil, validationf("teamId", "is required")
	}

	var result DeclareWinnerResult
	err := s.UoW.Do(ctx, func(tx *gorm.DB) error {
		result = DeclareWinnerResult{}

		var tournament models.Tournament
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&tournament, data.TournamentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Resource: "tournament", ID: data.TournamentID}
		}
		if err != nil {
			return fmt.Errorf("failed to load tournament: %w", err)
		}
		if tournament.Status == models.TournamentEnded {
			return conflictf("tournament %d has already ended", tournament.ID)
		}
		result.TournamentTitle = tournament.Title

		var team models.Team
		err = tx.Where("id = ? AND tournament_id = ?", data.TeamID, tournament.ID).First(&team).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Resource: "team", ID: data.TeamID}
		}
		if err != nil {
			return fmt.Errorf("failed to load team: %w", err)
		}

		var winners []models.Winner
		if err := tx.Where("tournament_id = ?", tournament.ID).Find(&winners).Error; err != nil {
			return fmt.Errorf("failed to load winners: %w", err)
		}
		for _, w := range winners {
			if w.Placement == data.Placement {
				return conflictf("placement %d of tournament %d is already taken", data.Placement, tournament.ID)
			}
			if w.TeamID == team.ID {
				return conflictf("team %d already holds placement %d", team.ID, w.Placement)
			}
		}

		reward := s.Prizes.RewardFor(tournament.GameType, tournament.Mode, data.Placement)
		if reward <= 0 {
			return &ConfigurationError{Message: fmt.Sprintf("no reward configured for %s-%s placement %d", tournament.GameType, tournament.Mode, data.Placement)}
		}

		winner := models.Winner{
			TournamentID: tournament.ID,
			TeamID:       team.ID,
			Placement:    data.Placement,
			RewardCoins:  reward,
		}
		if err := tx.Create(&winner).Error; err != nil {
			if database.IsDuplicateKey(err) {
				return conflictf("placement %d of tournament %d is already taken", data.Placement, tournament.ID)
			}
			return fmt.Errorf("failed to record winner: %w", err)
		}
		result.Winner = winner
		result.CaptainID = team.CaptainID

		if len(winners)+1 >= 3 {
			err := tx.Model(&models.Tournament{}).
				Where("id = ?", tournament.ID).
				Updates(map[string]interface{}{"status": models.TournamentEnded, "is_open": false}).Error
			if err != nil {
				return fmt.Errorf("failed to end tournament: %w", err)
			}
			result.TournamentEnded = true
		}

		balance, err := s.Ledger.Credit(tx, team.CaptainID, reward)
		if err != nil {
			return err
		}
		tournamentID := tournament.ID
		if _, err := s.Ledger.RecordTransaction(tx, TransactionEntry{
			UserID:       team.CaptainID,
			AmountCoins:  reward,
			Method:       "prize",
			Type:         models.TransactionPrize,
			Status:       models.StatusApproved,
			TournamentID: &tournamentID,
		}); err != nil {
			return err
		}
		result.Balance = balance

		if data.Placement != 1 {
			return nil
		}

		var user models.User
		err = tx.Model(&models.User{}).
			Where("id = ?", team.CaptainID).
			UpdateColumn("wins", gorm.Expr("wins + ?", 1)).Error
		if err != nil {
			return fmt.Errorf("failed to count win: %w", err)
		}
		if err := tx.First(&user, team.CaptainID).Error; err != nil {
			return fmt.Errorf("failed to load user %d: %w", team.CaptainID, err)
		}
		result.Wins = user.Wins

		switch user.Wins {
		case BonusWinThreshold:
			balance, err := s.Ledger.Credit(tx, team.CaptainID, BonusCoins)
			if err != nil {
				return err
			}
			if _, err := s.Ledger.RecordTransaction(tx, TransactionEntry{
				UserID:       team.CaptainID,
				AmountCoins:  BonusCoins,
				Method:       "bonus",
				Type:         models.TransactionBonus,
				Status:       models.StatusApproved,
				TournamentID: &tournamentID,
			}); err != nil {
				return err
			}
			result.Balance = balance
			result.BonusCredited = true
		case StarWinThreshold:
			err := tx.Model(&models.User{}).Where("id = ?", team.CaptainID).UpdateColumn("star_eligible", true).Error
			if err != nil {
				return fmt.Errorf("failed to mark star eligibility: %w", err)
			}
			result.BecameStar = true
		}
		return nil
	})
	if err != nil {
		zap.L().Warn("Winner declaration rejected",
			zap.Uint("tournament_id", data.TournamentID),
			zap.Uint("team_id", data.TeamID),
			zap.Int("placement", data.Placement),
			zap.Error(err),
		)
		return nil, err
	}

	zap.L().Info("Winner settled",
		zap.Uint("tournament_id", result.Winner.TournamentID),
		zap.Uint("team_id", result.Winner.TeamID),
		zap.Int("placement", result.Winner.Placement),
		zap.Int64("reward", result.Winner.RewardCoins),
		zap.Uint("captain_id", result.CaptainID),
		zap.Bool("tournament_ended", result.TournamentEnded),
	)
	s.notifyWinner(ctx, &result)
	return &result, nil
}

func (s *WinnerService) notifyWinner(ctx context.Context, r *DeclareWinnerResult) {
	tournamentID := fmt.Sprint(r.Winner.TournamentID)

	s.Notifier.Notify(ctx, notify.Notification{
		UserID: r.CaptainID,
		Title:  "Prize credited",
		Body:   fmt.Sprintf("Your team finished %s in %s. %d coins were added to your wallet.", ordinal(r.Winner.Placement), r.TournamentTitle, r.Winner.RewardCoins),
		Data: map[string]string{
			"type":         "prize",
			"tournamentId": tournamentID,
			"placement":    fmt.Sprint(r.Winner.Placement),
			"reward":       fmt.Sprint(r.Winner.RewardCoins),
		},
	})

	if r.BonusCredited {
		s.Notifier.Notify(ctx, notify.Notification{
			UserID: r.CaptainID,
			Title:  "Bonus unlocked",
			Body:   fmt.Sprintf("You reached %d wins and earned a %d coin bonus.", BonusWinThreshold, BonusCoins),
			Data:   map[string]string{"type": "bonus", "wins": fmt.Sprint(r.Wins)},
		})
	}
	if r.BecameStar {
		s.Notifier.Notify(ctx, notify.Notification{
			UserID: r.CaptainID,
			Title:  "Star player",
			Body:   fmt.Sprintf("You reached %d wins and are now eligible for star status.", StarWinThreshold),
			Data:   map[string]string{"type": "star", "wins": fmt.Sprint(r.Wins)},
		})
	}
}
