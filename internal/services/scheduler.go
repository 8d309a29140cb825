package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Scheduler struct {
	Tournaments *TournamentService
	Ledger      *LedgerService
}

func NewScheduler(tournaments *TournamentService, ledger *LedgerService) *Scheduler {
	return &Scheduler{Tournaments: tournaments, Ledger: ledger}
}

// Start registers the periodic jobs and starts the cron runner. The caller
// stops it on shutdown.
func (s *Scheduler) Start() (*cron.Cron, error) {
	c := cron.New()

	// every minute
	if _, err := c.AddFunc("* * * * *", func() {
		if _, err := s.Tournaments.StartDueTournaments(context.Background(), time.Now()); err != nil {
			zap.L().Error("Scheduled tournament start failed", zap.Error(err))
		}
	}); err != nil {
		return nil, err
	}

	// daily at midnight
	if _, err := c.AddFunc("0 0 * * *", func() {
		if _, err := s.Ledger.AuditNegativeBalances(context.Background()); err != nil {
			zap.L().Error("Scheduled wallet audit failed", zap.Error(err))
		}
	}); err != nil {
		return nil, err
	}

	c.Start()
	zap.L().Info("Scheduler started", zap.Int("jobs", len(c.Entries())))
	return c, nil
}
