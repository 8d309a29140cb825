package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tournament-ledger/internal/config"
	"tournament-ledger/internal/database"
	"tournament-ledger/internal/models"
	"tournament-ledger/internal/notify"
	"tournament-ledger/internal/prize"
)

var admin = Actor{UserID: 1, Role: models.RoleAdmin}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) ofType(kind string) []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Notification
	for _, n := range r.sent {
		if n.Data["type"] == kind {
			out = append(out, n)
		}
	}
	return out
}

type testEnv struct {
	db           *gorm.DB
	uow          *UnitOfWork
	ledger       *LedgerService
	notifier     *recordingNotifier
	tournaments  *TournamentService
	registration *RegistrationService
	winners      *WinnerService
	deposits     *DepositService
	withdrawals  *WithdrawalService
	reviews      *ReviewService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Connect(config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	uow := NewUnitOfWork(db, sql.LevelSerializable, 3)
	ledger := NewLedgerService(db)
	notifier := &recordingNotifier{}
	prizes := prize.Default()

	deposits := NewDepositService(uow, ledger, notifier)
	withdrawals := NewWithdrawalService(uow, ledger, notifier, 1200)

	return &testEnv{
		db:           db,
		uow:          uow,
		ledger:       ledger,
		notifier:     notifier,
		tournaments:  NewTournamentService(db, prizes),
		registration: NewRegistrationService(uow, ledger, notifier),
		winners:      NewWinnerService(uow, ledger, prizes, notifier),
		deposits:     deposits,
		withdrawals:  withdrawals,
		reviews:      NewReviewService(uow, ledger, deposits, withdrawals, notifier),
	}
}

func (e *testEnv) fund(t *testing.T, userID uint, coins int64) {
	t.Helper()
	err := e.uow.Do(context.Background(), func(tx *gorm.DB) error {
		_, err := e.ledger.Credit(tx, userID, coins)
		return err
	})
	require.NoError(t, err)
}

func (e *testEnv) balance(t *testing.T, userID uint) int64 {
	t.Helper()
	var wallet models.Wallet
	err := e.db.Where("user_id = ?", userID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0
	}
	require.NoError(t, err)
	return wallet.Balance
}

func (e *testEnv) tournament(t *testing.T, gameType models.GameType, mode models.TournamentMode, open bool) models.Tournament {
	t.Helper()
	tournament := models.Tournament{
		Title:     fmt.Sprintf("%s %s Cup", gameType, mode),
		Mode:      mode,
		GameType:  gameType,
		EntryFee:  prize.EntryFeePerPlayer,
		PrizePool: prize.Default().TotalPool(gameType, mode),
		Status:    models.TournamentUpcoming,
		IsOpen:    open,
	}
	require.NoError(t, e.db.Create(&tournament).Error)
	return tournament
}

// team registers a team directly, without charging an entry fee.
func (e *testEnv) team(t *testing.T, tournamentID, captainID uint) models.Team {
	t.Helper()
	team := models.Team{
		Name:         fmt.Sprintf("team-%d", captainID),
		TournamentID: tournamentID,
		CaptainID:    captainID,
		Members: []models.TeamMember{{
			UserID:     &captainID,
			Position:   1,
			Role:       models.RoleCaptain,
			PlayerName: fmt.Sprintf("player-%d", captainID),
			Phone:      "03001234567",
			GameID:     fmt.Sprintf("g-%d", captainID),
		}},
	}
	require.NoError(t, e.db.Create(&team).Error)
	return team
}

func member(name string) MemberDTO {
	return MemberDTO{PlayerName: name, Phone: "03001234567", GameID: "id-" + name}
}

func joinRequest(tournamentID uint, teammates int) JoinTournamentDTO {
	data := JoinTournamentDTO{
		TournamentID: tournamentID,
		TeamName:     "Night Owls",
		Captain:      member("captain"),
	}
	for i := 0; i < teammates; i++ {
		data.TeamMembers = append(data.TeamMembers, member(fmt.Sprintf("mate%d", i+1)))
	}
	return data
}

func user(id uint) Actor {
	return Actor{UserID: id, Role: models.RoleUser}
}
