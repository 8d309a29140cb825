package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournament-ledger/internal/models"
	"tournament-ledger/internal/prize"
)

func declare(env *testEnv, tournamentID, teamID uint, placement int) (*DeclareWinnerResult, error) {
	return env.winners.DeclareWinner(context.Background(), admin, DeclareWinnerDTO{
		TournamentID: tournamentID,
		TeamID:       teamID,
		Placement:    placement,
	})
}

func TestFullWinnerSweep(t *testing.T) {
	env := newTestEnv(t)
	tournament := env.tournament(t, models.GameBR, models.ModeSolo, false)
	first := env.team(t, tournament.ID, 21)
	second := env.team(t, tournament.ID, 22)
	third := env.team(t, tournament.ID, 23)
	spare := env.team(t, tournament.ID, 24)

	res, err := declare(env, tournament.ID, first.ID, 1)
	require.NoError(t, err)
	assert.False(t, res.TournamentEnded)
	_, err = declare(env, tournament.ID, second.ID, 2)
	require.NoError(t, err)
	res, err = declare(env, tournament.ID, third.ID, 3)
	require.NoError(t, err)
	assert.True(t, res.TournamentEnded)

	assert.Equal(t, int64(2500), env.balance(t, 21))
	assert.Equal(t, int64(1500), env.balance(t, 22))
	assert.Equal(t, int64(1000), env.balance(t, 23))

	var stored models.Tournament
	require.NoError(t, env.db.First(&stored, tournament.ID).Error)
	assert.Equal(t, models.TournamentEnded, stored.Status)
	assert.False(t, stored.IsOpen)

	for placement := 1; placement <= 3; placement++ {
		_, err = declare(env, tournament.ID, spare.ID, placement)
		var conflict *ConflictError
		assert.ErrorAs(t, err, &conflict)
	}
	assert.Equal(t, int64(0), env.balance(t, 24))

	var winners []models.Winner
	require.NoError(t, env.db.Where("tournament_id = ?", tournament.ID).Order("placement").Find(&winners).Error)
	require.Len(t, winners, 3)
	assert.Equal(t, int64(2500), winners[0].RewardCoins)
	assert.Equal(t, int64(1000), winners[2].RewardCoins)

	var prizes int64
	env.db.Model(&models.Transaction{}).Where("type = ? AND status = ?", models.TransactionPrize, models.StatusApproved).Count(&prizes)
	assert.Equal(t, int64(3), prizes)
	assert.Len(t, env.notifier.ofType("prize"), 3)

	var captain models.User
	require.NoError(t, env.db.First(&captain, 21).Error)
	assert.Equal(t, 1, captain.Wins)
	var runnerUp models.User
	require.NoError(t, env.db.First(&runnerUp, 22).Error)
	assert.Equal(t, 0, runnerUp.Wins)
}

func TestPrizeGoesToCaptainOnly(t *testing.T) {
	env := newTestEnv(t)
	tournament := env.tournament(t, models.GameBR, models.ModeDuo, true)
	env.fund(t, 30, 100)

	data := joinRequest(tournament.ID, 1)
	res, err := env.registration.JoinTournament(context.Background(), user(30), data)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Balance)

	_, err = declare(env, tournament.ID, res.Team.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3200), env.balance(t, 30))

	var wallets int64
	env.db.Model(&models.Wallet{}).Count(&wallets)
	assert.Equal(t, int64(1), wallets)
}

func TestBonusAtFifthWin(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.db.Create(&models.User{ID: 40, Wins: 4}).Error)

	tournament := env.tournament(t, models.GameBR, models.ModeSolo, false)
	team := env.team(t, tournament.ID, 40)

	res, err := declare(env, tournament.ID, team.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Wins)
	assert.True(t, res.BonusCredited)
	assert.Equal(t, int64(2500+250), env.balance(t, 40))
	assert.Len(t, env.notifier.ofType("bonus"), 1)

	var bonus models.Transaction
	require.NoError(t, env.db.Where("user_id = ? AND type = ?", 40, models.TransactionBonus).First(&bonus).Error)
	assert.Equal(t, int64(250), bonus.AmountCoins)

	next := env.tournament(t, models.GameBR, models.ModeSolo, false)
	nextTeam := env.team(t, next.ID, 40)
	res, err = declare(env, next.ID, nextTeam.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Wins)
	assert.False(t, res.BonusCredited)
	assert.Equal(t, int64(2750+2500), env.balance(t, 40))
	assert.Len(t, env.notifier.ofType("bonus"), 1)
}

func TestSecondPlaceDoesNotCountAsWin(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.db.Create(&models.User{ID: 41, Wins: 4}).Error)

	tournament := env.tournament(t, models.GameBR, models.ModeSolo, false)
	team := env.team(t, tournament.ID, 41)

	res, err := declare(env, tournament.ID, team.ID, 2)
	require.NoError(t, err)
	assert.False(t, res.BonusCredited)
	assert.Equal(t, int64(1500), env.balance(t, 41))

	var u models.User
	require.NoError(t, env.db.First(&u, 41).Error)
	assert.Equal(t, 4, u.Wins)
}

func TestStarEligibilityAtFifteenthWin(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.db.Create(&models.User{ID: 50, Wins: 14}).Error)

	tournament := env.tournament(t, models.GameCS, models.ModeSquad, false)
	team := env.team(t, tournament.ID, 50)

	res, err := declare(env, tournament.ID, team.ID, 1)
	require.NoError(t, err)
	assert.True(t, res.BecameStar)
	assert.False(t, res.BonusCredited)
	assert.Equal(t, int64(3500), env.balance(t, 50))

	var u models.User
	require.NoError(t, env.db.First(&u, 50).Error)
	assert.Equal(t, 15, u.Wins)
	assert.True(t, u.StarEligible)
	assert.Len(t, env.notifier.ofType("star"), 1)
}

func TestMissingRewardRollsBackEverything(t *testing.T) {
	env := newTestEnv(t)
	env.winners.Prizes = &prize.Table{}

	tournament := env.tournament(t, models.GameBR, models.ModeSolo, false)
	team := env.team(t, tournament.ID, 60)

	_, err := declare(env, tournament.ID, team.ID, 1)
	var configErr *ConfigurationError
	require.ErrorAs(t, err, &configErr)

	var winners int64
	env.db.Model(&models.Winner{}).Count(&winners)
	assert.Zero(t, winners)
	assert.Equal(t, int64(0), env.balance(t, 60))
	assert.Empty(t, env.notifier.sent)
}

func TestDeclareWinnerValidation(t *testing.T) {
	env := newTestEnv(t)
	tournament := env.tournament(t, models.GameBR, models.ModeSolo, false)
	other := env.tournament(t, models.GameBR, models.ModeSolo, false)
	team := env.team(t, tournament.ID, 70)
	outsider := env.team(t, other.ID, 71)

	_, err := declare(env, tournament.ID, team.ID, 4)
	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)

	_, err = declare(env, tournament.ID, team.ID, 0)
	assert.ErrorAs(t, err, &validation)

	_, err = declare(env, 999, team.ID, 1)
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)

	_, err = declare(env, tournament.ID, outsider.ID, 1)
	assert.ErrorAs(t, err, &notFound)

	_, err = env.winners.DeclareWinner(context.Background(), user(70), DeclareWinnerDTO{TournamentID: tournament.ID, TeamID: team.ID, Placement: 1})
	var forbidden *ForbiddenError
	assert.ErrorAs(t, err, &forbidden)
}

func TestTeamHoldsOnePlacement(t *testing.T) {
	env := newTestEnv(t)
	tournament := env.tournament(t, models.GameBR, models.ModeSolo, false)
	team := env.team(t, tournament.ID, 80)

	_, err := declare(env, tournament.ID, team.ID, 1)
	require.NoError(t, err)

	_, err = declare(env, tournament.ID, team.ID, 2)
	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(2500), env.balance(t, 80))
}

func TestConcurrentDeclarationsClaimPlacementOnce(t *testing.T) {
	env := newTestEnv(t)
	tournament := env.tournament(t, models.GameBR, models.ModeSolo, false)

	var teams []models.Team
	for i := uint(0); i < 5; i++ {
		teams = append(teams, env.team(t, tournament.ID, 90+i))
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for _, team := range teams {
		wg.Add(1)
		go func(teamID uint) {
			defer wg.Done()
			_, err := declare(env, tournament.ID, teamID, 1)
			mu.Lock()
			defer mu.Unlock()
			var conflict *ConflictError
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorAs(t, err, &conflict):
				conflicts++
			}
		}(team.ID)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 4, conflicts)

	var winners int64
	env.db.Model(&models.Winner{}).Where("tournament_id = ? AND placement = ?", tournament.ID, 1).Count(&winners)
	assert.Equal(t, int64(1), winners)

	var total int64
	env.db.Model(&models.Wallet{}).Select("COALESCE(SUM(balance), 0)").Scan(&total)
	assert.Equal(t, int64(2500), total)
}
