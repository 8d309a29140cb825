package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"tournament-ledger/internal/models"
)

func review(env *testEnv, id uint, action string) (*ReviewResult, error) {
	return env.reviews.ReviewTransaction(context.Background(), admin, ReviewTransactionDTO{TransactionID: id, Action: action})
}

func requestDeposit(t *testing.T, env *testEnv, userID uint, coins int64) *models.Transaction {
	t.Helper()
	trx, err := env.deposits.RequestDeposit(context.Background(), user(userID), DepositRequestDTO{
		AmountCoins: coins,
		Method:      "jazzcash",
		ProofRef:    "https://proofs.example.com/receipt.png",
	})
	require.NoError(t, err)
	return trx
}

func TestRequestDepositIsPending(t *testing.T) {
	env := newTestEnv(t)

	trx := requestDeposit(t, env, 10, 500)
	assert.Equal(t, models.StatusPending, trx.Status)
	assert.Equal(t, models.TransactionDeposit, trx.Type)
	assert.Equal(t, "2000", trx.AmountPKR.String())
	require.NotNil(t, trx.ProofRef)
	assert.Equal(t, "https://proofs.example.com/receipt.png", *trx.ProofRef)
	assert.Equal(t, int64(0), env.balance(t, 10))
}

func TestRequestDepositValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []DepositRequestDTO{
		{AmountCoins: 0, Method: "jazzcash", ProofRef: "x"},
		{AmountCoins: 10, Method: " ", ProofRef: "x"},
		{AmountCoins: 10, Method: "jazzcash"},
	}
	for _, data := range tests {
		_, err := env.deposits.RequestDeposit(context.Background(), user(10), data)
		var validation *ValidationError
		assert.ErrorAs(t, err, &validation)
	}
}

func TestRequestDepositFailureIsLogged(t *testing.T) {
	env := newTestEnv(t)
	core, logs := observer.New(zapcore.WarnLevel)
	defer zap.ReplaceGlobals(zap.New(core))()

	sqlDB, err := env.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = env.deposits.RequestDeposit(context.Background(), user(10), DepositRequestDTO{
		AmountCoins: 500,
		Method:      "jazzcash",
		ProofRef:    "https://proofs.example.com/receipt.png",
	})
	require.Error(t, err)

	entries := logs.FilterMessage("Deposit request rejected").All()
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(10), entries[0].ContextMap()["user_id"])
	assert.Equal(t, int64(500), entries[0].ContextMap()["amount"])
}

func TestApproveDepositCreditsOnce(t *testing.T) {
	env := newTestEnv(t)
	trx := requestDeposit(t, env, 10, 500)

	res, err := review(env, trx.ID, "approve")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, res.Transaction.Status)
	assert.NotEmpty(t, res.Message)
	assert.Equal(t, int64(500), env.balance(t, 10))

	_, err = review(env, trx.ID, "approve")
	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
	_, err = review(env, trx.ID, "reject")
	assert.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(500), env.balance(t, 10))

	notes := env.notifier.ofType("deposit")
	require.Len(t, notes, 1)
	assert.Equal(t, "approved", notes[0].Data["status"])
}

func TestRejectDepositLeavesBalance(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, 10, 40)
	trx := requestDeposit(t, env, 10, 500)

	res, err := review(env, trx.ID, "reject")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, res.Transaction.Status)
	assert.Equal(t, int64(40), env.balance(t, 10))

	_, err = review(env, trx.ID, "reject")
	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestReviewGuards(t *testing.T) {
	env := newTestEnv(t)
	trx := requestDeposit(t, env, 10, 100)

	_, err := env.reviews.ReviewTransaction(context.Background(), user(10), ReviewTransactionDTO{TransactionID: trx.ID, Action: "approve"})
	var forbidden *ForbiddenError
	assert.ErrorAs(t, err, &forbidden)

	_, err = review(env, trx.ID, "maybe")
	var validation *ValidationError
	assert.ErrorAs(t, err, &validation)

	_, err = review(env, 4242, "approve")
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)

	tournament := env.tournament(t, models.GameBR, models.ModeSolo, true)
	env.fund(t, 11, 50)
	joined, err := env.registration.JoinTournament(context.Background(), user(11), joinRequest(tournament.ID, 0))
	require.NoError(t, err)
	_, err = review(env, joined.Transaction.ID, "reject")
	assert.ErrorAs(t, err, &validation)
	assert.Equal(t, int64(0), env.balance(t, 11))
}

func TestConcurrentApprovalsCreditOnce(t *testing.T) {
	env := newTestEnv(t)
	trx := requestDeposit(t, env, 10, 750)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := review(env, trx.ID, "approve"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(750), env.balance(t, 10))
}

func TestListForReviewDefaultsToPending(t *testing.T) {
	env := newTestEnv(t)
	first := requestDeposit(t, env, 10, 100)
	requestDeposit(t, env, 11, 200)
	_, err := review(env, first.ID, "approve")
	require.NoError(t, err)

	res, err := env.reviews.ListForReview(context.Background(), admin, TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Count)

	_, err = env.reviews.ListForReview(context.Background(), user(10), TransactionFilter{})
	var forbidden *ForbiddenError
	assert.ErrorAs(t, err, &forbidden)
}
