package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournament-ledger/internal/config"
	"tournament-ledger/internal/models"
)

func TestWithdrawalRejectRefunds(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, 10, 1000)

	res, err := env.withdrawals.RequestWithdrawal(context.Background(), user(10), WithdrawRequestDTO{
		AmountCoins: 300,
		Method:      "easypaisa",
		Account:     "03001234567",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(700), res.Balance)
	assert.Equal(t, int64(700), env.balance(t, 10))
	assert.Equal(t, models.StatusPending, res.Transaction.Status)
	require.NotNil(t, res.Transaction.ProofRef)
	assert.Equal(t, "03001234567", *res.Transaction.ProofRef)

	reviewed, err := review(env, res.Transaction.ID, "reject")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, reviewed.Transaction.Status)
	assert.Equal(t, int64(1000), env.balance(t, 10))

	_, err = review(env, res.Transaction.ID, "reject")
	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(1000), env.balance(t, 10))
}

func TestWithdrawalApproveKeepsHold(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, 10, 1000)

	res, err := env.withdrawals.RequestWithdrawal(context.Background(), user(10), WithdrawRequestDTO{AmountCoins: 400, Method: "bank", Account: "PK36SCBL0000001123456702"})
	require.NoError(t, err)

	_, err = review(env, res.Transaction.ID, "approve")
	require.NoError(t, err)
	assert.Equal(t, int64(600), env.balance(t, 10))

	notes := env.notifier.ofType("withdraw")
	require.Len(t, notes, 2)
	assert.Equal(t, "pending", notes[0].Data["status"])
	assert.Equal(t, "approved", notes[1].Data["status"])
}

func TestWithdrawalLimits(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, 10, 10000)

	tests := []struct {
		name string
		data WithdrawRequestDTO
	}{
		{"below minimum", WithdrawRequestDTO{AmountCoins: MinWithdrawalCoins - 1, Method: "bank", Account: "acc"}},
		{"above maximum", WithdrawRequestDTO{AmountCoins: 1201, Method: "bank", Account: "acc"}},
		{"missing account", WithdrawRequestDTO{AmountCoins: 300, Method: "bank"}},
		{"missing method", WithdrawRequestDTO{AmountCoins: 300, Account: "acc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.withdrawals.RequestWithdrawal(context.Background(), user(10), tt.data)
			var validation *ValidationError
			assert.ErrorAs(t, err, &validation)
		})
	}
	assert.Equal(t, int64(10000), env.balance(t, 10))
}

func TestWithdrawalInsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	env.fund(t, 10, 299)

	_, err := env.withdrawals.RequestWithdrawal(context.Background(), user(10), WithdrawRequestDTO{AmountCoins: 300, Method: "bank", Account: "acc"})
	var insufficient *InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(1), insufficient.Shortfall())

	var pending int64
	env.db.Model(&models.Transaction{}).Where("type = ?", models.TransactionWithdraw).Count(&pending)
	assert.Zero(t, pending)
}

func TestWithdrawalDefaultCap(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("LEDGER_ISOLATION", "")
	t.Setenv("WITHDRAWAL_MAX_COINS", "")
	cfg, err := config.Load()
	require.NoError(t, err)

	env := newTestEnv(t)
	env.fund(t, 10, 10000)
	svc := NewWithdrawalService(env.uow, env.ledger, env.notifier, cfg.Ledger.MaxWithdrawalCoins)

	_, err = svc.RequestWithdrawal(context.Background(), user(10), WithdrawRequestDTO{AmountCoins: 1201, Method: "bank", Account: "acc"})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "amountCoins", validation.Field)
	assert.Equal(t, int64(10000), env.balance(t, 10))

	res, err := svc.RequestWithdrawal(context.Background(), user(10), WithdrawRequestDTO{AmountCoins: 1200, Method: "bank", Account: "acc"})
	require.NoError(t, err)
	assert.Equal(t, int64(8800), res.Balance)
}
