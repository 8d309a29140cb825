package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tournament-ledger/internal/models"
	"tournament-ledger/internal/notify"
)

// MinWithdrawalCoins is the smallest payout a user can request. The published
// 1200 minimum is a rupee amount, so it converts to 300 coins.
const MinWithdrawalCoins int64 = 1200 / models.CoinToPKR

type WithdrawalService struct {
	UoW      *UnitOfWork
	Ledger   *LedgerService
	Notifier notify.Notifier
	// MaxCoins caps a single request (1200 coins by default); zero disables the cap.
	MaxCoins int64
}

func NewWithdrawalService(uow *UnitOfWork, ledger *LedgerService, notifier notify.Notifier, maxCoins int64) *WithdrawalService {
	return &WithdrawalService{UoW: uow, Ledger: ledger, Notifier: notifier, MaxCoins: maxCoins}
}

type WithdrawRequestDTO struct {
	AmountCoins int64  `json:"amountCoins"`
	Method      string `json:"method"`
	Account     string `json:"account"`
}

type WithdrawResult struct {
	Transaction models.Transaction `json:"transaction"`
	Balance     int64              `json:"balance"`
}

// RequestWithdrawal holds the requested coins immediately and records a
// pending payout carrying the destination account.
func (s *WithdrawalService) RequestWithdrawal(ctx context.Context, actor Actor, data WithdrawRequestDTO) (*WithdrawResult, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if data.AmountCoins < MinWithdrawalCoins {
		return nil, validationf("amountCoins", "minimum withdrawal is %d coins", MinWithdrawalCoins)
	}
	if s.MaxCoins > 0 && data.AmountCoins > s.MaxCoins {
		return nil, validationf("amountCoins", "maximum withdrawal is %d coins", s.MaxCoins)
	}
	method := strings.TrimSpace(data.Method)
	if method == "" {
		return nil, validationf("method", "is required")
	}
	account := strings.TrimSpace(data.Account)
	if account == "" {
		return nil, validationf("account", "is required")
	}

	var result WithdrawResult
	err := s.UoW.Do(ctx, func(tx *gorm.DB) error {
		balance, err := s.Ledger.Debit(tx, actor.UserID, data.AmountCoins)
		if err != nil {
			var nf *NotFoundError
			if errors.As(err, &nf) {
				return &InsufficientFundsError{Required: data.AmountCoins, Available: 0}
			}
			return err
		}

		trx, err := s.Ledger.RecordTransaction(tx, TransactionEntry{
			UserID:      actor.UserID,
			AmountCoins: data.AmountCoins,
			Method:      method,
			Type:        models.TransactionWithdraw,
			Status:      models.StatusPending,
			ProofRef:    &account,
		})
		if err != nil {
			return err
		}
		result = WithdrawResult{Transaction: *trx, Balance: balance}
		return nil
	})
	if err != nil {
		zap.L().Warn("Withdrawal request rejected",
			zap.Uint("user_id", actor.UserID),
			zap.Int64("amount", data.AmountCoins),
			zap.Error(err),
		)
		return nil, err
	}

	zap.L().Info("Withdrawal requested",
		zap.Uint("user_id", actor.UserID),
		zap.Uint("transaction_id", result.Transaction.ID),
		zap.Int64("amount", data.AmountCoins),
	)
	s.Notifier.Notify(ctx, notify.Notification{
		UserID: actor.UserID,
		Title:  "Withdrawal requested",
		Body:   fmt.Sprintf("Your withdrawal of %d coins is awaiting review.", data.AmountCoins),
		Data:   map[string]string{"type": "withdraw", "status": string(models.StatusPending), "transactionId": fmt.Sprint(result.Transaction.ID)},
	})
	return &result, nil
}

// reviewWithdrawal settles a pending withdrawal inside the caller's unit. The
// coins were held at request time, so approval only closes the transaction
// and rejection refunds the hold.
func (s *WithdrawalService) reviewWithdrawal(tx *gorm.DB, trx *models.Transaction, action ReviewAction, reviewer uint) (*notify.Notification, error) {
	switch action {
	case ReviewApprove:
		if err := s.Ledger.TransitionTransaction(tx, trx.ID, models.StatusPending, models.StatusApproved, reviewer); err != nil {
			return nil, err
		}
		return &notify.Notification{
			UserID: trx.UserID,
			Title:  "Withdrawal approved",
			Body:   fmt.Sprintf("Your withdrawal of %d coins (%s PKR) has been sent.", trx.AmountCoins, trx.AmountPKR.StringFixed(2)),
			Data:   map[string]string{"type": "withdraw", "status": string(models.StatusApproved), "transactionId": fmt.Sprint(trx.ID)},
		}, nil
	case ReviewReject:
		if err := s.Ledger.TransitionTransaction(tx, trx.ID, models.StatusPending, models.StatusRejected, reviewer); err != nil {
			return nil, err
		}
		if _, err := s.Ledger.Credit(tx, trx.UserID, trx.AmountCoins); err != nil {
			return nil, err
		}
		return &notify.Notification{
			UserID: trx.UserID,
			Title:  "Withdrawal rejected",
			Body:   fmt.Sprintf("Your withdrawal was rejected and %d coins were returned to your wallet.", trx.AmountCoins),
			Data:   map[string]string{"type": "withdraw", "status": string(models.StatusRejected), "transactionId": fmt.Sprint(trx.ID)},
		}, nil
	}
	return nil, validationf("action", "must be approve or reject")
}
