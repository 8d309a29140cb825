package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tournament-ledger/internal/models"
	"tournament-ledger/internal/notify"
	"tournament-ledger/pkg/common"
)

type ReviewAction string

const (
	ReviewApprove ReviewAction = "approve"
	ReviewReject  ReviewAction = "reject"
)

func ParseReviewAction(value string) (ReviewAction, error) {
	switch ReviewAction(strings.ToLower(strings.TrimSpace(value))) {
	case ReviewApprove:
		return ReviewApprove, nil
	case ReviewReject:
		return ReviewReject, nil
	}
	return "", validationf("action", "must be approve or reject")
}

// ReviewService is the admin entry point for pending deposits and withdrawals.
type ReviewService struct {
	UoW         *UnitOfWork
	Ledger      *LedgerService
	Deposits    *DepositService
	Withdrawals *WithdrawalService
	Notifier    notify.Notifier
}

func NewReviewService(uow *UnitOfWork, ledger *LedgerService, deposits *DepositService, withdrawals *WithdrawalService, notifier notify.Notifier) *ReviewService {
	return &ReviewService{UoW: uow, Ledger: ledger, Deposits: deposits, Withdrawals: withdrawals, Notifier: notifier}
}

type ReviewTransactionDTO struct {
	TransactionID uint   `json:"transactionId"`
	Action        string `json:"action"`
}

type ReviewResult struct {
	Transaction models.Transaction `json:"transaction"`
	Message     string             `json:"message"`
}

func (s *ReviewService) ReviewTransaction(ctx context.Context, actor Actor, data ReviewTransactionDTO) (*ReviewResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if data.TransactionID == 0 {
		return nil, validationf("transactionId", "is required")
	}
	action, err := ParseReviewAction(data.Action)
	if err != nil {
		return nil, err
	}

	var (
		trx          models.Transaction
		notification *notify.Notification
	)
	err = s.UoW.Do(ctx, func(tx *gorm.DB) error {
		trx = models.Transaction{}
		notification = nil

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&trx, data.TransactionID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Resource: "transaction", ID: data.TransactionID}
		}
		if err != nil {
			return fmt.Errorf("failed to load transaction: %w", err)
		}
		if trx.Type != models.TransactionDeposit && trx.Type != models.TransactionWithdraw {
			return validationf("transactionId", "%s transactions are settled without review", trx.Type)
		}
		if trx.Status.Terminal() {
			return conflictf("transaction %d is already %s", trx.ID, trx.Status)
		}

		if trx.Type == models.TransactionDeposit {
			notification, err = s.Deposits.reviewDeposit(tx, &trx, action, actor.UserID)
		} else {
			notification, err = s.Withdrawals.reviewWithdrawal(tx, &trx, action, actor.UserID)
		}
		if err != nil {
			return err
		}
		return tx.First(&trx, trx.ID).Error
	})
	if err != nil {
		zap.L().Warn("Transaction review rejected",
			zap.Uint("transaction_id", data.TransactionID),
			zap.String("action", string(action)),
			zap.Uint("reviewer", actor.UserID),
			zap.Error(err),
		)
		return nil, err
	}

	zap.L().Info("Transaction reviewed",
		zap.Uint("transaction_id", trx.ID),
		zap.String("type", string(trx.Type)),
		zap.String("status", string(trx.Status)),
		zap.Uint("reviewer", actor.UserID),
	)
	if notification != nil {
		s.Notifier.Notify(ctx, *notification)
	}

	return &ReviewResult{
		Transaction: trx,
		Message:     fmt.Sprintf("%s transaction %d %s", trx.Type, trx.ID, trx.Status),
	}, nil
}

// ListForReview returns the admin review queue. Without a status filter it
// lists pending transactions.
func (s *ReviewService) ListForReview(ctx context.Context, actor Actor, filter TransactionFilter) (common.PaginationResult, error) {
	if err := requireAdmin(actor); err != nil {
		return common.PaginationResult{}, err
	}
	if filter.Status == "" {
		filter.Status = models.StatusPending
	}
	return s.Ledger.ListTransactions(ctx, filter)
}
