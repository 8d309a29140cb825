package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tournament-ledger/internal/models"
	"tournament-ledger/internal/notify"
)

type DepositService struct {
	UoW      *UnitOfWork
	Ledger   *LedgerService
	Notifier notify.Notifier
}

func NewDepositService(uow *UnitOfWork, ledger *LedgerService, notifier notify.Notifier) *DepositService {
	return &DepositService{UoW: uow, Ledger: ledger, Notifier: notifier}
}

type DepositRequestDTO struct {
	AmountCoins int64  `json:"amountCoins"`
	Method      string `json:"method"`
	ProofRef    string `json:"proofRef"`
}

// RequestDeposit records a pending deposit awaiting manual review of the
// payment proof. The wallet is not touched until the deposit is approved.
func (s *DepositService) RequestDeposit(ctx context.Context, actor Actor, data DepositRequestDTO) (*models.Transaction, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if data.AmountCoins <= 0 {
		return nil, validationf("amountCoins", "must be positive")
	}
	method := strings.TrimSpace(data.Method)
	if method == "" {
		return nil, validationf("method", "is required")
	}
	proof := strings.TrimSpace(data.ProofRef)
	if proof == "" {
		return nil, validationf("proofRef", "a payment proof is required")
	}

	var trx *models.Transaction
	err := s.UoW.Do(ctx, func(tx *gorm.DB) error {
		if err := ensureWallet(tx, actor.UserID); err != nil {
			return err
		}
		var err error
		trx, err = s.Ledger.RecordTransaction(tx, TransactionEntry{
			UserID:      actor.UserID,
			AmountCoins: data.AmountCoins,
			Method:      method,
			Type:        models.TransactionDeposit,
			Status:      models.StatusPending,
			ProofRef:    &proof,
		})
		return err
	})
	if err != nil {
		zap.L().Warn("Deposit request rejected",
			zap.Uint("user_id", actor.UserID),
			zap.Int64("amount", data.AmountCoins),
			zap.Error(err),
		)
		return nil, err
	}

	zap.L().Info("Deposit requested",
		zap.Uint("user_id", actor.UserID),
		zap.Uint("transaction_id", trx.ID),
		zap.Int64("amount", trx.AmountCoins),
	)
	return trx, nil
}

// reviewDeposit settles a pending deposit inside the caller's unit. Approval
// credits the wallet; rejection only closes the transaction.
func (s *DepositService) reviewDeposit(tx *gorm.DB, trx *models.Transaction, action ReviewAction, reviewer uint) (*notify.Notification, error) {
	switch action {
	case ReviewApprove:
		if err := s.Ledger.TransitionTransaction(tx, trx.ID, models.StatusPending, models.StatusApproved, reviewer); err != nil {
			return nil, err
		}
		if _, err := s.Ledger.Credit(tx, trx.UserID, trx.AmountCoins); err != nil {
			return nil, err
		}
		return &notify.Notification{
			UserID: trx.UserID,
			Title:  "Deposit approved",
			Body:   fmt.Sprintf("%d coins were added to your wallet.", trx.AmountCoins),
			Data:   map[string]string{"type": "deposit", "status": string(models.StatusApproved), "transactionId": fmt.Sprint(trx.ID)},
		}, nil
	case ReviewReject:
		if err := s.Ledger.TransitionTransaction(tx, trx.ID, models.StatusPending, models.StatusRejected, reviewer); err != nil {
			return nil, err
		}
		return &notify.Notification{
			UserID: trx.UserID,
			Title:  "Deposit rejected",
			Body:   fmt.Sprintf("Your deposit of %d coins could not be verified.", trx.AmountCoins),
			Data:   map[string]string{"type": "deposit", "status": string(models.StatusRejected), "transactionId": fmt.Sprint(trx.ID)},
		}, nil
	}
	return nil, validationf("action", "must be approve or reject")
}
