package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tournament-ledger/internal/models"
	"tournament-ledger/pkg/common"
)

// LedgerService owns every balance mutation. The tx-scoped methods must be
// called with the handle of an open atomic unit; they never commit on their own.
type LedgerService struct {
	DB *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{DB: db}
}

type TransactionEntry struct {
	UserID       uint
	AmountCoins  int64
	Method       string
	Type         models.TransactionType
	Status       models.TransactionStatus
	ProofRef     *string
	TournamentID *uint
}

// Credit adds amount to the user's wallet, creating the wallet if it does not
// exist yet, and returns the new balance.
func (s *LedgerService) Credit(tx *gorm.DB, userID uint, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, validationf("amount", "credit amount must be positive, got %d", amount)
	}
	if err := ensureWallet(tx, userID); err != nil {
		return 0, err
	}

	res := tx.Model(&models.Wallet{}).
		Where("user_id = ?", userID).
		UpdateColumns(map[string]interface{}{
			"balance":    gorm.Expr("balance + ?", amount),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to credit wallet of user %d: %w", userID, res.Error)
	}
	return s.balance(tx, userID)
}

// Debit removes amount from the user's wallet. The balance check and the
// decrement are one conditional statement, so a debit can never take the
// balance below zero regardless of concurrent units.
func (s *LedgerService) Debit(tx *gorm.DB, userID uint, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, validationf("amount", "debit amount must be positive, got %d", amount)
	}

	res := tx.Model(&models.Wallet{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		UpdateColumns(map[string]interface{}{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to debit wallet of user %d: %w", userID, res.Error)
	}

	if res.RowsAffected == 0 {
		var wallet models.Wallet
		err := tx.Where("user_id = ?", userID).First(&wallet).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, &NotFoundError{Resource: "wallet"}
		}
		if err != nil {
			return 0, fmt.Errorf("failed to load wallet of user %d: %w", userID, err)
		}
		return 0, &InsufficientFundsError{Required: amount, Available: wallet.Balance}
	}
	return s.balance(tx, userID)
}

// LockedBalance reads the balance while holding the wallet row for the rest of
// the unit. A missing wallet reads as zero.
func (s *LedgerService) LockedBalance(tx *gorm.DB, userID uint) (int64, error) {
	var wallet models.Wallet
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock wallet of user %d: %w", userID, err)
	}
	return wallet.Balance, nil
}

func (s *LedgerService) RecordTransaction(tx *gorm.DB, entry TransactionEntry) (*models.Transaction, error) {
	if entry.AmountCoins <= 0 {
		return nil, validationf("amountCoins", "must be positive")
	}

	trx := models.Transaction{
		UserID:       entry.UserID,
		Reference:    common.GenerateTrxNo(),
		AmountCoins:  entry.AmountCoins,
		AmountPKR:    models.CoinsToPKR(entry.AmountCoins),
		Method:       entry.Method,
		Type:         entry.Type,
		Status:       entry.Status,
		ProofRef:     entry.ProofRef,
		TournamentID: entry.TournamentID,
	}
	if err := tx.Create(&trx).Error; err != nil {
		return nil, fmt.Errorf("failed to record %s transaction: %w", entry.Type, err)
	}
	return &trx, nil
}

// TransitionTransaction moves a transaction from one status to another. The
// update is conditional on the current status, so of two concurrent reviews
// exactly one succeeds and the other gets a ConflictError.
func (s *LedgerService) TransitionTransaction(tx *gorm.DB, id uint, from, to models.TransactionStatus, reviewer uint) error {
	if from.Terminal() {
		return conflictf("transaction %d cannot leave terminal status %s", id, from)
	}

	now := time.Now()
	res := tx.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":      to,
			"reviewed_by": reviewer,
			"reviewed_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update transaction %d: %w", id, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var current models.Transaction
	err := tx.Select("id", "status").First(&current, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Resource: "transaction", ID: id}
	}
	if err != nil {
		return fmt.Errorf("failed to load transaction %d: %w", id, err)
	}
	return conflictf("transaction %d is already %s", id, current.Status)
}

func (s *LedgerService) balance(tx *gorm.DB, userID uint) (int64, error) {
	var wallet models.Wallet
	if err := tx.Select("balance").Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		return 0, fmt.Errorf("failed to read balance of user %d: %w", userID, err)
	}
	return wallet.Balance, nil
}

// ensureWallet creates the user and wallet rows if they are missing.
func ensureWallet(tx *gorm.DB, userID uint) error {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.User{ID: userID}).Error; err != nil {
		return fmt.Errorf("failed to create user %d: %w", userID, err)
	}
	wallet := models.Wallet{UserID: userID}
	if err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).Create(&wallet).Error; err != nil {
		return fmt.Errorf("failed to create wallet for user %d: %w", userID, err)
	}
	return nil
}

// EnsureWallet creates the caller's wallet on first access and returns it.
func (s *LedgerService) EnsureWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	if userID == 0 {
		return nil, validationf("userId", "is required")
	}

	var wallet models.Wallet
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureWallet(tx, userID); err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).First(&wallet).Error
	})
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (s *LedgerService) GetBalance(ctx context.Context, userID uint) (int64, error) {
	var wallet models.Wallet
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, &NotFoundError{Resource: "wallet"}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read wallet: %w", err)
	}
	return wallet.Balance, nil
}

type TransactionFilter struct {
	UserID uint
	Type   models.TransactionType
	Status models.TransactionStatus
	Page   int
	Limit  int
}

// ListTransactions returns the matching transactions newest first.
func (s *LedgerService) ListTransactions(ctx context.Context, filter TransactionFilter) (common.PaginationResult, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	query := s.DB.WithContext(ctx).Model(&models.Transaction{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return common.PaginationResult{}, fmt.Errorf("failed to count transactions: %w", err)
	}

	var transactions []models.Transaction
	err := query.Order("created_at DESC").Order("id DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&transactions).Error
	if err != nil {
		return common.PaginationResult{}, fmt.Errorf("failed to list transactions: %w", err)
	}

	return common.PaginateResponse(transactions, total, filter.Page, filter.Limit, "Transactions fetched"), nil
}

// AuditNegativeBalances reports wallets below zero. The ledger never produces
// one, so any hit points at a write that bypassed it.
func (s *LedgerService) AuditNegativeBalances(ctx context.Context) (int, error) {
	var wallets []models.Wallet
	if err := s.DB.WithContext(ctx).Where("balance < 0").Find(&wallets).Error; err != nil {
		return 0, fmt.Errorf("failed to audit wallets: %w", err)
	}
	for _, w := range wallets {
		zap.L().Error("Wallet balance is negative",
			zap.Uint("user_id", w.UserID),
			zap.Int64("balance", w.Balance),
		)
	}
	if len(wallets) == 0 {
		zap.L().Info("Wallet audit completed, no negative balances")
	}
	return len(wallets), nil
}
