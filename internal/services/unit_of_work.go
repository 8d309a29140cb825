package services

import (
	"context"
	"database/sql"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"tournament-ledger/internal/database"
)

// UnitOfWork runs a settlement's reads and writes as one transaction at the
// configured isolation level. When the store aborts the transaction for a
// serialization failure the whole function is run again; fn must therefore
// not have effects outside tx.
type UnitOfWork struct {
	DB         *gorm.DB
	Isolation  sql.IsolationLevel
	MaxRetries int
}

func NewUnitOfWork(db *gorm.DB, isolation sql.IsolationLevel, maxRetries int) *UnitOfWork {
	return &UnitOfWork{DB: db, Isolation: isolation, MaxRetries: maxRetries}
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(tx *gorm.DB) error) error {
	opts := &sql.TxOptions{Isolation: u.Isolation}
	for attempt := 0; ; attempt++ {
		err := u.DB.WithContext(ctx).Transaction(fn, opts)
		if err == nil || !database.IsRetryable(err) || attempt >= u.MaxRetries {
			return err
		}
		zap.L().Warn("Retrying atomic unit after serialization failure",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
}
