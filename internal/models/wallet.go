package models

import (
	"time"
)

// Wallet holds a user's coin balance. Balance is only changed through the
// ledger's atomic increment/decrement statements.
type Wallet struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"column:user_id;not null;uniqueIndex:idx_wallet_user" json:"user_id"`
	Balance   int64     `gorm:"column:balance;not null;default:0;check:balance >= 0" json:"balance"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}
