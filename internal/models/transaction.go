package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CoinToPKR is the fixed conversion rate between coins and rupees.
const CoinToPKR = 4

type TransactionType string

const (
	TransactionDeposit  TransactionType = "deposit"
	TransactionWithdraw TransactionType = "withdraw"
	TransactionEntry    TransactionType = "entry"
	TransactionPrize    TransactionType = "prize"
	TransactionBonus    TransactionType = "bonus"
)

type TransactionStatus string

const (
	StatusPending  TransactionStatus = "pending"
	StatusApproved TransactionStatus = "approved"
	StatusRejected TransactionStatus = "rejected"
)

// Terminal reports whether no further transition is allowed.
func (s TransactionStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

type Transaction struct {
	ID           uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       uint              `gorm:"column:user_id;not null;index:idx_trx_user" json:"user_id"`
	Reference    string            `gorm:"column:reference;size:32;not null;index" json:"reference"`
	AmountCoins  int64             `gorm:"column:amount_coins;not null" json:"amount_coins"`
	AmountPKR    decimal.Decimal   `gorm:"column:amount_pkr;type:decimal(20,2);not null" json:"amount_pkr"`
	Method       string            `gorm:"column:method;size:64" json:"method"`
	Type         TransactionType   `gorm:"column:type;size:16;not null;index:idx_trx_type_status" json:"type"`
	Status       TransactionStatus `gorm:"column:status;size:16;not null;index:idx_trx_type_status" json:"status"`
	ProofRef     *string           `gorm:"column:proof_ref;size:1024" json:"proof_ref,omitempty"`
	TournamentID *uint             `gorm:"column:tournament_id;index" json:"tournament_id,omitempty"`
	ReviewedBy   *uint             `gorm:"column:reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time        `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// CoinsToPKR converts a coin amount at the fixed platform rate.
func CoinsToPKR(coins int64) decimal.Decimal {
	return decimal.NewFromInt(coins).Mul(decimal.NewFromInt(CoinToPKR))
}
