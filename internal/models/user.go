package models

import (
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User keeps the ledger-relevant counters of an identity owned by the
// identity provider. IDs are assigned upstream.
type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Wins         int       `gorm:"column:wins;not null;default:0" json:"wins"`
	StarEligible bool      `gorm:"column:star_eligible;not null;default:false" json:"star_eligible"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
