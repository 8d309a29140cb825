package models

import (
	"time"
)

// Winner claims one placement slot of a tournament. The unique index on
// (tournament_id, placement) makes a slot claimable exactly once.
type Winner struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TournamentID uint      `gorm:"column:tournament_id;not null;uniqueIndex:idx_winner_placement" json:"tournament_id"`
	Placement    int       `gorm:"column:placement;not null;uniqueIndex:idx_winner_placement" json:"placement"`
	TeamID       uint      `gorm:"column:team_id;not null;index" json:"team_id"`
	RewardCoins  int64     `gorm:"column:reward_coins;not null" json:"reward_coins"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Winner) TableName() string {
	return "winners"
}
