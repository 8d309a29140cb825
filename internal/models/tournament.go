package models

import (
	"fmt"
	"strings"
	"time"
)

type TournamentMode string

const (
	ModeSolo  TournamentMode = "Solo"
	ModeDuo   TournamentMode = "Duo"
	ModeSquad TournamentMode = "Squad"
)

// ParseMode accepts a mode name case-insensitively.
func ParseMode(value string) (TournamentMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "solo":
		return ModeSolo, nil
	case "duo":
		return ModeDuo, nil
	case "squad":
		return ModeSquad, nil
	}
	return "", fmt.Errorf("unknown tournament mode %q", value)
}

// TeamSize is the number of players a team must register with.
// Unknown modes report 0.
func (m TournamentMode) TeamSize() int {
	switch m {
	case ModeSolo:
		return 1
	case ModeDuo:
		return 2
	case ModeSquad:
		return 4
	}
	return 0
}

type GameType string

const (
	GameBR GameType = "BR"
	GameCS GameType = "CS"
)

func ParseGameType(value string) (GameType, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "BR":
		return GameBR, nil
	case "CS":
		return GameCS, nil
	}
	return "", fmt.Errorf("unknown game type %q", value)
}

type TournamentStatus string

const (
	TournamentUpcoming TournamentStatus = "upcoming"
	TournamentRunning  TournamentStatus = "running"
	TournamentEnded    TournamentStatus = "ended"
)

type Tournament struct {
	ID              uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	Title           string           `gorm:"column:title;size:255;not null" json:"title"`
	Slug            string           `gorm:"column:slug;size:255;index" json:"slug"`
	Mode            TournamentMode   `gorm:"column:mode;size:16;not null" json:"mode"`
	GameType        GameType         `gorm:"column:game_type;size:8;not null" json:"game_type"`
	EntryFee        int64            `gorm:"column:entry_fee;not null" json:"entry_fee"`
	PrizePool       int64            `gorm:"column:prize_pool;not null" json:"prize_pool"`
	MaxParticipants int              `gorm:"column:max_participants;default:0" json:"max_participants"`
	Status          TournamentStatus `gorm:"column:status;size:16;not null;index" json:"status"`
	IsOpen          bool             `gorm:"column:is_open;not null;default:false" json:"is_open"`
	LobbyCode       *string          `gorm:"column:lobby_code;size:64" json:"lobby_code,omitempty"`
	StartsAt        *time.Time       `gorm:"column:starts_at;index" json:"starts_at,omitempty"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Teams   []Team   `gorm:"foreignKey:TournamentID;constraint:OnDelete:CASCADE" json:"teams,omitempty"`
	Winners []Winner `gorm:"foreignKey:TournamentID;constraint:OnDelete:CASCADE" json:"winners,omitempty"`
}

func (Tournament) TableName() string {
	return "tournaments"
}
