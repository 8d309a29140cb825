package models

import (
	"time"
)

type MemberRole string

const (
	RoleCaptain MemberRole = "captain"
	RoleMember  MemberRole = "member"
)

// Team is created together with its members and the entry fee debit and is
// never updated afterwards.
type Team struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"column:name;size:255;not null" json:"name"`
	TournamentID uint      `gorm:"column:tournament_id;not null;uniqueIndex:idx_team_captain" json:"tournament_id"`
	CaptainID    uint      `gorm:"column:captain_id;not null;uniqueIndex:idx_team_captain" json:"captain_id"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	Members []TeamMember `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
}

func (Team) TableName() string {
	return "teams"
}

type TeamMember struct {
	ID         uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	TeamID     uint       `gorm:"column:team_id;not null;index" json:"team_id"`
	UserID     *uint      `gorm:"column:user_id" json:"user_id,omitempty"`
	Position   int        `gorm:"column:position;not null" json:"position"`
	Role       MemberRole `gorm:"column:role;size:16;not null" json:"role"`
	PlayerName string     `gorm:"column:player_name;size:255;not null" json:"player_name"`
	Phone      string     `gorm:"column:phone;size:32;not null" json:"phone"`
	GameID     string     `gorm:"column:game_id;size:64;not null" json:"game_id"`
	Email      *string    `gorm:"column:email;size:255" json:"email,omitempty"`
}

func (TeamMember) TableName() string {
	return "team_members"
}
