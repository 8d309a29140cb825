package models

import (
	"time"
)

type Notification struct {
	ID        uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	Reference string            `gorm:"column:reference;size:64;uniqueIndex" json:"reference"`
	UserID    uint              `gorm:"column:user_id;not null;index" json:"user_id"`
	Title     string            `gorm:"column:title;size:255;not null" json:"title"`
	Body      string            `gorm:"column:body;type:text" json:"body"`
	Data      map[string]string `gorm:"column:data;type:text;serializer:json" json:"data,omitempty"`
	ReadAt    *time.Time        `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
