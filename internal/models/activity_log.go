package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActivityAction string

const (
	ActivityActionCreate ActivityAction = "create"
	ActivityActionUpdate ActivityAction = "update"
	ActivityActionDelete ActivityAction = "delete"
)

// ActivityLog records who did what in a group, with before/after snapshots.
type ActivityLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	GroupID *uuid.UUID `gorm:"type:uuid;index" json:"group_id"`

	UserID   uuid.UUID `gorm:"type:uuid" json:"user_id"`
	UserName string    `gorm:"size:100" json:"user_name"` // denormalized display name

	// e.g. "expense", "payment", "group_member", "poll"
	EntityType string    `gorm:"size:50;index" json:"entity_type"`
	EntityID   uuid.UUID `gorm:"type:uuid;index" json:"entity_id"`

	Action ActivityAction `gorm:"size:20" json:"action"`

	Description string `gorm:"size:255" json:"description"`

	// Previous and new state (JSON)
	BeforeData string `gorm:"type:jsonb" json:"before_data"`
	AfterData  string `gorm:"type:jsonb" json:"after_data"`
}

func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
