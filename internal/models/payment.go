package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment is an immutable record of money changing hands outside the app.
// It drives settlement of DebtRecords but is never mutated itself.
type Payment struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	GroupID    uuid.UUID  `gorm:"type:uuid;index;not null"`
	FromUserID uuid.UUID  `gorm:"type:uuid;not null"`
	ToUserID   uuid.UUID  `gorm:"type:uuid;not null"`
	Amount     float64    `gorm:"not null"`
	ExpenseID  *uuid.UUID `gorm:"type:uuid"`
	CreatedAt  time.Time  `gorm:"index"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
