package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PollType string

const (
	PollTypeVoting  PollType = "voting"
	PollTypeBetting PollType = "betting"
)

type PollStatus string

const (
	PollStatusActive PollStatus = "active"
	PollStatusClosed PollStatus = "closed"
)

type Poll struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	GroupID         uuid.UUID  `gorm:"type:uuid;index;not null"`
	Title           string     `gorm:"size:255;not null"`
	Type            PollType   `gorm:"size:20;not null"`
	Status          PollStatus `gorm:"size:20;not null"`
	CorrectOptionID *uuid.UUID `gorm:"type:uuid"` // betting polls only, set on close
	CreatedBy       uuid.UUID  `gorm:"type:uuid;not null"`
	ClosedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       gorm.DeletedAt `gorm:"index"`

	Options []PollOption `gorm:"foreignKey:PollID;constraint:OnDelete:CASCADE"`
	Votes   []PollVote   `gorm:"foreignKey:PollID;constraint:OnDelete:CASCADE"`
}

func (p *Poll) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type PollOption struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	PollID    uuid.UUID `gorm:"type:uuid;index;not null"`
	Text      string    `gorm:"size:255;not null"`
	VoteCount int       `gorm:"not null;default:0"`
	CreatedAt time.Time
}

func (o *PollOption) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

type PollVote struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	PollID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_poll_voter"`
	OptionID  uuid.UUID `gorm:"type:uuid;index;not null"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_poll_voter"`
	CreatedAt time.Time
}

func (v *PollVote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
