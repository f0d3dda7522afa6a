package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MemberRole string

const (
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

type Group struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:100;not null"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Members []GroupMember `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
}

func (g *Group) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

type GroupMember struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	GroupID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_group_member"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_group_member"`
	Role      MemberRole `gorm:"size:20;not null"`
	CreatedAt time.Time
}

func (m *GroupMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
