package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Expense struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	GroupID     uuid.UUID `gorm:"type:uuid;index;not null"`
	PayerID     uuid.UUID `gorm:"type:uuid;not null"`
	Amount      float64   `gorm:"not null"`
	Description string    `gorm:"size:500;not null"`
	Category    string    `gorm:"size:100;not null"`
	ExpenseDate time.Time `gorm:"index;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`

	DebtRecords []DebtRecord `gorm:"foreignKey:ExpenseID;constraint:OnDelete:CASCADE"`
}

func (e *Expense) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// DebtRecord is a pairwise IOU tied to an expense: the debtor owes the
// creditor (the expense payer) one share of the expense. A record is deleted
// once AmountPaid reaches Amount, so every row in the table is outstanding
// debt and 0 <= AmountPaid < Amount holds at rest.
type DebtRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	ExpenseID  uuid.UUID `gorm:"type:uuid;index;not null"`
	DebtorID   uuid.UUID `gorm:"type:uuid;index:idx_debt_pair;not null"`
	CreditorID uuid.UUID `gorm:"type:uuid;index:idx_debt_pair;not null"`
	Amount     float64   `gorm:"not null"`
	AmountPaid float64   `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"index"`
}

func (d *DebtRecord) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
