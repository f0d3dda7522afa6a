package ledger

import (
	"squadup-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Limits bounds what a single expense may look like. Zero values disable the
// corresponding check (used by tests).
type Limits struct {
	MaxAmount       float64
	MaxParticipants int
}

// SplitExpense creates one DebtRecord per non-payer participant for the given
// expense. The cost is divided by the full participant count, payer included,
// so the payer's own share is absorbed by simply not writing a self-debt.
//
// Must run inside the same transaction that inserts the expense, so a failed
// split rolls the expense back instead of leaving it without records.
func SplitExpense(tx *gorm.DB, exp *models.Expense, participantIDs []uuid.UUID, limits Limits) ([]models.DebtRecord, error) {
	if err := validateSplit(exp.Amount, participantIDs, exp.PayerID, limits); err != nil {
		return nil, err
	}
	if err := requireMembers(tx, exp.GroupID, participantIDs); err != nil {
		return nil, err
	}

	share := exp.Amount / float64(len(participantIDs))

	records := make([]models.DebtRecord, 0, len(participantIDs)-1)
	for _, id := range participantIDs {
		if id == exp.PayerID {
			continue
		}
		records = append(records, models.DebtRecord{
			ExpenseID:  exp.ID,
			DebtorID:   id,
			CreditorID: exp.PayerID,
			Amount:     share,
		})
	}

	if len(records) == 0 {
		// Payer is the only participant, nothing is owed.
		return records, nil
	}

	if err := tx.Create(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// RegenerateSplit replaces the expense's debt records with a fresh split over
// the new participant set. Used when an expense update changes who took part.
func RegenerateSplit(tx *gorm.DB, exp *models.Expense, participantIDs []uuid.UUID, limits Limits) ([]models.DebtRecord, error) {
	if err := tx.Where("expense_id = ?", exp.ID).Delete(&models.DebtRecord{}).Error; err != nil {
		return nil, err
	}
	return SplitExpense(tx, exp, participantIDs, limits)
}

// RescaleSplit adjusts existing debt records after an amount-only expense
// update. The divisor counts the surviving records plus one for the payer's
// implicit share. A record whose paid amount already covers its new share is
// treated as settled and deleted; partial payments are kept as they are.
func RescaleSplit(tx *gorm.DB, exp *models.Expense) error {
	var records []models.DebtRecord
	if err := tx.Where("expense_id = ?", exp.ID).Order("created_at asc, id asc").Find(&records).Error; err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	share := exp.Amount / float64(len(records)+1)

	for i := range records {
		if records[i].AmountPaid >= share-settleEpsilon {
			if err := tx.Delete(&records[i]).Error; err != nil {
				return err
			}
			continue
		}
		records[i].Amount = share
		if err := tx.Model(&records[i]).Update("amount", share).Error; err != nil {
			return err
		}
	}
	return nil
}

func validateSplit(amount float64, participantIDs []uuid.UUID, payerID uuid.UUID, limits Limits) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if limits.MaxAmount > 0 && amount > limits.MaxAmount {
		return ErrInvalidAmount
	}
	if len(participantIDs) == 0 {
		return ErrNoParticipants
	}
	if limits.MaxParticipants > 0 && len(participantIDs) > limits.MaxParticipants {
		return ErrTooManyParticipants
	}

	seen := make(map[uuid.UUID]bool, len(participantIDs))
	payerIncluded := false
	for _, id := range participantIDs {
		if seen[id] {
			return ErrDuplicateParticipant
		}
		seen[id] = true
		if id == payerID {
			payerIncluded = true
		}
	}
	if !payerIncluded {
		return ErrPayerNotParticipant
	}
	return nil
}

// requireMembers verifies every given user belongs to the group.
func requireMembers(tx *gorm.DB, groupID uuid.UUID, userIDs []uuid.UUID) error {
	var count int64
	if err := tx.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id IN ?", groupID, userIDs).
		Count(&count).Error; err != nil {
		return err
	}
	if count != int64(len(userIDs)) {
		return ErrNotGroupMember
	}
	return nil
}
