package ledger

import (
	"errors"
	"math"

	"squadup-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Balance is one group member's net position. Exactly one of ToReceive and
// ToPay is non-zero; a settled member has both at zero.
type Balance struct {
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	ToReceive float64   `json:"to_receive"`
	ToPay     float64   `json:"to_pay"`
}

type memberRow struct {
	UserID uuid.UUID
	Name   string
}

type pairRow struct {
	DebtorID   uuid.UUID
	CreditorID uuid.UUID
	Amount     float64
}

// ComputeBalances nets every member's open debt records within the group.
// Fully paid records were deleted at settlement time, so the raw amounts of
// what remains are summed as-is; amount_paid never enters the calculation.
func ComputeBalances(db *gorm.DB, groupID uuid.UUID) ([]Balance, error) {
	var group models.Group
	if err := db.First(&group, "id = ?", groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	var members []memberRow
	if err := db.Table("group_members").
		Select("group_members.user_id, users.name").
		Joins("JOIN users ON users.id = group_members.user_id").
		Where("group_members.group_id = ?", groupID).
		Order("users.name asc").
		Scan(&members).Error; err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, ErrNoMembers
	}

	var rows []pairRow
	if err := db.Table("debt_records").
		Select("debt_records.debtor_id, debt_records.creditor_id, debt_records.amount").
		Joins("JOIN expenses ON expenses.id = debt_records.expense_id").
		Where("expenses.group_id = ? AND expenses.deleted_at IS NULL", groupID).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	// Positive net means the member is owed money overall.
	net := make(map[uuid.UUID]float64, len(members))
	for _, r := range rows {
		net[r.CreditorID] += r.Amount
		net[r.DebtorID] -= r.Amount
	}

	balances := make([]Balance, 0, len(members))
	for _, m := range members {
		balances = append(balances, Balance{
			UserID:    m.UserID,
			Name:      m.Name,
			ToReceive: round2(math.Max(net[m.UserID], 0)),
			ToPay:     round2(math.Max(-net[m.UserID], 0)),
		})
	}
	return balances, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
