package ledger

import (
	"errors"
	"math"
	"testing"

	"squadup-backend/internal/models"

	"github.com/google/uuid"
)

func TestSplitExpenseEqualShares(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")
	group := createGroup(t, db, alice, bob, carol)

	exp := createExpense(t, db, group.ID, alice.ID, 30)
	records, err := SplitExpense(db, exp, []uuid.UUID{alice.ID, bob.ID, carol.ID}, Limits{})
	if err != nil {
		t.Fatalf("SplitExpense: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("got %d records, want 2 (no self-debt for the payer)", len(records))
	}
	var total float64
	for _, r := range records {
		if r.Amount != 10 {
			t.Errorf("record amount = %v, want 10", r.Amount)
		}
		if r.CreditorID != alice.ID {
			t.Errorf("creditor = %v, want payer %v", r.CreditorID, alice.ID)
		}
		if r.DebtorID == alice.ID {
			t.Error("payer must not owe themselves")
		}
		total += r.Amount
	}

	// Recorded debt plus the payer's own share must equal the expense.
	payerShare := exp.Amount / 3
	if math.Abs(total+payerShare-exp.Amount) > 1e-9 {
		t.Errorf("debt %v + payer share %v != amount %v", total, payerShare, exp.Amount)
	}
}

func TestSplitExpensePayerAlone(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	group := createGroup(t, db, alice)

	exp := createExpense(t, db, group.ID, alice.ID, 25)
	records, err := SplitExpense(db, exp, []uuid.UUID{alice.ID}, Limits{})
	if err != nil {
		t.Fatalf("SplitExpense: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("got %d records, want none when the payer is the only participant", len(records))
	}
}

func TestSplitExpenseValidation(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	outsider := createUser(t, db, "outsider")
	group := createGroup(t, db, alice, bob)

	limits := Limits{MaxAmount: 1000, MaxParticipants: 3}

	tests := []struct {
		name         string
		amount       float64
		participants []uuid.UUID
		want         error
	}{
		{"zero amount", 0, []uuid.UUID{alice.ID, bob.ID}, ErrInvalidAmount},
		{"negative amount", -5, []uuid.UUID{alice.ID, bob.ID}, ErrInvalidAmount},
		{"amount over limit", 1000.01, []uuid.UUID{alice.ID, bob.ID}, ErrInvalidAmount},
		{"no participants", 10, nil, ErrNoParticipants},
		{"too many participants", 10, []uuid.UUID{alice.ID, bob.ID, uuid.New(), uuid.New()}, ErrTooManyParticipants},
		{"duplicate participant", 10, []uuid.UUID{alice.ID, alice.ID}, ErrDuplicateParticipant},
		{"payer not included", 10, []uuid.UUID{bob.ID}, ErrPayerNotParticipant},
		{"participant outside group", 10, []uuid.UUID{alice.ID, outsider.ID}, ErrNotGroupMember},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := &models.Expense{
				ID:      uuid.New(),
				GroupID: group.ID,
				PayerID: alice.ID,
				Amount:  tt.amount,
			}
			_, err := SplitExpense(db, exp, tt.participants, limits)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRegenerateSplitReplacesRecords(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")
	group := createGroup(t, db, alice, bob, carol)

	exp := createExpense(t, db, group.ID, alice.ID, 30)
	if _, err := SplitExpense(db, exp, []uuid.UUID{alice.ID, bob.ID, carol.ID}, Limits{}); err != nil {
		t.Fatalf("SplitExpense: %v", err)
	}

	records, err := RegenerateSplit(db, exp, []uuid.UUID{alice.ID, bob.ID}, Limits{})
	if err != nil {
		t.Fatalf("RegenerateSplit: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].DebtorID != bob.ID || records[0].Amount != 15 {
		t.Errorf("got debtor %v amount %v, want bob owing 15", records[0].DebtorID, records[0].Amount)
	}

	var count int64
	db.Model(&models.DebtRecord{}).Where("expense_id = ?", exp.ID).Count(&count)
	if count != 1 {
		t.Errorf("expense has %d records after regenerate, want 1", count)
	}
}

func TestRescaleSplitKeepsPartialPayments(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")
	group := createGroup(t, db, alice, bob, carol)

	exp := createExpense(t, db, group.ID, alice.ID, 30)
	records, err := SplitExpense(db, exp, []uuid.UUID{alice.ID, bob.ID, carol.ID}, Limits{})
	if err != nil {
		t.Fatalf("SplitExpense: %v", err)
	}
	if err := db.Model(&records[0]).Update("amount_paid", 4.0).Error; err != nil {
		t.Fatalf("seed partial payment: %v", err)
	}

	exp.Amount = 60
	if err := db.Model(exp).Update("amount", exp.Amount).Error; err != nil {
		t.Fatalf("update expense amount: %v", err)
	}
	if err := RescaleSplit(db, exp); err != nil {
		t.Fatalf("RescaleSplit: %v", err)
	}

	var got []models.DebtRecord
	db.Where("expense_id = ?", exp.ID).Find(&got)
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	for _, r := range got {
		if r.Amount != 20 {
			t.Errorf("record amount = %v, want 20 (60 / 3 shares)", r.Amount)
		}
	}
	var paid float64
	for _, r := range got {
		paid += r.AmountPaid
	}
	if paid != 4 {
		t.Errorf("total amount_paid = %v, want the partial payment preserved at 4", paid)
	}
}

func TestRescaleSplitDeletesCoveredRecords(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")
	group := createGroup(t, db, alice, bob, carol)

	exp := createExpense(t, db, group.ID, alice.ID, 30)
	records, err := SplitExpense(db, exp, []uuid.UUID{alice.ID, bob.ID, carol.ID}, Limits{})
	if err != nil {
		t.Fatalf("SplitExpense: %v", err)
	}
	// Bob has already paid 8 of their 10 share, then the expense shrinks to 15.
	if err := db.Model(&records[0]).Update("amount_paid", 8.0).Error; err != nil {
		t.Fatalf("seed partial payment: %v", err)
	}

	exp.Amount = 15
	if err := db.Model(exp).Update("amount", exp.Amount).Error; err != nil {
		t.Fatalf("update expense amount: %v", err)
	}
	if err := RescaleSplit(db, exp); err != nil {
		t.Fatalf("RescaleSplit: %v", err)
	}

	var got []models.DebtRecord
	db.Where("expense_id = ?", exp.ID).Find(&got)
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1: the covered record must be deleted", len(got))
	}
	if got[0].ID == records[0].ID {
		t.Error("surviving record is the one whose payments already covered the new share")
	}
	if got[0].Amount != 5 {
		t.Errorf("surviving record amount = %v, want 5 (15 / 3 shares)", got[0].Amount)
	}
}
