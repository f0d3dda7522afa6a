package ledger

import (
	"errors"
	"math"
	"testing"
	"time"

	"squadup-backend/internal/models"

	"github.com/google/uuid"
)

func balanceFor(t *testing.T, balances []Balance, userID uuid.UUID) Balance {
	t.Helper()
	for _, b := range balances {
		if b.UserID == userID {
			return b
		}
	}
	t.Fatalf("no balance entry for %v", userID)
	return Balance{}
}

func TestComputeBalancesNetsAcrossExpenses(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")
	group := createGroup(t, db, alice, bob, carol)

	base := time.Now().Add(-time.Hour)
	// Alice paid 30 for everyone, Bob paid 12 for Alice and himself.
	dinner := createExpense(t, db, group.ID, alice.ID, 30)
	createDebt(t, db, dinner.ID, bob.ID, alice.ID, 10, base)
	createDebt(t, db, dinner.ID, carol.ID, alice.ID, 10, base)
	taxi := createExpense(t, db, group.ID, bob.ID, 12)
	createDebt(t, db, taxi.ID, alice.ID, bob.ID, 6, base.Add(time.Minute))

	balances, err := ComputeBalances(db, group.ID)
	if err != nil {
		t.Fatalf("ComputeBalances: %v", err)
	}
	if len(balances) != 3 {
		t.Fatalf("got %d balances, want one per member", len(balances))
	}

	a := balanceFor(t, balances, alice.ID)
	if a.ToReceive != 14 || a.ToPay != 0 {
		t.Errorf("alice = receive %v / pay %v, want 14 / 0", a.ToReceive, a.ToPay)
	}
	b := balanceFor(t, balances, bob.ID)
	if b.ToReceive != 0 || b.ToPay != 4 {
		t.Errorf("bob = receive %v / pay %v, want 0 / 4", b.ToReceive, b.ToPay)
	}
	c := balanceFor(t, balances, carol.ID)
	if c.ToReceive != 0 || c.ToPay != 10 {
		t.Errorf("carol = receive %v / pay %v, want 0 / 10", c.ToReceive, c.ToPay)
	}

	// Credits and debts must mirror each other.
	var receive, pay float64
	for _, bal := range balances {
		receive += bal.ToReceive
		pay += bal.ToPay
	}
	if math.Abs(receive-pay) > 1e-9 {
		t.Errorf("sum to_receive %v != sum to_pay %v", receive, pay)
	}
}

func TestComputeBalancesSettledGroup(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	group := createGroup(t, db, alice, bob)

	balances, err := ComputeBalances(db, group.ID)
	if err != nil {
		t.Fatalf("ComputeBalances: %v", err)
	}
	for _, b := range balances {
		if b.ToReceive != 0 || b.ToPay != 0 {
			t.Errorf("%s = receive %v / pay %v, want all zero with no debts", b.Name, b.ToReceive, b.ToPay)
		}
	}
}

func TestComputeBalancesIgnoresDeletedExpenses(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	group := createGroup(t, db, alice, bob)

	exp := createExpense(t, db, group.ID, alice.ID, 20)
	createDebt(t, db, exp.ID, bob.ID, alice.ID, 10, time.Now())
	if err := db.Delete(exp).Error; err != nil {
		t.Fatalf("soft delete expense: %v", err)
	}

	balances, err := ComputeBalances(db, group.ID)
	if err != nil {
		t.Fatalf("ComputeBalances: %v", err)
	}
	b := balanceFor(t, balances, bob.ID)
	if b.ToPay != 0 {
		t.Errorf("bob owes %v from a deleted expense, want 0", b.ToPay)
	}
}

func TestComputeBalancesScopedToGroup(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	dinner := createGroup(t, db, alice, bob)
	trip := createGroup(t, db, alice, bob)

	tripExp := createExpense(t, db, trip.ID, alice.ID, 40)
	createDebt(t, db, tripExp.ID, bob.ID, alice.ID, 20, time.Now())

	balances, err := ComputeBalances(db, dinner.ID)
	if err != nil {
		t.Fatalf("ComputeBalances: %v", err)
	}
	b := balanceFor(t, balances, bob.ID)
	if b.ToPay != 0 {
		t.Errorf("bob owes %v in a group with no expenses, want 0", b.ToPay)
	}
}

func TestComputeBalancesErrors(t *testing.T) {
	db := newTestDB(t)

	if _, err := ComputeBalances(db, uuid.New()); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("unknown group: got %v, want ErrGroupNotFound", err)
	}

	alice := createUser(t, db, "alice")
	empty := models.Group{Name: "empty", CreatedBy: alice.ID}
	if err := db.Create(&empty).Error; err != nil {
		t.Fatalf("create group: %v", err)
	}
	if _, err := ComputeBalances(db, empty.ID); !errors.Is(err, ErrNoMembers) {
		t.Errorf("memberless group: got %v, want ErrNoMembers", err)
	}
}
