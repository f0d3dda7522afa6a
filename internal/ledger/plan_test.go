package ledger

import (
	"math"
	"testing"

	"github.com/google/uuid"
)

func TestPlanSettlementMatchesLargestFirst(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()
	balances := []Balance{
		{UserID: alice, Name: "alice", ToReceive: 30},
		{UserID: bob, Name: "bob", ToPay: 20},
		{UserID: carol, Name: "carol", ToPay: 10},
	}

	plan := PlanSettlement(balances)
	if len(plan) != 2 {
		t.Fatalf("got %d transactions, want 2", len(plan))
	}
	if plan[0].From != bob || plan[0].To != alice || plan[0].Amount != 20 {
		t.Errorf("first = %s pays %s %v, want bob paying alice 20", plan[0].FromName, plan[0].ToName, plan[0].Amount)
	}
	if plan[1].From != carol || plan[1].To != alice || plan[1].Amount != 10 {
		t.Errorf("second = %s pays %s %v, want carol paying alice 10", plan[1].FromName, plan[1].ToName, plan[1].Amount)
	}
}

func TestPlanSettlementZeroesBalances(t *testing.T) {
	ids := make([]uuid.UUID, 5)
	for i := range ids {
		ids[i] = uuid.New()
	}
	balances := []Balance{
		{UserID: ids[0], Name: "ann", ToReceive: 45.3},
		{UserID: ids[1], Name: "ben", ToReceive: 12.2},
		{UserID: ids[2], Name: "cleo", ToPay: 30},
		{UserID: ids[3], Name: "dan", ToPay: 20},
		{UserID: ids[4], Name: "eva", ToPay: 7.5},
	}

	plan := PlanSettlement(balances)

	net := make(map[uuid.UUID]float64)
	for _, b := range balances {
		net[b.UserID] = b.ToReceive - b.ToPay
	}
	for _, tx := range plan {
		if tx.Amount <= 0 {
			t.Errorf("transaction %s -> %s has non-positive amount %v", tx.FromName, tx.ToName, tx.Amount)
		}
		net[tx.From] += tx.Amount
		net[tx.To] -= tx.Amount
	}
	for id, v := range net {
		if math.Abs(v) > settleEpsilon {
			t.Errorf("user %v left with residual %v after executing the plan", id, v)
		}
	}

	// n members with debt can always be settled in n-1 payments or fewer.
	if len(plan) > len(balances)-1 {
		t.Errorf("plan has %d transactions for %d members", len(plan), len(balances))
	}
}

func TestPlanSettlementEmptyWhenSettled(t *testing.T) {
	balances := []Balance{
		{UserID: uuid.New(), Name: "alice"},
		{UserID: uuid.New(), Name: "bob"},
	}
	plan := PlanSettlement(balances)
	if len(plan) != 0 {
		t.Fatalf("got %d transactions for a settled group, want 0", len(plan))
	}
	if plan == nil {
		t.Fatal("plan must be an empty slice, not nil, so it serializes as []")
	}
}

func TestPlanSettlementIgnoresRoundingNoise(t *testing.T) {
	balances := []Balance{
		{UserID: uuid.New(), Name: "alice", ToReceive: 0.005},
		{UserID: uuid.New(), Name: "bob", ToPay: 0.005},
	}
	if plan := PlanSettlement(balances); len(plan) != 0 {
		t.Fatalf("got %d transactions for sub-cent residue, want 0", len(plan))
	}
}

func TestPlanSettlementExactMirror(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	balances := []Balance{
		{UserID: alice, Name: "alice", ToReceive: 57.25},
		{UserID: bob, Name: "bob", ToPay: 57.25},
	}
	plan := PlanSettlement(balances)
	if len(plan) != 1 {
		t.Fatalf("got %d transactions, want a single mirror payment", len(plan))
	}
	if plan[0].From != bob || plan[0].To != alice || plan[0].Amount != 57.25 {
		t.Errorf("got %s pays %s %v, want bob paying alice 57.25", plan[0].FromName, plan[0].ToName, plan[0].Amount)
	}
}
