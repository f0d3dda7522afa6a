package ledger

import (
	"sort"

	"github.com/google/uuid"
)

// Transaction is one suggested settle-up payment.
type Transaction struct {
	From     uuid.UUID `json:"from"`
	FromName string    `json:"from_name"`
	To       uuid.UUID `json:"to"`
	ToName   string    `json:"to_name"`
	Amount   float64   `json:"amount"`
}

// Residuals below a cent are floating point noise, not real debt.
const settleEpsilon = 0.01

// PlanSettlement turns a set of net balances into a short list of payments
// that would zero them out. Largest creditor and largest debtor are matched
// first, transferring the smaller of the two outstanding sides, so a member
// whose debt mirrors another's credit is cleared in a single transaction.
//
// The plan is advisory: nothing is written, and actual payments still go
// through the normal settlement path.
func PlanSettlement(balances []Balance) []Transaction {
	type side struct {
		userID    uuid.UUID
		name      string
		remaining float64
	}

	var creditors, debtors []side
	for _, b := range balances {
		if b.ToReceive > settleEpsilon {
			creditors = append(creditors, side{b.UserID, b.Name, b.ToReceive})
		}
		if b.ToPay > settleEpsilon {
			debtors = append(debtors, side{b.UserID, b.Name, b.ToPay})
		}
	}

	byRemainingDesc := func(s []side) func(i, j int) bool {
		return func(i, j int) bool {
			if s[i].remaining != s[j].remaining {
				return s[i].remaining > s[j].remaining
			}
			return s[i].name < s[j].name
		}
	}
	sort.Slice(creditors, byRemainingDesc(creditors))
	sort.Slice(debtors, byRemainingDesc(debtors))

	plan := []Transaction{}
	ci, di := 0, 0
	for ci < len(creditors) && di < len(debtors) {
		amount := round2(min(creditors[ci].remaining, debtors[di].remaining))
		if amount > settleEpsilon {
			plan = append(plan, Transaction{
				From:     debtors[di].userID,
				FromName: debtors[di].name,
				To:       creditors[ci].userID,
				ToName:   creditors[ci].name,
				Amount:   amount,
			})
		}
		creditors[ci].remaining -= amount
		debtors[di].remaining -= amount
		if creditors[ci].remaining < settleEpsilon {
			ci++
		}
		if debtors[di].remaining < settleEpsilon {
			di++
		}
	}
	return plan
}
