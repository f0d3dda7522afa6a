package ledger

import (
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
)

// Settlement must be serialized per debtor→creditor pair: two concurrent
// payments walking the same records would both read the same amount_paid and
// lose one update. The pair hashes onto a fixed set of stripes so the lock
// table stays bounded no matter how many pairs settle; a stripe collision
// between unrelated pairs only over-serializes, never under-serializes.
const lockStripes = 64

var settleLocks [lockStripes]sync.Mutex

// lockPair acquires the stripe for a debtor→creditor pair and returns the
// unlock function. The hash is directional, matching the directional record
// sets the two sides of a pair touch.
func lockPair(debtorID, creditorID uuid.UUID) func() {
	h := fnv.New32a()
	h.Write(debtorID[:])
	h.Write(creditorID[:])
	l := &settleLocks[h.Sum32()%lockStripes]
	l.Lock()
	return l.Unlock
}
