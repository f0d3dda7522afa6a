package ledger

import "errors"

// Sentinel errors returned by the ledger. Handlers map these to HTTP status
// codes; anything else coming out of the ledger is a persistence failure.
var (
	ErrInvalidAmount        = errors.New("amount must be greater than zero and within the allowed limit")
	ErrNoParticipants       = errors.New("at least one participant is required")
	ErrTooManyParticipants  = errors.New("too many participants")
	ErrDuplicateParticipant = errors.New("duplicate participant IDs are not allowed")
	ErrPayerNotParticipant  = errors.New("payer must be one of the participants")
	ErrNotGroupMember       = errors.New("user is not a member of this group")
	ErrGroupNotFound        = errors.New("group not found")
	ErrNoMembers            = errors.New("group has no members")
	ErrOverpayment          = errors.New("payment exceeds total outstanding debt")
)
