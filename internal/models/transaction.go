package models

import "github.com/mdjukic/settleup/internal/date"

// Transaction represents a single ledger entry: an amount paid by its owner
// on a date, optionally shared with a group.
type Transaction struct {
	// ID is the unique identifier (UUID format).
	ID string

	// OwnerID is the user who created (and paid) the transaction.
	OwnerID string

	// Amount is the transaction amount in minor units of Currency.
	Amount int64

	// Currency is the original currency of the amount.
	Currency Currency

	// AmountInBase is the amount converted to the base currency, in minor
	// units. Equal to Amount (verbatim) when RateMissing is set.
	AmountInBase int64

	// RateMissing is set when no FX rate was available for Currency on
	// Date. The amount is carried unconverted and callers decide how to
	// surface it.
	RateMissing bool

	// Date is the civil date the transaction happened on.
	Date date.Date

	// CategoryID classifies the transaction. Categories themselves are
	// presentation concerns and live outside this core.
	CategoryID string

	// GroupID is set when the transaction is shared with a group. A
	// transaction belongs to at most one group.
	GroupID string

	// RecurringRuleID links a transaction materialized by the scheduler
	// back to its rule.
	RecurringRuleID string

	// CreatedAt is the Unix timestamp when the row was created.
	CreatedAt int64
}

// Shared reports whether the transaction is split with a group.
func (t *Transaction) Shared() bool { return t.GroupID != "" }

// TransactionSpec is the input for creating a transaction.
type TransactionSpec struct {
	OwnerID    string
	Amount     int64
	Currency   Currency
	Date       date.Date
	CategoryID string

	// GroupID plus ParticipantIDs request splitting among group members.
	// ParticipantIDs lists everyone sharing the cost, payer included or
	// not; the payer's share is implicit either way.
	GroupID        string
	ParticipantIDs []string

	// RecurringRuleID is set by the scheduler when materializing.
	RecurringRuleID string
}

// TransactionPatch is a partial update. Nil fields are left unchanged.
// Amount, currency or date changes re-run normalization; participant
// changes re-run allocation.
type TransactionPatch struct {
	Amount         *int64
	Currency       *Currency
	Date           *date.Date
	CategoryID     *string
	ParticipantIDs []string
}
