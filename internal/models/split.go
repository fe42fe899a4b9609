package models

// Split is a debt record: one non-payer participant's share of a shared
// transaction. Splits are created atomically with their parent transaction
// and never independently; deleting the transaction cascades them.
//
// The payer's own share is implicit (transaction amount minus the sum of
// splits) and is never stored as a row.
type Split struct {
	// ID is the unique identifier (UUID format).
	ID string

	// TransactionID is the parent transaction.
	TransactionID string

	// OwedByUserID is the participant who owes this share to the payer.
	OwedByUserID string

	// Amount is the share in minor units of the parent transaction's
	// currency.
	Amount int64

	// IsPaid is set once a settlement covering this split is confirmed.
	IsPaid bool
}
