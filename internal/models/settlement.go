package models

// SettlementEdge is a proposed transfer {debtor, creditor, amount} reducing
// group balances toward zero. Edges are derived from balances and not
// persisted; confirming one produces a Settlement record.
type SettlementEdge struct {
	// FromUserID is the debtor who pays.
	FromUserID string

	// ToUserID is the creditor who receives.
	ToUserID string

	// Amount is the transfer amount in minor units of Currency.
	Amount int64

	// Currency is always the base currency; balances share one currency.
	Currency Currency
}

// Settlement is a confirmed transfer between two group members, persisted
// for auditability.
type Settlement struct {
	// ID is the unique identifier (UUID format).
	ID string

	// GroupID is the group the settlement belongs to.
	GroupID string

	// FromUserID is the debtor who paid.
	FromUserID string

	// ToUserID is the creditor who was paid.
	ToUserID string

	// Amount is the confirmed amount in base-currency minor units.
	Amount int64

	// Residual is the part of the requested edge that could not be matched
	// to whole unpaid splits and remains as unpaid balance.
	Residual int64

	// CreatedBy is the user who recorded the confirmation.
	CreatedBy string

	// Note is an optional free-form description.
	Note string

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64
}
