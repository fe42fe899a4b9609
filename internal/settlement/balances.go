// Package settlement nets a group's unpaid splits into member balances and
// a small set of transfers that drive them to zero. All computation is pure
// over int64 base-currency minor units; reads are idempotent and safe to
// repeat concurrently.
package settlement

import (
	"github.com/mdjukic/settleup/internal/currency"
	"github.com/mdjukic/settleup/internal/date"
	"github.com/mdjukic/settleup/internal/models"
)

// UnpaidSplit is an unpaid split joined with the parent-transaction fields
// the netting engine needs. The store produces these; the engine never
// touches persistence.
type UnpaidSplit struct {
	SplitID       string
	TransactionID string
	PayerID       string
	OwedByUserID  string
	Amount        int64 // minor units of Currency
	Currency      models.Currency
	Date          date.Date
}

// ComputeBalances aggregates unpaid splits into per-member net balances in
// base-currency minor units: the payer fronted the share (+), the ower owes
// it (−). The balances sum to zero by construction.
//
// rateMissing is set when any split could not be converted; its amount is
// carried verbatim, matching the normalizer's fallback contract.
func ComputeBalances(splits []UnpaidSplit, n *currency.Normalizer) (balances map[string]int64, rateMissing bool) {
	balances = make(map[string]int64)
	for _, s := range splits {
		inBase, missing := n.Normalize(s.Amount, s.Currency, s.Date)
		rateMissing = rateMissing || missing
		balances[s.PayerID] += inBase
		balances[s.OwedByUserID] -= inBase
	}
	return balances, rateMissing
}
