// Package allocator divides a shared transaction's amount exactly among
// group participants. All arithmetic is on int64 minor units so the split
// sum reconciles to the transaction amount without rounding drift.
package allocator

import (
	"sort"

	"github.com/mdjukic/settleup/pkg/errors"
)

// Share is one participant's computed portion of a shared amount.
type Share struct {
	UserID string
	Amount int64 // minor units, transaction currency
}

// Allocation is the result of splitting an amount.
type Allocation struct {
	// Shares holds one entry per non-payer participant; these become
	// Split rows.
	Shares []Share

	// PayerShare is the payer's implicit portion. It is never stored.
	PayerShare int64
}

// Allocate divides amount equally among the participants and the payer.
// The payer is always part of the split set whether or not it appears in
// participantIDs.
//
// Division happens in minor units: base = floor(amount/n), and the
// remainder is distributed one unit each to the first r members in
// ascending userID order, so the shares always sum to amount exactly.
//
// Every participant must be a member of the group; memberOf is the group
// roster. Fails with InvalidParticipants on an empty set, a duplicate, or a
// non-member.
func Allocate(amount int64, participantIDs []string, payerID string, memberOf map[string]bool) (*Allocation, error) {
	if amount <= 0 {
		return nil, errors.New(errors.KindValidation, "amount must be positive, got %d", amount)
	}
	if len(participantIDs) == 0 {
		return nil, errors.New(errors.KindInvalidParticipants, "participant set is empty")
	}
	if !memberOf[payerID] {
		return nil, errors.New(errors.KindInvalidParticipants, "payer %s is not a group member", payerID)
	}

	seen := make(map[string]bool, len(participantIDs)+1)
	set := make([]string, 0, len(participantIDs)+1)
	for _, id := range participantIDs {
		if seen[id] {
			return nil, errors.New(errors.KindInvalidParticipants, "duplicate participant %s", id)
		}
		if !memberOf[id] {
			return nil, errors.New(errors.KindInvalidParticipants, "participant %s is not a group member", id)
		}
		seen[id] = true
		set = append(set, id)
	}
	if !seen[payerID] {
		set = append(set, payerID)
	}
	sort.Strings(set)

	n := int64(len(set))
	base := amount / n
	remainder := amount - base*n

	shares := make([]Share, 0, len(set)-1)
	var payerShare, total int64
	for i, id := range set {
		share := base
		if int64(i) < remainder {
			share++
		}
		total += share
		if id == payerID {
			payerShare = share
			continue
		}
		shares = append(shares, Share{UserID: id, Amount: share})
	}
	if total != amount {
		// unreachable unless the distribution above is broken
		return nil, errors.New(errors.KindRoundingOverflow,
			"allocated %d minor units from %d across %d participants", total, amount, n)
	}
	return &Allocation{Shares: shares, PayerShare: payerShare}, nil
}
