package settlement

import "github.com/mdjukic/settleup/internal/models"

// ComputeTransfers reduces a zero-sum balance set to a list of transfers by
// greedy matching: repeatedly pair the largest debtor with the largest
// creditor and move min(|debt|, credit). Ties break by ascending userID so
// the result is reproducible.
//
// Applied to the input balances the edges drive every member to exactly
// zero, and at most members-1 edges are emitted. The greedy pairing is a
// heuristic: it does not prove a globally minimal transfer count (exact
// minimum-transaction netting is combinatorially harder), which is an
// accepted tradeoff.
func ComputeTransfers(balances map[string]int64, base models.Currency) []models.SettlementEdge {
	remaining := make(map[string]int64, len(balances))
	for user, b := range balances {
		if b != 0 {
			remaining[user] = b
		}
	}

	var edges []models.SettlementEdge
	for len(remaining) > 0 {
		debtor, creditor := pick(remaining)
		if debtor == "" || creditor == "" {
			// non-zero-sum input; nothing sensible left to match
			break
		}
		amount := min(-remaining[debtor], remaining[creditor])
		edges = append(edges, models.SettlementEdge{
			FromUserID: debtor,
			ToUserID:   creditor,
			Amount:     amount,
			Currency:   base,
		})
		remaining[debtor] += amount
		remaining[creditor] -= amount
		if remaining[debtor] == 0 {
			delete(remaining, debtor)
		}
		if remaining[creditor] == 0 {
			delete(remaining, creditor)
		}
	}
	return edges
}

// pick selects the largest debtor (most negative) and largest creditor
// (most positive), ascending userID on ties.
func pick(remaining map[string]int64) (debtor, creditor string) {
	var worst, best int64
	for user, b := range remaining {
		switch {
		case b < worst, b == worst && worst < 0 && user < debtor:
			worst, debtor = b, user
		case b > best, b == best && best > 0 && user < creditor:
			best, creditor = b, user
		}
	}
	return debtor, creditor
}
