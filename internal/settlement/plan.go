package settlement

import (
	"sort"

	"github.com/mdjukic/settleup/internal/date"
	"github.com/mdjukic/settleup/pkg/errors"
)

// DebtRow is one unpaid split of the settling debtor, already normalized to
// base-currency minor units.
type DebtRow struct {
	SplitID       string
	TransactionID string
	AmountInBase  int64
	Date          date.Date
}

// Plan is the concrete application of a confirmed edge to the debtor's
// unpaid splits: which rows to mark paid and what could not be matched.
type Plan struct {
	// SplitIDs are the rows to mark paid, in consumption order.
	SplitIDs []string

	// Applied is the amount covered by the consumed rows.
	Applied int64

	// Residual is the part of the edge amount no whole split could cover.
	// Partial split payment is not supported, so the residual stays as
	// unpaid balance and is surfaced to the caller.
	Residual int64
}

// PlanSettlement decides which of the debtor's unpaid splits a confirmed
// edge pays off. Rows are consumed FIFO by transaction date; when the next
// row in line is larger than what remains of the edge, the smallest row
// that still fits is consumed instead. Whatever then remains is residual.
//
// Fails with StaleSettlement when the unpaid rows no longer cover the edge
// amount, i.e. another member settled concurrently and the caller must
// recompute balances.
func PlanSettlement(edgeAmount int64, rows []DebtRow) (*Plan, error) {
	if edgeAmount <= 0 {
		return nil, errors.New(errors.KindValidation, "edge amount must be positive, got %d", edgeAmount)
	}
	var total int64
	for _, r := range rows {
		total += r.AmountInBase
	}
	if edgeAmount > total {
		return nil, errors.New(errors.KindStaleSettlement,
			"edge amount %d exceeds unpaid balance %d", edgeAmount, total)
	}

	fifo := make([]DebtRow, len(rows))
	copy(fifo, rows)
	sort.Slice(fifo, func(i, j int) bool {
		if !fifo[i].Date.Before(fifo[j].Date) && !fifo[j].Date.Before(fifo[i].Date) {
			if fifo[i].TransactionID != fifo[j].TransactionID {
				return fifo[i].TransactionID < fifo[j].TransactionID
			}
			return fifo[i].SplitID < fifo[j].SplitID
		}
		return fifo[i].Date.Before(fifo[j].Date)
	})

	consumed := make([]bool, len(fifo))
	plan := &Plan{}
	remaining := edgeAmount
	for remaining > 0 {
		head := -1
		for i := range fifo {
			if !consumed[i] {
				head = i
				break
			}
		}
		if head == -1 {
			break
		}
		idx := head
		if fifo[head].AmountInBase > remaining {
			// the next row in line does not fit; fall back to the
			// smallest unconsumed row that does
			idx = -1
			for i, r := range fifo {
				if consumed[i] || r.AmountInBase > remaining {
					continue
				}
				if idx == -1 || r.AmountInBase < fifo[idx].AmountInBase {
					idx = i
				}
			}
			if idx == -1 {
				break
			}
		}
		consumed[idx] = true
		plan.SplitIDs = append(plan.SplitIDs, fifo[idx].SplitID)
		plan.Applied += fifo[idx].AmountInBase
		remaining -= fifo[idx].AmountInBase
	}
	plan.Residual = remaining
	return plan, nil
}
