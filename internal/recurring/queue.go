package recurring

import (
	"sort"

	"github.com/mdjukic/settleup/internal/date"
	"github.com/mdjukic/settleup/internal/models"
)

// DueItem is a recurring rule whose scheduled date has arrived and awaits
// user resolution.
type DueItem struct {
	RuleID  string    `json:"rule_id"`
	DueDate date.Date `json:"due_date"`
}

// DueQueue derives the pending queue from rule state: every active rule
// with nextDue <= today, ordered by due date then rule ID, one item per
// rule no matter how many periods have elapsed. There is no stored cursor;
// resolving an item re-derives the queue, so it is always consistent with
// the latest rule state.
func DueQueue(rules []*models.RecurringRule, today date.Date) []DueItem {
	var queue []DueItem
	for _, r := range rules {
		if r.Due(today) {
			queue = append(queue, DueItem{RuleID: r.ID, DueDate: r.NextDue})
		}
	}
	// oldest due first; rule ID keeps equal dates stable
	sort.Slice(queue, func(i, j int) bool {
		if queue[i].DueDate != queue[j].DueDate {
			return queue[i].DueDate.Before(queue[j].DueDate)
		}
		return queue[i].RuleID < queue[j].RuleID
	})
	return queue
}
