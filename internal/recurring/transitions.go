package recurring

import (
	"github.com/mdjukic/settleup/internal/date"
	"github.com/mdjukic/settleup/internal/models"
	"github.com/mdjukic/settleup/pkg/errors"
)

// The transition functions below mutate the rule in place and return the
// error if the transition is not legal from the rule's current state.
// Persisting the mutated rule (and materializing the confirmed transaction)
// is the caller's responsibility.

// Advance moves the rule's next due date one period forward. Used by both
// Confirm and SkipOnce; the two differ only in whether a transaction is
// materialized.
func Advance(rule *models.RecurringRule, today date.Date) error {
	if err := requireDue(rule, today); err != nil {
		return err
	}
	next, err := AddPeriod(rule.NextDue, rule.Frequency, rule.DayOfMonth)
	if err != nil {
		return err
	}
	rule.NextDue = next
	return nil
}

// Postpone pushes the next due date forward by the given number of days
// without materializing anything. Days must be positive: the due date only
// ever moves forward.
func Postpone(rule *models.RecurringRule, today date.Date, days int) error {
	if err := requireDue(rule, today); err != nil {
		return err
	}
	if days <= 0 {
		return errors.New(errors.KindValidation, "postpone days must be positive, got %d", days)
	}
	rule.NextDue = rule.NextDue.AddDays(days)
	return nil
}

// Disable turns the rule off permanently. There is no transition back: a
// disabled rule is never surfaced as due again, even with a past due date.
// Disabling an already-disabled rule is a no-op.
func Disable(rule *models.RecurringRule) {
	rule.Status = models.RuleDisabled
}

func requireDue(rule *models.RecurringRule, today date.Date) error {
	if rule.Status == models.RuleDisabled {
		return errors.New(errors.KindValidation, "rule %s is disabled", rule.ID)
	}
	if !rule.Due(today) {
		return errors.New(errors.KindValidation,
			"rule %s is not due until %s", rule.ID, rule.NextDue)
	}
	return nil
}
