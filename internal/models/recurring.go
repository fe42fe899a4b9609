package models

import (
	"github.com/mdjukic/settleup/internal/date"
	"github.com/mdjukic/settleup/pkg/errors"
)

// Frequency is a closed enum of recurrence periods.
type Frequency string

const (
	Weekly     Frequency = "weekly"
	Monthly    Frequency = "monthly"
	Quarterly  Frequency = "quarterly"
	Semiannual Frequency = "semiannual"
	Yearly     Frequency = "yearly"
)

// ParseFrequency validates a frequency at the boundary.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case Weekly, Monthly, Quarterly, Semiannual, Yearly:
		return Frequency(s), nil
	default:
		return "", errors.New(errors.KindValidation, "unsupported frequency %q", s)
	}
}

// Months returns the period length in calendar months, or 0 for Weekly.
func (f Frequency) Months() int {
	switch f {
	case Monthly:
		return 1
	case Quarterly:
		return 3
	case Semiannual:
		return 6
	case Yearly:
		return 12
	default:
		return 0
	}
}

func (f Frequency) String() string { return string(f) }

// RuleStatus is the lifecycle state of a recurring rule.
type RuleStatus string

const (
	// RuleActive rules are scanned for dueness on every scheduling query.
	RuleActive RuleStatus = "active"

	// RuleDisabled is terminal: the rule is never surfaced as due again,
	// even if its next due date remains in the past.
	RuleDisabled RuleStatus = "disabled"
)

// RecurringRule is a template describing a transaction that regenerates on
// a periodic schedule.
type RecurringRule struct {
	// ID is the unique identifier (UUID format).
	ID string

	// OwnerID is the user the rule belongs to; due queries are per user.
	OwnerID string

	// TemplateTransactionID is the transaction cloned on each confirm.
	TemplateTransactionID string

	// Frequency is the recurrence period.
	Frequency Frequency

	// DayOfMonth optionally anchors month-based frequencies to a specific
	// day (clamped to shorter months). Zero means no anchor.
	DayOfMonth int

	// NextDue is the next date the rule becomes due. It only ever moves
	// forward.
	NextDue date.Date

	// Status is active or disabled.
	Status RuleStatus

	// CreatedAt is the Unix timestamp when the rule was created.
	CreatedAt int64
}

// Due reports whether the rule should be surfaced on the given day.
func (r *RecurringRule) Due(today date.Date) bool {
	return r.Status == RuleActive && !r.NextDue.After(today)
}
