// Package recurring drives the due-date lifecycle of recurring rules: pure
// calendar arithmetic, pull-based due detection, and the
// confirm/postpone/skip/disable transitions. Materializing transactions is
// the service layer's job; everything in here is side-effect free.
package recurring

import (
	"github.com/mdjukic/settleup/internal/date"
	"github.com/mdjukic/settleup/internal/models"
	"github.com/mdjukic/settleup/pkg/errors"
)

// AddPeriod advances a date by one recurrence period. Month-based
// frequencies add calendar months and clamp to the last valid day of the
// target month (Jan 31 + monthly = Feb 28/29). A positive anchorDay pins
// month-based frequencies to that day of the month, clamped the same way.
//
// Fails with RecurringAdvanceFailure if the produced date does not move
// forward; that indicates a bug, not bad input, and the triggering write
// must be rejected.
func AddPeriod(d date.Date, f models.Frequency, anchorDay int) (date.Date, error) {
	if anchorDay < 0 || anchorDay > 31 {
		return date.Date{}, errors.New(errors.KindValidation, "anchor day %d out of range", anchorDay)
	}

	var next date.Date
	if f == models.Weekly {
		next = d.AddDays(7)
	} else {
		months := f.Months()
		if months == 0 {
			return date.Date{}, errors.New(errors.KindValidation, "unsupported frequency %q", f)
		}
		next = d.AddMonths(months)
		if anchorDay > 0 {
			day := anchorDay
			if last := date.DaysIn(next.Year(), next.Month()); day > last {
				day = last
			}
			next = date.New(next.Year(), next.Month(), day)
		}
	}

	if !next.After(d) {
		return date.Date{}, errors.New(errors.KindRecurringAdvanceFailure,
			"advancing %s by %s produced %s", d, f, next)
	}
	return next, nil
}
