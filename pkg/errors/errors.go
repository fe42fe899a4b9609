// Package errors defines the typed failure kinds of the settlement and
// recurrence engine. Every failure crossing a component boundary is one of
// these kinds; collaborators never see raw internal errors.
package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies an engine failure.
type Kind string

const (
	// KindInvalidParticipants means an empty or non-member participant set
	// was given to the split allocator. The caller fixes its input.
	KindInvalidParticipants Kind = "invalid_participants"

	// KindRoundingOverflow means a computed split set failed to reconcile
	// to the transaction amount. Internal assertion, never recoverable.
	KindRoundingOverflow Kind = "rounding_overflow"

	// KindStaleSettlement means a settlement confirmation lost a race: the
	// underlying unpaid balance no longer covers the edge amount. The
	// caller recomputes balances and retries.
	KindStaleSettlement Kind = "stale_settlement"

	// KindRateMissing means no FX rate exists for a currency/date pair.
	// Callers proceed with the unconverted amount and a fallback flag.
	KindRateMissing Kind = "rate_missing"

	// KindRecurringAdvanceFailure means advancing a recurring rule produced
	// a date that does not move forward. Defensive, never recoverable.
	KindRecurringAdvanceFailure Kind = "recurring_advance_failure"

	// KindNotFound means a referenced entity does not exist.
	KindNotFound Kind = "not_found"

	// KindPermissionDenied means the caller is not allowed to touch the
	// entity (not the owner and not a group admin).
	KindPermissionDenied Kind = "permission_denied"

	// KindValidation means a request failed boundary validation (bad
	// currency, bad frequency, non-positive amount, malformed date).
	KindValidation Kind = "validation"

	// KindInternal is the catch-all for storage and infrastructure
	// failures. The triggering write is rejected wholesale.
	KindInternal Kind = "internal"
)

// Error is the engine's error type. It carries a kind for programmatic
// handling, a human message, and an optional cause with a stack trace.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the cause to errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Cause }

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause, capturing a
// stack trace at the wrap site.
func Wrap(cause error, kind Kind, format string, args ...any) *Error {
	if cause == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Cause:   pkgerrors.WithStack(cause),
	}
}

// KindOf extracts the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if pkgerrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is an engine error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return pkgerrors.As(err, &e) && e.Kind == kind
}

// Recoverable reports whether the caller can do something about the error:
// fix input, recompute and retry, or proceed with a fallback. Fatal kinds
// reject the triggering write wholesale.
func Recoverable(err error) bool {
	switch KindOf(err) {
	case KindInvalidParticipants, KindStaleSettlement, KindRateMissing,
		KindNotFound, KindPermissionDenied, KindValidation:
		return true
	default:
		return false
	}
}
