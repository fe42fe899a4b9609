package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"typed error", New(KindStaleSettlement, "edge no longer covered"), KindStaleSettlement},
		{"wrapped typed error", fmt.Errorf("confirm: %w", New(KindInvalidParticipants, "empty set")), KindInvalidParticipants},
		{"foreign error", stderrors.New("disk full"), KindInternal},
		{"wrapped cause keeps outer kind", Wrap(stderrors.New("db locked"), KindInternal, "settle splits"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecoverable(t *testing.T) {
	if Recoverable(New(KindRoundingOverflow, "sum mismatch")) {
		t.Error("rounding overflow must not be recoverable")
	}
	if Recoverable(New(KindRecurringAdvanceFailure, "date went backward")) {
		t.Error("recurring advance failure must not be recoverable")
	}
	if !Recoverable(New(KindStaleSettlement, "race")) {
		t.Error("stale settlement is recoverable by recompute+retry")
	}
	if !Recoverable(New(KindRateMissing, "no rate")) {
		t.Error("rate missing is recoverable via fallback flag")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, KindInternal, "nothing") != nil {
		t.Error("wrapping nil must return nil")
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(KindNotFound, "rule %s", "r1"))
	if !Is(err, KindNotFound) {
		t.Error("Is should see through wrapping")
	}
	if Is(err, KindValidation) {
		t.Error("Is matched the wrong kind")
	}
}
