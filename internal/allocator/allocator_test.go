package allocator

import (
	"math/rand"
	"testing"

	"github.com/mdjukic/settleup/pkg/errors"
)

func members(ids ...string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func TestAllocate(t *testing.T) {
	roster := members("ana", "luka", "marko")

	tests := []struct {
		name         string
		amount       int64
		participants []string
		payer        string
		wantErr      errors.Kind
		validate     func(t *testing.T, a *Allocation)
	}{
		{
			name:         "even three-way split",
			amount:       3000,
			participants: []string{"ana", "luka", "marko"},
			payer:        "marko",
			validate: func(t *testing.T, a *Allocation) {
				if len(a.Shares) != 2 {
					t.Fatalf("want 2 stored shares, got %d", len(a.Shares))
				}
				for _, s := range a.Shares {
					if s.Amount != 1000 {
						t.Errorf("%s share = %d, want 1000", s.UserID, s.Amount)
					}
				}
				if a.PayerShare != 1000 {
					t.Errorf("payer share = %d, want 1000", a.PayerShare)
				}
			},
		},
		{
			name:         "remainder goes to first participants by ascending id",
			amount:       1000,
			participants: []string{"marko", "luka", "ana"},
			payer:        "marko",
			validate: func(t *testing.T, a *Allocation) {
				// 1000 / 3 = 333 r 1; ana (first ascending) gets 334
				byUser := map[string]int64{}
				for _, s := range a.Shares {
					byUser[s.UserID] = s.Amount
				}
				if byUser["ana"] != 334 {
					t.Errorf("ana share = %d, want 334", byUser["ana"])
				}
				if byUser["luka"] != 333 {
					t.Errorf("luka share = %d, want 333", byUser["luka"])
				}
				if a.PayerShare != 333 {
					t.Errorf("payer share = %d, want 333", a.PayerShare)
				}
			},
		},
		{
			name:         "payer not listed still takes implicit share",
			amount:       900,
			participants: []string{"ana", "luka"},
			payer:        "marko",
			validate: func(t *testing.T, a *Allocation) {
				var sum int64
				for _, s := range a.Shares {
					sum += s.Amount
				}
				if sum+a.PayerShare != 900 {
					t.Errorf("sum %d + payer %d != 900", sum, a.PayerShare)
				}
				if len(a.Shares) != 2 {
					t.Errorf("payer must not get a stored share")
				}
			},
		},
		{
			name:         "empty participants",
			amount:       100,
			participants: nil,
			payer:        "marko",
			wantErr:      errors.KindInvalidParticipants,
		},
		{
			name:         "non-member participant",
			amount:       100,
			participants: []string{"ana", "tamara"},
			payer:        "marko",
			wantErr:      errors.KindInvalidParticipants,
		},
		{
			name:         "duplicate participant",
			amount:       100,
			participants: []string{"ana", "ana"},
			payer:        "marko",
			wantErr:      errors.KindInvalidParticipants,
		},
		{
			name:         "non-member payer",
			amount:       100,
			participants: []string{"ana"},
			payer:        "tamara",
			wantErr:      errors.KindInvalidParticipants,
		},
		{
			name:         "non-positive amount",
			amount:       0,
			participants: []string{"ana"},
			payer:        "marko",
			wantErr:      errors.KindValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Allocate(tt.amount, tt.participants, tt.payer, roster)
			if tt.wantErr != "" {
				if err == nil || !errors.Is(err, tt.wantErr) {
					t.Fatalf("want %s error, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Allocate failed: %v", err)
			}
			tt.validate(t, got)
		})
	}
}

// Splits plus the payer's implicit share must reconstruct the amount
// exactly for any amount and participant count.
func TestAllocateExactnessProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 500; trial++ {
		n := 1 + rng.Intn(12)
		roster := make(map[string]bool, n)
		ids := make([]string, n)
		for i := range ids {
			ids[i] = string(rune('a'+i%26)) + string(rune('0'+i/26))
			roster[ids[i]] = true
		}
		amount := 1 + rng.Int63n(10_000_000)
		payer := ids[rng.Intn(n)]

		a, err := Allocate(amount, ids, payer, roster)
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
		sum := a.PayerShare
		var minShare, maxShare int64 = a.PayerShare, a.PayerShare
		for _, s := range a.Shares {
			sum += s.Amount
			if s.Amount < minShare {
				minShare = s.Amount
			}
			if s.Amount > maxShare {
				maxShare = s.Amount
			}
		}
		if sum != amount {
			t.Fatalf("trial %d: shares sum %d != amount %d (n=%d)", trial, sum, amount, n)
		}
		if maxShare-minShare > 1 {
			t.Fatalf("trial %d: uneven split, spread %d minor units", trial, maxShare-minShare)
		}
	}
}
