package settlement

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/mdjukic/settleup/internal/allocator"
	"github.com/mdjukic/settleup/internal/currency"
	"github.com/mdjukic/settleup/internal/date"
	"github.com/mdjukic/settleup/internal/models"
	"github.com/mdjukic/settleup/pkg/errors"
)

func baseNormalizer() *currency.Normalizer {
	return currency.NewNormalizer(models.RSD, currency.NewSnapshot())
}

// sharedTx allocates amount equally among the roster and returns the
// resulting unpaid splits, the way the ledger service stores them.
func sharedTx(t *testing.T, txID, payer string, amount int64, day string, roster map[string]bool) []UnpaidSplit {
	t.Helper()
	ids := make([]string, 0, len(roster))
	for id := range roster {
		ids = append(ids, id)
	}
	alloc, err := allocator.Allocate(amount, ids, payer, roster)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	var splits []UnpaidSplit
	for i, s := range alloc.Shares {
		splits = append(splits, UnpaidSplit{
			SplitID:       fmt.Sprintf("%s-s%d", txID, i),
			TransactionID: txID,
			PayerID:       payer,
			OwedByUserID:  s.UserID,
			Amount:        s.Amount,
			Currency:      models.RSD,
			Date:          date.MustParse(day),
		})
	}
	return splits
}

func TestComputeBalancesZeroSum(t *testing.T) {
	roster := map[string]bool{"ana": true, "luka": true, "marko": true}
	var splits []UnpaidSplit
	splits = append(splits, sharedTx(t, "t1", "marko", 5000, "2025-04-01", roster)...)
	splits = append(splits, sharedTx(t, "t2", "ana", 2000, "2025-04-02", roster)...)
	splits = append(splits, sharedTx(t, "t3", "luka", 1000, "2025-04-03", roster)...)

	balances, rateMissing := ComputeBalances(splits, baseNormalizer())
	if rateMissing {
		t.Fatal("no conversion needed, rateMissing must be false")
	}
	var sum int64
	for _, b := range balances {
		sum += b
	}
	if sum != 0 {
		t.Errorf("balances sum to %d, want 0", sum)
	}

	// idempotent absent mutation
	again, _ := ComputeBalances(splits, baseNormalizer())
	for user, b := range balances {
		if again[user] != b {
			t.Errorf("balance for %s changed between identical reads: %d != %d", user, b, again[user])
		}
	}
}

// Group of 3: Marko paid 5000, Ana 2000, Luka 1000, all equal-split.
// Fair share is ~2667 each, so exactly 2 edges remain, both into Marko.
func TestComputeTransfersThreeMemberScenario(t *testing.T) {
	roster := map[string]bool{"ana": true, "luka": true, "marko": true}
	var splits []UnpaidSplit
	splits = append(splits, sharedTx(t, "t1", "marko", 5000, "2025-04-01", roster)...)
	splits = append(splits, sharedTx(t, "t2", "ana", 2000, "2025-04-02", roster)...)
	splits = append(splits, sharedTx(t, "t3", "luka", 1000, "2025-04-03", roster)...)

	balances, _ := ComputeBalances(splits, baseNormalizer())
	edges := ComputeTransfers(balances, models.RSD)

	if len(edges) != 2 {
		t.Fatalf("want 2 edges, got %d: %+v", len(edges), edges)
	}
	// largest debtor first: Luka owes ~1667, then Ana ~667
	if edges[0].FromUserID != "luka" || edges[0].ToUserID != "marko" || edges[0].Amount != 1667 {
		t.Errorf("edge 0 = %+v, want luka->marko 1667", edges[0])
	}
	if edges[1].FromUserID != "ana" || edges[1].ToUserID != "marko" || edges[1].Amount != 668 {
		t.Errorf("edge 1 = %+v, want ana->marko 668", edges[1])
	}
}

func TestComputeTransfersDeterministicTies(t *testing.T) {
	balances := map[string]int64{"a": -500, "b": -500, "c": 500, "d": 500}
	first := ComputeTransfers(balances, models.RSD)
	for i := 0; i < 50; i++ {
		got := ComputeTransfers(balances, models.RSD)
		if len(got) != len(first) {
			t.Fatalf("edge count varies: %d != %d", len(got), len(first))
		}
		for j := range got {
			if got[j] != first[j] {
				t.Fatalf("run %d edge %d differs: %+v != %+v", i, j, got[j], first[j])
			}
		}
	}
	// ascending userID on ties: a before b, c before d
	if first[0].FromUserID != "a" || first[0].ToUserID != "c" {
		t.Errorf("tie-break violated: %+v", first[0])
	}
}

// Applying the transfers to any zero-sum balance set must drive every
// member to exactly zero with at most members-1 edges.
func TestComputeTransfersZeroDriveProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 300; trial++ {
		n := 2 + rng.Intn(10)
		balances := make(map[string]int64, n)
		var running int64
		for i := 0; i < n-1; i++ {
			user := fmt.Sprintf("u%02d", i)
			b := rng.Int63n(200_001) - 100_000
			balances[user] = b
			running += b
		}
		balances[fmt.Sprintf("u%02d", n-1)] = -running

		edges := ComputeTransfers(balances, models.RSD)
		if len(edges) > n-1 {
			t.Fatalf("trial %d: %d edges for %d members", trial, len(edges), n)
		}
		applied := make(map[string]int64, n)
		for u, b := range balances {
			applied[u] = b
		}
		for _, e := range edges {
			if e.Amount <= 0 {
				t.Fatalf("trial %d: non-positive edge %+v", trial, e)
			}
			applied[e.FromUserID] += e.Amount
			applied[e.ToUserID] -= e.Amount
		}
		for u, b := range applied {
			if b != 0 {
				t.Fatalf("trial %d: %s left with %d after applying edges", trial, u, b)
			}
		}
	}
}

func TestPlanSettlement(t *testing.T) {
	rows := []DebtRow{
		{SplitID: "s1", TransactionID: "t1", AmountInBase: 1000, Date: date.MustParse("2025-04-01")},
		{SplitID: "s2", TransactionID: "t2", AmountInBase: 400, Date: date.MustParse("2025-04-02")},
		{SplitID: "s3", TransactionID: "t3", AmountInBase: 250, Date: date.MustParse("2025-04-03")},
	}

	t.Run("fifo consumption", func(t *testing.T) {
		plan, err := PlanSettlement(1400, rows)
		if err != nil {
			t.Fatalf("plan: %v", err)
		}
		if len(plan.SplitIDs) != 2 || plan.SplitIDs[0] != "s1" || plan.SplitIDs[1] != "s2" {
			t.Errorf("splits = %v, want [s1 s2]", plan.SplitIDs)
		}
		if plan.Residual != 0 || plan.Applied != 1400 {
			t.Errorf("applied=%d residual=%d, want 1400/0", plan.Applied, plan.Residual)
		}
	})

	t.Run("smallest fit when head too large", func(t *testing.T) {
		plan, err := PlanSettlement(300, rows)
		if err != nil {
			t.Fatalf("plan: %v", err)
		}
		// s1 (1000) does not fit into 300, s3 (250) is the smallest fit
		if len(plan.SplitIDs) != 1 || plan.SplitIDs[0] != "s3" {
			t.Errorf("splits = %v, want [s3]", plan.SplitIDs)
		}
		if plan.Residual != 50 {
			t.Errorf("residual = %d, want 50", plan.Residual)
		}
	})

	t.Run("stale when balance shrank", func(t *testing.T) {
		_, err := PlanSettlement(2000, rows)
		if !errors.Is(err, errors.KindStaleSettlement) {
			t.Errorf("want StaleSettlement, got %v", err)
		}
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		if _, err := PlanSettlement(0, rows); !errors.Is(err, errors.KindValidation) {
			t.Errorf("want validation error, got %v", err)
		}
	})

	t.Run("date tie falls back to transaction then split id", func(t *testing.T) {
		same := []DebtRow{
			{SplitID: "b", TransactionID: "t2", AmountInBase: 100, Date: date.MustParse("2025-04-01")},
			{SplitID: "a", TransactionID: "t1", AmountInBase: 100, Date: date.MustParse("2025-04-01")},
		}
		plan, err := PlanSettlement(100, same)
		if err != nil {
			t.Fatalf("plan: %v", err)
		}
		if plan.SplitIDs[0] != "a" {
			t.Errorf("expected t1's split first, got %v", plan.SplitIDs)
		}
	})
}
