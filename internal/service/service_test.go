package service

import (
	"context"
	"os"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mdjukic/settleup/internal/currency"
	"github.com/mdjukic/settleup/internal/date"
	"github.com/mdjukic/settleup/internal/events"
	"github.com/mdjukic/settleup/internal/models"
	"github.com/mdjukic/settleup/internal/storage/sqlite"
	"github.com/mdjukic/settleup/pkg/errors"
)

type testEnv struct {
	store      *sqlite.SQLiteStore
	ledger     *LedgerService
	settlement *SettlementService
	recurring  *RecurringService
}

// setupServices wires the services over a temp database with a group of
// three (marko is admin) and an EUR rate of 117.5 from 2025-01-01 on.
func setupServices(t *testing.T) *testEnv {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "settleup-service-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
		os.Remove(tmpFile.Name())
	})

	members := []models.GroupMembership{
		{GroupID: "g1", UserID: "marko", Role: models.RoleAdmin},
		{GroupID: "g1", UserID: "ana"},
		{GroupID: "g1", UserID: "luka"},
	}
	if err := store.ReplaceGroupMembers(context.Background(), "g1", members); err != nil {
		t.Fatalf("seed roster: %v", err)
	}

	rates := currency.NewSnapshot()
	rates.Set(models.EUR, date.MustParse("2025-01-01"), decimal.RequireFromString("117.5"))
	normalizer := currency.NewNormalizer(models.RSD, rates)

	bus := events.NewBus()
	ledger := NewLedgerService(store, normalizer, bus)
	return &testEnv{
		store:      store,
		ledger:     ledger,
		settlement: NewSettlementService(store, normalizer, bus),
		recurring:  NewRecurringService(store, ledger, bus),
	}
}

func (e *testEnv) mustCreate(t *testing.T, spec models.TransactionSpec) *models.Transaction {
	t.Helper()
	tx, _, err := e.ledger.Create(context.Background(), spec)
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return tx
}

func sharedSpec(owner string, amount int64, day string) models.TransactionSpec {
	return models.TransactionSpec{
		OwnerID:        owner,
		Amount:         amount,
		Currency:       models.RSD,
		Date:           date.MustParse(day),
		CategoryID:     "trip",
		GroupID:        "g1",
		ParticipantIDs: []string{"marko", "ana", "luka"},
	}
}

func TestCreateSharedTransactionAllocates(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	tx, splits, err := env.ledger.Create(ctx, sharedSpec("marko", 5000, "2025-03-01"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(splits) != 2 {
		t.Fatalf("want 2 splits (payer implicit), got %d", len(splits))
	}
	var sum int64
	for _, sp := range splits {
		// ana and luka precede marko in ascending order, so they carry
		// the remainder units
		if sp.Amount != 1667 {
			t.Errorf("split %s = %d, want 1667", sp.OwedByUserID, sp.Amount)
		}
		sum += sp.Amount
	}
	if sum+1666 != tx.Amount {
		t.Errorf("shares do not reconcile: splits %d + payer 1666 != %d", sum, tx.Amount)
	}
}

func TestCreateRejectsNonMember(t *testing.T) {
	env := setupServices(t)
	spec := sharedSpec("marko", 3000, "2025-03-01")
	spec.ParticipantIDs = []string{"marko", "ana", "stranger"}
	_, _, err := env.ledger.Create(context.Background(), spec)
	if !errors.Is(err, errors.KindInvalidParticipants) {
		t.Fatalf("want InvalidParticipants, got %v", err)
	}
}

func TestNormalizationOnCreate(t *testing.T) {
	env := setupServices(t)

	// 10.00 EUR at 117.5 is 1175.00 RSD; the January rate carries forward
	tx := env.mustCreate(t, models.TransactionSpec{
		OwnerID: "marko", Amount: 1000, Currency: models.EUR,
		Date: date.MustParse("2025-03-01"), CategoryID: "travel",
	})
	if tx.AmountInBase != 117500 || tx.RateMissing {
		t.Errorf("AmountInBase = %d (missing=%v), want 117500", tx.AmountInBase, tx.RateMissing)
	}

	// no USD rate at all: carried verbatim and flagged
	tx = env.mustCreate(t, models.TransactionSpec{
		OwnerID: "marko", Amount: 500, Currency: models.USD,
		Date: date.MustParse("2025-03-01"), CategoryID: "travel",
	})
	if tx.AmountInBase != 500 || !tx.RateMissing {
		t.Errorf("missing rate must carry amount verbatim, got %d (missing=%v)", tx.AmountInBase, tx.RateMissing)
	}
}

func seedTripScenario(t *testing.T, env *testEnv) {
	t.Helper()
	env.mustCreate(t, sharedSpec("marko", 5000, "2025-03-01"))
	env.mustCreate(t, sharedSpec("ana", 2000, "2025-03-02"))
	env.mustCreate(t, sharedSpec("luka", 1000, "2025-03-03"))
}

func TestBalancesAndTransfers(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	seedTripScenario(t, env)

	balances, rateMissing, err := env.settlement.Balances(ctx, "marko", "g1")
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if rateMissing {
		t.Error("all amounts are in base currency, rateMissing must be false")
	}
	want := map[string]int64{"marko": 2335, "ana": -668, "luka": -1667}
	for user, b := range want {
		if balances[user] != b {
			t.Errorf("balance[%s] = %d, want %d", user, balances[user], b)
		}
	}

	edges, _, err := env.settlement.ProposeTransfers(ctx, "ana", "g1")
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("want 2 edges, got %d: %+v", len(edges), edges)
	}
	if edges[0].FromUserID != "luka" || edges[0].ToUserID != "marko" || edges[0].Amount != 1667 {
		t.Errorf("edge[0] = %+v, want luka->marko 1667", edges[0])
	}
	if edges[1].FromUserID != "ana" || edges[1].ToUserID != "marko" || edges[1].Amount != 668 {
		t.Errorf("edge[1] = %+v, want ana->marko 668", edges[1])
	}
}

func TestBalancesRequireMembership(t *testing.T) {
	env := setupServices(t)
	_, _, err := env.settlement.Balances(context.Background(), "stranger", "g1")
	if !errors.Is(err, errors.KindPermissionDenied) {
		t.Fatalf("want PermissionDenied, got %v", err)
	}
}

func TestConfirmSettlement(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	seedTripScenario(t, env)

	edge := models.SettlementEdge{FromUserID: "luka", ToUserID: "marko", Amount: 1667, Currency: models.RSD}
	st, err := env.settlement.Confirm(ctx, "luka", "g1", edge, "")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if st.Amount != 1667 || st.Residual != 0 {
		t.Errorf("settlement = %+v, want applied 1667 residual 0", st)
	}

	balances, _, _ := env.settlement.Balances(ctx, "luka", "g1")
	if balances["luka"] != 0 {
		t.Errorf("luka's balance = %d after settling, want 0", balances["luka"])
	}

	// the edge is now stale: luka's unpaid debt no longer covers it
	if _, err := env.settlement.Confirm(ctx, "luka", "g1", edge, ""); !errors.Is(err, errors.KindStaleSettlement) {
		t.Fatalf("want StaleSettlement on replay, got %v", err)
	}

	history, err := env.settlement.History(ctx, "marko", "g1")
	if err != nil || len(history) != 1 {
		t.Fatalf("history: %v, %d records", err, len(history))
	}
}

func TestConfirmLeavesResidual(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	seedTripScenario(t, env)

	// ana owes splits of 1667 and 334; only the 334 fits under 700, and
	// the remaining 366 cannot be matched to a whole split
	edge := models.SettlementEdge{FromUserID: "ana", ToUserID: "marko", Amount: 700, Currency: models.RSD}
	st, err := env.settlement.Confirm(ctx, "ana", "g1", edge, "partial")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if st.Amount != 334 || st.Residual != 366 {
		t.Errorf("settlement = applied %d residual %d, want 334/366", st.Amount, st.Residual)
	}

	balances, _, _ := env.settlement.Balances(ctx, "ana", "g1")
	if balances["ana"] != -334 {
		t.Errorf("ana's balance = %d, want -334 (residual stays unpaid)", balances["ana"])
	}
}

func TestUpdateAuthorization(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	tx := env.mustCreate(t, sharedSpec("ana", 3000, "2025-03-01"))

	amount := int64(3300)
	// luka is a plain member and may not edit ana's transaction
	if _, _, err := env.ledger.Update(ctx, "luka", tx.ID, models.TransactionPatch{Amount: &amount}); !errors.Is(err, errors.KindPermissionDenied) {
		t.Fatalf("want PermissionDenied for member, got %v", err)
	}

	// marko is group admin
	updated, splits, err := env.ledger.Update(ctx, "marko", tx.ID, models.TransactionPatch{Amount: &amount})
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if updated.Amount != 3300 {
		t.Errorf("amount = %d, want 3300", updated.Amount)
	}
	var sum int64
	for _, sp := range splits {
		sum += sp.Amount
	}
	if sum != 2200 {
		t.Errorf("reallocated splits sum = %d, want 2200 (payer keeps 1100)", sum)
	}
}

func TestDeleteRemovesDebt(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	tx := env.mustCreate(t, sharedSpec("marko", 3000, "2025-03-01"))

	if err := env.ledger.Delete(ctx, "marko", tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	balances, _, _ := env.settlement.Balances(ctx, "marko", "g1")
	for user, b := range balances {
		if b != 0 {
			t.Errorf("balance[%s] = %d after delete, want 0", user, b)
		}
	}
}

func TestRecurringLifecycle(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	template := env.mustCreate(t, models.TransactionSpec{
		OwnerID: "marko", Amount: 2500, Currency: models.RSD,
		Date: date.MustParse("2025-01-31"), CategoryID: "rent",
	})
	rule, err := env.recurring.CreateRule(ctx, "marko", template.ID, models.Monthly, 31, date.MustParse("2025-01-31"))
	if err != nil {
		t.Fatalf("create rule: %v", err)
	}

	today := date.MustParse("2025-02-01")
	queue, err := env.recurring.Due(ctx, "marko", today)
	if err != nil || len(queue) != 1 {
		t.Fatalf("due queue: %v, %d items", err, len(queue))
	}

	tx, _, rule, err := env.recurring.Confirm(ctx, "marko", rule.ID, today, MaterializeOverrides{})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if tx.Date.String() != "2025-01-31" {
		t.Errorf("materialized date = %s, want the due date 2025-01-31", tx.Date)
	}
	if tx.RecurringRuleID != rule.ID {
		t.Error("materialized transaction must link back to its rule")
	}
	// Jan 31 + monthly clamps to the end of February
	if rule.NextDue.String() != "2025-02-28" {
		t.Errorf("next due = %s, want 2025-02-28", rule.NextDue)
	}

	// no longer due today, so confirm and skip are rejected
	if _, _, _, err := env.recurring.Confirm(ctx, "marko", rule.ID, today, MaterializeOverrides{}); !errors.Is(err, errors.KindValidation) {
		t.Fatalf("want Validation when not due, got %v", err)
	}

	march := date.MustParse("2025-03-01")
	rule, err = env.recurring.SkipOnce(ctx, "marko", rule.ID, march)
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	// the anchor pulls the date back to day 31
	if rule.NextDue.String() != "2025-03-31" {
		t.Errorf("next due after skip = %s, want 2025-03-31", rule.NextDue)
	}

	april := date.MustParse("2025-03-31")
	rule, err = env.recurring.Postpone(ctx, "marko", rule.ID, 7, april)
	if err != nil {
		t.Fatalf("postpone: %v", err)
	}
	if rule.NextDue.String() != "2025-04-07" {
		t.Errorf("next due after postpone = %s, want 2025-04-07", rule.NextDue)
	}

	if _, err := env.recurring.Disable(ctx, "marko", rule.ID); err != nil {
		t.Fatalf("disable: %v", err)
	}
	queue, _ = env.recurring.Due(ctx, "marko", date.MustParse("2026-01-01"))
	if len(queue) != 0 {
		t.Errorf("disabled rule must never surface as due, got %+v", queue)
	}
	if _, _, _, err := env.recurring.Confirm(ctx, "marko", rule.ID, date.MustParse("2026-01-01"), MaterializeOverrides{}); !errors.Is(err, errors.KindValidation) {
		t.Fatalf("want Validation on disabled rule, got %v", err)
	}
}

func TestRecurringConfirmOverrides(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	template := env.mustCreate(t, models.TransactionSpec{
		OwnerID: "marko", Amount: 2500, Currency: models.RSD,
		Date: date.MustParse("2025-01-01"), CategoryID: "rent",
	})
	rule, err := env.recurring.CreateRule(ctx, "marko", template.ID, models.Monthly, 0, date.MustParse("2025-02-01"))
	if err != nil {
		t.Fatalf("create rule: %v", err)
	}

	// this month the rent went up and was paid two days late
	amount := int64(2700)
	paid := date.MustParse("2025-02-03")
	today := date.MustParse("2025-02-03")
	tx, _, rule, err := env.recurring.Confirm(ctx, "marko", rule.ID, today, MaterializeOverrides{Amount: &amount, Date: &paid})
	if err != nil {
		t.Fatalf("confirm with overrides: %v", err)
	}
	if tx.Amount != 2700 {
		t.Errorf("amount = %d, want the overridden 2700", tx.Amount)
	}
	if tx.Date.String() != "2025-02-03" {
		t.Errorf("date = %s, want the overridden 2025-02-03", tx.Date)
	}
	if rule.NextDue.String() != "2025-03-01" {
		t.Errorf("next due = %s, want 2025-03-01 (overrides never touch the schedule)", rule.NextDue)
	}

	// an invalid override must reject the whole confirmation: nothing is
	// materialized and the rule stays due
	bad := int64(-5)
	if _, _, _, err := env.recurring.Confirm(ctx, "marko", rule.ID, date.MustParse("2025-03-01"), MaterializeOverrides{Amount: &bad}); !errors.Is(err, errors.KindValidation) {
		t.Fatalf("want Validation on negative override, got %v", err)
	}
	stored, err := env.store.GetRecurringRule(ctx, rule.ID)
	if err != nil {
		t.Fatalf("get rule: %v", err)
	}
	if stored.NextDue.String() != "2025-03-01" {
		t.Errorf("rejected confirm advanced the rule to %s", stored.NextDue)
	}
}

func TestRecurringOwnership(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	template := env.mustCreate(t, models.TransactionSpec{
		OwnerID: "marko", Amount: 2500, Currency: models.RSD,
		Date: date.MustParse("2025-01-01"), CategoryID: "rent",
	})
	if _, err := env.recurring.CreateRule(ctx, "ana", template.ID, models.Monthly, 0, date.MustParse("2025-02-01")); !errors.Is(err, errors.KindPermissionDenied) {
		t.Fatalf("want PermissionDenied on foreign template, got %v", err)
	}

	rule, err := env.recurring.CreateRule(ctx, "marko", template.ID, models.Weekly, 0, date.MustParse("2025-02-01"))
	if err != nil {
		t.Fatalf("create rule: %v", err)
	}
	if _, err := env.recurring.Disable(ctx, "ana", rule.ID); !errors.Is(err, errors.KindPermissionDenied) {
		t.Fatalf("want PermissionDenied on foreign rule, got %v", err)
	}
}
