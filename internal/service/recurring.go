package service

import (
	"context"

	"github.com/mdjukic/settleup/internal/date"
	"github.com/mdjukic/settleup/internal/events"
	"github.com/mdjukic/settleup/internal/metrics"
	"github.com/mdjukic/settleup/internal/models"
	"github.com/mdjukic/settleup/internal/recurring"
	"github.com/mdjukic/settleup/internal/storage"
	"github.com/mdjukic/settleup/pkg/errors"
)

// RecurringService manages recurring rules: creation, the due queue, and
// the confirm/postpone/skip/disable resolutions. Confirm materializes a
// transaction through the ledger service so allocation and normalization
// run exactly as for a hand-entered transaction.
type RecurringService struct {
	store  storage.Store
	ledger *LedgerService
	bus    *events.Bus
}

// NewRecurringService creates a recurring service.
func NewRecurringService(store storage.Store, ledger *LedgerService, bus *events.Bus) *RecurringService {
	return &RecurringService{store: store, ledger: ledger, bus: bus}
}

// CreateRule registers a rule over an existing transaction template.
func (s *RecurringService) CreateRule(ctx context.Context, ownerID, templateTxID string, freq models.Frequency, dayOfMonth int, firstDue date.Date) (*models.RecurringRule, error) {
	if _, err := models.ParseFrequency(string(freq)); err != nil {
		return nil, err
	}
	if dayOfMonth < 0 || dayOfMonth > 31 {
		return nil, errors.New(errors.KindValidation, "day of month %d out of range", dayOfMonth)
	}
	template, err := s.store.GetTransaction(ctx, templateTxID)
	if err != nil {
		return nil, err
	}
	if template.OwnerID != ownerID {
		return nil, errors.New(errors.KindPermissionDenied, "template belongs to another user")
	}

	rule := &models.RecurringRule{
		OwnerID:               ownerID,
		TemplateTransactionID: templateTxID,
		Frequency:             freq,
		DayOfMonth:            dayOfMonth,
		NextDue:               firstDue,
	}
	if err := s.store.CreateRecurringRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// Due returns the caller's pending queue: one item per overdue rule,
// oldest first. The queue is derived from rule state on every call.
func (s *RecurringService) Due(ctx context.Context, ownerID string, today date.Date) ([]recurring.DueItem, error) {
	rules, err := s.store.ListActiveRulesByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	queue := recurring.DueQueue(rules, today)
	for _, item := range queue {
		s.bus.Publish(events.RecurringDue{RuleID: item.RuleID, OwnerID: ownerID, DueDate: item.DueDate})
	}
	return queue, nil
}

// MaterializeOverrides optionally replaces the template's amount or the due
// date on a single confirmation. Nil fields fall back to the template
// amount and the rule's due date.
type MaterializeOverrides struct {
	Amount *int64
	Date   *date.Date
}

// Confirm materializes the due occurrence as a real transaction cloned from
// the template, dated on the rule's due date unless overridden, and
// advances the rule one period. The transaction, its splits, and the
// advanced rule commit in one store operation, so a failure can never leave
// the occurrence charged with the rule still due.
func (s *RecurringService) Confirm(ctx context.Context, ownerID, ruleID string, today date.Date, overrides MaterializeOverrides) (*models.Transaction, []*models.Split, *models.RecurringRule, error) {
	rule, err := s.ownedRule(ctx, ownerID, ruleID)
	if err != nil {
		return nil, nil, nil, err
	}
	dueDate := rule.NextDue
	if err := recurring.Advance(rule, today); err != nil {
		return nil, nil, nil, err
	}

	template, err := s.store.GetTransaction(ctx, rule.TemplateTransactionID)
	if err != nil {
		return nil, nil, nil, err
	}
	spec := models.TransactionSpec{
		OwnerID:         template.OwnerID,
		Amount:          template.Amount,
		Currency:        template.Currency,
		Date:            dueDate,
		CategoryID:      template.CategoryID,
		GroupID:         template.GroupID,
		RecurringRuleID: rule.ID,
	}
	if overrides.Amount != nil {
		spec.Amount = *overrides.Amount
	}
	if overrides.Date != nil {
		spec.Date = *overrides.Date
	}
	if template.Shared() {
		if spec.ParticipantIDs, err = s.ledger.currentParticipants(ctx, template.ID); err != nil {
			return nil, nil, nil, err
		}
	}

	tx, splits, err := s.ledger.build(ctx, spec)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := s.store.MaterializeRecurring(ctx, tx, splits, rule); err != nil {
		return nil, nil, nil, err
	}
	s.ledger.recordCreated(tx)
	metrics.RecurringMaterialized.Inc()
	return tx, splits, rule, nil
}

// SkipOnce advances the rule one period without materializing anything.
func (s *RecurringService) SkipOnce(ctx context.Context, ownerID, ruleID string, today date.Date) (*models.RecurringRule, error) {
	rule, err := s.ownedRule(ctx, ownerID, ruleID)
	if err != nil {
		return nil, err
	}
	if err := recurring.Advance(rule, today); err != nil {
		return nil, err
	}
	if err := s.store.UpdateRecurringRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// Postpone pushes the due date forward by the given number of days.
func (s *RecurringService) Postpone(ctx context.Context, ownerID, ruleID string, days int, today date.Date) (*models.RecurringRule, error) {
	rule, err := s.ownedRule(ctx, ownerID, ruleID)
	if err != nil {
		return nil, err
	}
	if err := recurring.Postpone(rule, today, days); err != nil {
		return nil, err
	}
	if err := s.store.UpdateRecurringRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// Disable turns the rule off permanently.
func (s *RecurringService) Disable(ctx context.Context, ownerID, ruleID string) (*models.RecurringRule, error) {
	rule, err := s.ownedRule(ctx, ownerID, ruleID)
	if err != nil {
		return nil, err
	}
	recurring.Disable(rule)
	if err := s.store.UpdateRecurringRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *RecurringService) ownedRule(ctx context.Context, ownerID, ruleID string) (*models.RecurringRule, error) {
	rule, err := s.store.GetRecurringRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if rule.OwnerID != ownerID {
		return nil, errors.New(errors.KindPermissionDenied, "rule belongs to another user")
	}
	return rule, nil
}
