// Package service orchestrates the pure engines (allocator, settlement,
// recurring, currency) over the store and publishes domain events. All
// authorization decisions live here.
package service

import (
	"context"
	"strconv"

	"github.com/mdjukic/settleup/internal/allocator"
	"github.com/mdjukic/settleup/internal/currency"
	"github.com/mdjukic/settleup/internal/events"
	"github.com/mdjukic/settleup/internal/metrics"
	"github.com/mdjukic/settleup/internal/models"
	"github.com/mdjukic/settleup/internal/storage"
	"github.com/mdjukic/settleup/pkg/errors"
)

// LedgerService owns the transaction lifecycle: create with allocation and
// normalization, patch with re-allocation, delete with cascade.
type LedgerService struct {
	store      storage.Store
	normalizer *currency.Normalizer
	bus        *events.Bus
}

// NewLedgerService creates a ledger service.
func NewLedgerService(store storage.Store, normalizer *currency.Normalizer, bus *events.Bus) *LedgerService {
	return &LedgerService{store: store, normalizer: normalizer, bus: bus}
}

// Create validates the input, normalizes the amount, allocates splits when
// the transaction is shared, and commits everything atomically.
func (s *LedgerService) Create(ctx context.Context, spec models.TransactionSpec) (*models.Transaction, []*models.Split, error) {
	tx, splits, err := s.build(ctx, spec)
	if err != nil {
		return nil, nil, err
	}
	if err := s.store.CreateTransaction(ctx, tx, splits); err != nil {
		return nil, nil, err
	}
	s.recordCreated(tx)
	return tx, splits, nil
}

// build runs validation, normalization, and allocation without touching the
// store. The recurring service uses it to prepare a materialized
// transaction that commits together with its rule.
func (s *LedgerService) build(ctx context.Context, spec models.TransactionSpec) (*models.Transaction, []*models.Split, error) {
	if spec.Amount <= 0 {
		return nil, nil, errors.New(errors.KindValidation, "amount must be positive, got %d", spec.Amount)
	}
	if _, err := models.ParseCurrency(string(spec.Currency)); err != nil {
		return nil, nil, err
	}
	if spec.GroupID == "" && len(spec.ParticipantIDs) > 0 {
		return nil, nil, errors.New(errors.KindValidation, "participants require a group")
	}

	inBase, rateMissing := s.normalizer.Normalize(spec.Amount, spec.Currency, spec.Date)
	if rateMissing {
		metrics.RatesMissing.Inc()
	}

	tx := &models.Transaction{
		OwnerID:         spec.OwnerID,
		Amount:          spec.Amount,
		Currency:        spec.Currency,
		AmountInBase:    inBase,
		RateMissing:     rateMissing,
		Date:            spec.Date,
		CategoryID:      spec.CategoryID,
		GroupID:         spec.GroupID,
		RecurringRuleID: spec.RecurringRuleID,
	}

	var splits []*models.Split
	if tx.Shared() {
		alloc, err := s.allocate(ctx, spec.GroupID, spec.Amount, spec.ParticipantIDs, spec.OwnerID)
		if err != nil {
			return nil, nil, err
		}
		splits = sharesToSplits(alloc.Shares)
	}
	return tx, splits, nil
}

// recordCreated publishes the metrics and event for a committed transaction.
func (s *LedgerService) recordCreated(tx *models.Transaction) {
	metrics.TransactionsCreated.WithLabelValues(strconv.FormatBool(tx.Shared())).Inc()
	s.bus.Publish(events.TransactionCreated{
		TransactionID: tx.ID,
		OwnerID:       tx.OwnerID,
		GroupID:       tx.GroupID,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		RateMissing:   tx.RateMissing,
	})
}

// Get returns a transaction visible to the caller: its owner, or any member
// of its group.
func (s *LedgerService) Get(ctx context.Context, userID, txID string) (*models.Transaction, []*models.Split, error) {
	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, nil, err
	}
	if tx.OwnerID != userID {
		if !tx.Shared() {
			return nil, nil, errors.New(errors.KindPermissionDenied, "transaction belongs to another user")
		}
		member, _, err := s.roster(ctx, tx.GroupID, userID)
		if err != nil {
			return nil, nil, err
		}
		if !member {
			return nil, nil, errors.New(errors.KindPermissionDenied, "not a member of the transaction's group")
		}
	}
	splits, err := s.store.ListSplitsByTransaction(ctx, txID)
	if err != nil {
		return nil, nil, err
	}
	return tx, splits, nil
}

// Update applies a partial patch. Amount, currency or date changes re-run
// normalization; any patch on a shared transaction re-runs allocation and
// replaces the splits. Only the owner or a group admin may edit.
func (s *LedgerService) Update(ctx context.Context, userID, txID string, patch models.TransactionPatch) (*models.Transaction, []*models.Split, error) {
	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.authorizeWrite(ctx, userID, tx); err != nil {
		return nil, nil, err
	}

	if patch.Amount != nil {
		if *patch.Amount <= 0 {
			return nil, nil, errors.New(errors.KindValidation, "amount must be positive, got %d", *patch.Amount)
		}
		tx.Amount = *patch.Amount
	}
	if patch.Currency != nil {
		if _, err := models.ParseCurrency(string(*patch.Currency)); err != nil {
			return nil, nil, err
		}
		tx.Currency = *patch.Currency
	}
	if patch.Date != nil {
		tx.Date = *patch.Date
	}
	if patch.CategoryID != nil {
		tx.CategoryID = *patch.CategoryID
	}
	tx.AmountInBase, tx.RateMissing = s.normalizer.Normalize(tx.Amount, tx.Currency, tx.Date)
	if tx.RateMissing {
		metrics.RatesMissing.Inc()
	}

	var splits []*models.Split
	if tx.Shared() {
		participants := patch.ParticipantIDs
		if participants == nil {
			if participants, err = s.currentParticipants(ctx, txID); err != nil {
				return nil, nil, err
			}
		}
		alloc, err := s.allocate(ctx, tx.GroupID, tx.Amount, participants, tx.OwnerID)
		if err != nil {
			return nil, nil, err
		}
		splits = sharesToSplits(alloc.Shares)
	} else if patch.ParticipantIDs != nil {
		return nil, nil, errors.New(errors.KindValidation, "participants require a group")
	}

	if err := s.store.UpdateTransaction(ctx, tx, splits); err != nil {
		return nil, nil, err
	}
	return tx, splits, nil
}

// Delete removes a transaction and its splits. Only the owner or a group
// admin may delete.
func (s *LedgerService) Delete(ctx context.Context, userID, txID string) error {
	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return err
	}
	if err := s.authorizeWrite(ctx, userID, tx); err != nil {
		return err
	}
	return s.store.DeleteTransaction(ctx, txID)
}

func (s *LedgerService) allocate(ctx context.Context, groupID string, amount int64, participantIDs []string, payerID string) (*allocator.Allocation, error) {
	_, memberOf, err := s.roster(ctx, groupID, "")
	if err != nil {
		return nil, err
	}
	return allocator.Allocate(amount, participantIDs, payerID, memberOf)
}

// roster loads a group's members. It reports whether userID is among them
// and returns the full membership set for the allocator.
func (s *LedgerService) roster(ctx context.Context, groupID, userID string) (isMember bool, memberOf map[string]bool, err error) {
	members, err := s.store.ListGroupMembers(ctx, groupID)
	if err != nil {
		return false, nil, err
	}
	memberOf = make(map[string]bool, len(members))
	for _, m := range members {
		memberOf[m.UserID] = true
	}
	return memberOf[userID], memberOf, nil
}

// authorizeWrite allows the owner always, and group admins for shared
// transactions.
func (s *LedgerService) authorizeWrite(ctx context.Context, userID string, tx *models.Transaction) error {
	if tx.OwnerID == userID {
		return nil
	}
	if !tx.Shared() {
		return errors.New(errors.KindPermissionDenied, "transaction belongs to another user")
	}
	members, err := s.store.ListGroupMembers(ctx, tx.GroupID)
	if err != nil {
		return err
	}
	for _, m := range members {
		if m.UserID == userID && m.Role == models.RoleAdmin {
			return nil
		}
	}
	return errors.New(errors.KindPermissionDenied, "only the owner or a group admin may modify this transaction")
}

func (s *LedgerService) currentParticipants(ctx context.Context, txID string) ([]string, error) {
	splits, err := s.store.ListSplitsByTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	participants := make([]string, 0, len(splits))
	for _, sp := range splits {
		participants = append(participants, sp.OwedByUserID)
	}
	return participants, nil
}

func sharesToSplits(shares []allocator.Share) []*models.Split {
	splits := make([]*models.Split, 0, len(shares))
	for _, sh := range shares {
		splits = append(splits, &models.Split{OwedByUserID: sh.UserID, Amount: sh.Amount})
	}
	return splits
}
