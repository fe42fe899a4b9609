package service

import (
	"context"
	"sync"

	"github.com/mdjukic/settleup/internal/currency"
	"github.com/mdjukic/settleup/internal/events"
	"github.com/mdjukic/settleup/internal/metrics"
	"github.com/mdjukic/settleup/internal/models"
	"github.com/mdjukic/settleup/internal/settlement"
	"github.com/mdjukic/settleup/internal/storage"
	"github.com/mdjukic/settleup/pkg/errors"
)

// SettlementService exposes group netting: balances, proposed transfers,
// and confirmation. Confirmations are serialized per group so two members
// cannot consume the same splits; the database is_paid guard remains the
// backstop for other writers.
type SettlementService struct {
	store      storage.Store
	normalizer *currency.Normalizer
	bus        *events.Bus

	mu     sync.Mutex
	groups map[string]*sync.Mutex
}

// NewSettlementService creates a settlement service.
func NewSettlementService(store storage.Store, normalizer *currency.Normalizer, bus *events.Bus) *SettlementService {
	return &SettlementService{
		store:      store,
		normalizer: normalizer,
		bus:        bus,
		groups:     make(map[string]*sync.Mutex),
	}
}

// Balances returns each member's net position in base-currency minor units.
// rateMissing is set when any split was carried unconverted.
func (s *SettlementService) Balances(ctx context.Context, userID, groupID string) (map[string]int64, bool, error) {
	if err := s.requireMember(ctx, userID, groupID); err != nil {
		return nil, false, err
	}
	unpaid, err := s.store.ListUnpaidSplits(ctx, groupID)
	if err != nil {
		return nil, false, err
	}
	balances, rateMissing := settlement.ComputeBalances(unpaid, s.normalizer)
	return balances, rateMissing, nil
}

// ProposeTransfers computes the transfer edges that would zero the group's
// balances. The edges are derived, not persisted.
func (s *SettlementService) ProposeTransfers(ctx context.Context, userID, groupID string) ([]models.SettlementEdge, bool, error) {
	balances, rateMissing, err := s.Balances(ctx, userID, groupID)
	if err != nil {
		return nil, false, err
	}
	edges := settlement.ComputeTransfers(balances, s.normalizer.Base())
	s.bus.Publish(events.SettlementProposed{GroupID: groupID, Edges: edges})
	return edges, rateMissing, nil
}

// Confirm applies a transfer edge to the ledger: the debtor's unpaid splits
// are consumed up to the edge amount and a settlement is recorded. Any part
// of the edge that no whole split could cover stays as unpaid balance and
// comes back as Residual.
//
// Fails with StaleSettlement when the group's debts changed since the edge
// was proposed; the caller should recompute balances and retry.
func (s *SettlementService) Confirm(ctx context.Context, userID, groupID string, edge models.SettlementEdge, note string) (*models.Settlement, error) {
	if err := s.requireMember(ctx, userID, groupID); err != nil {
		return nil, err
	}
	if edge.FromUserID == edge.ToUserID {
		return nil, errors.New(errors.KindValidation, "debtor and creditor must differ")
	}

	lock := s.groupLock(groupID)
	lock.Lock()
	defer lock.Unlock()

	unpaid, err := s.store.ListUnpaidSplits(ctx, groupID)
	if err != nil {
		return nil, err
	}
	var rows []settlement.DebtRow
	for _, u := range unpaid {
		if u.OwedByUserID != edge.FromUserID {
			continue
		}
		inBase, _ := s.normalizer.Normalize(u.Amount, u.Currency, u.Date)
		rows = append(rows, settlement.DebtRow{
			SplitID:       u.SplitID,
			TransactionID: u.TransactionID,
			AmountInBase:  inBase,
			Date:          u.Date,
		})
	}

	plan, err := settlement.PlanSettlement(edge.Amount, rows)
	if err != nil {
		if errors.Is(err, errors.KindStaleSettlement) {
			metrics.SettlementsStale.Inc()
		}
		return nil, err
	}

	st := &models.Settlement{
		GroupID:    groupID,
		FromUserID: edge.FromUserID,
		ToUserID:   edge.ToUserID,
		Amount:     plan.Applied,
		Residual:   plan.Residual,
		CreatedBy:  userID,
		Note:       note,
	}
	if err := s.store.ApplySettlement(ctx, st, plan.SplitIDs); err != nil {
		if errors.Is(err, errors.KindStaleSettlement) {
			metrics.SettlementsStale.Inc()
		}
		return nil, err
	}

	metrics.SettlementsConfirmed.Inc()
	s.bus.Publish(events.SettlementConfirmed{
		SettlementID: st.ID,
		GroupID:      groupID,
		FromUserID:   st.FromUserID,
		ToUserID:     st.ToUserID,
		Amount:       st.Amount,
		Residual:     st.Residual,
	})
	return st, nil
}

// History returns the group's confirmed settlements, newest first.
func (s *SettlementService) History(ctx context.Context, userID, groupID string) ([]*models.Settlement, error) {
	if err := s.requireMember(ctx, userID, groupID); err != nil {
		return nil, err
	}
	return s.store.ListSettlementsByGroup(ctx, groupID)
}

func (s *SettlementService) requireMember(ctx context.Context, userID, groupID string) error {
	members, err := s.store.ListGroupMembers(ctx, groupID)
	if err != nil {
		return err
	}
	for _, m := range members {
		if m.UserID == userID {
			return nil
		}
	}
	return errors.New(errors.KindPermissionDenied, "not a member of group %s", groupID)
}

func (s *SettlementService) groupLock(groupID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.groups[groupID]
	if !ok {
		lock = &sync.Mutex{}
		s.groups[groupID] = lock
	}
	return lock
}
