// Package events defines the domain events the engine emits and a small
// in-process bus. Delivery to users (push, email) is an external notifier's
// job; the notifier subscribes here and this core never blocks on it.
package events

import (
	"log/slog"
	"sync"

	"github.com/mdjukic/settleup/internal/date"
	"github.com/mdjukic/settleup/internal/models"
)

// Event is a domain fact that already happened. Implementations are plain
// value types; handlers must not mutate them.
type Event interface {
	Name() string
}

// TransactionCreated is emitted after a transaction (and its splits) commit.
type TransactionCreated struct {
	TransactionID string
	OwnerID       string
	GroupID       string
	Amount        int64
	Currency      models.Currency
	RateMissing   bool
}

func (TransactionCreated) Name() string { return "transaction.created" }

// SettlementProposed is emitted when transfers are computed for a group.
type SettlementProposed struct {
	GroupID string
	Edges   []models.SettlementEdge
}

func (SettlementProposed) Name() string { return "settlement.proposed" }

// SettlementConfirmed is emitted after a transfer is applied to the ledger.
type SettlementConfirmed struct {
	SettlementID string
	GroupID      string
	FromUserID   string
	ToUserID     string
	Amount       int64
	Residual     int64
}

func (SettlementConfirmed) Name() string { return "settlement.confirmed" }

// RecurringDue is emitted when a scheduling query surfaces a due rule.
type RecurringDue struct {
	RuleID  string
	OwnerID string
	DueDate date.Date
}

func (RecurringDue) Name() string { return "recurring.due" }

// Handler consumes events. Handlers run synchronously on the emitting
// goroutine and must be fast; anything slow belongs behind a channel on the
// subscriber's side.
type Handler func(Event)

// Bus fans events out to subscribers.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus { return &Bus{} }

// Subscribe registers a handler for all events.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers the event to every subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()
	for _, h := range handlers {
		h(e)
	}
}

// LogHandler returns a handler that records every event at debug level.
// Wired in main so event flow is observable without a real notifier.
func LogHandler() Handler {
	return func(e Event) {
		slog.Debug("domain event", "event", e.Name(), "payload", e)
	}
}
