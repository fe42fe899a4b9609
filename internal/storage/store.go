// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/mdjukic/settleup/internal/models"
	"github.com/mdjukic/settleup/internal/settlement"
)

// Store defines the persistence surface of the ledger core. The
// abstraction keeps the service layer independent of the backend; the
// SQLite implementation lives in storage/sqlite.
//
// Atomicity contract: CreateTransaction and UpdateTransaction commit the
// transaction and its splits as one unit (partial allocation is never
// visible), DeleteTransaction cascades splits, ApplySettlement marks splits
// and records the settlement in a single database transaction, and
// MaterializeRecurring commits the materialized transaction together with
// the advanced rule.
type Store interface {
	// CreateTransaction persists a transaction with its splits atomically.
	CreateTransaction(ctx context.Context, tx *models.Transaction, splits []*models.Split) error

	// GetTransaction retrieves a transaction by ID.
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)

	// UpdateTransaction rewrites a transaction and replaces its splits
	// atomically.
	UpdateTransaction(ctx context.Context, tx *models.Transaction, splits []*models.Split) error

	// DeleteTransaction removes a transaction; its splits cascade.
	DeleteTransaction(ctx context.Context, id string) error

	// ListSplitsByTransaction returns the stored splits of a transaction.
	ListSplitsByTransaction(ctx context.Context, transactionID string) ([]*models.Split, error)

	// ListUnpaidSplits returns every unpaid split of a group joined with
	// the parent-transaction fields the netting engine needs.
	ListUnpaidSplits(ctx context.Context, groupID string) ([]settlement.UnpaidSplit, error)

	// ApplySettlement marks the given splits paid and records the
	// settlement in one database transaction. Fails with StaleSettlement
	// if any split was already paid by a concurrent confirmation.
	ApplySettlement(ctx context.Context, s *models.Settlement, splitIDs []string) error

	// ListSettlementsByGroup returns confirmed settlements, newest first.
	ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error)

	// CreateRecurringRule persists a new rule.
	CreateRecurringRule(ctx context.Context, rule *models.RecurringRule) error

	// GetRecurringRule retrieves a rule by ID.
	GetRecurringRule(ctx context.Context, id string) (*models.RecurringRule, error)

	// UpdateRecurringRule rewrites a rule's mutable fields.
	UpdateRecurringRule(ctx context.Context, rule *models.RecurringRule) error

	// MaterializeRecurring commits a materialized transaction with its
	// splits and persists the advanced rule in one database transaction.
	MaterializeRecurring(ctx context.Context, tx *models.Transaction, splits []*models.Split, rule *models.RecurringRule) error

	// ListActiveRulesByOwner returns a user's active rules.
	ListActiveRulesByOwner(ctx context.Context, ownerID string) ([]*models.RecurringRule, error)

	// ListGroupMembers returns the roster of a group. The roster is
	// read-only input to the core; ReplaceGroupMembers exists for the
	// external group collaborator to push updates.
	ListGroupMembers(ctx context.Context, groupID string) ([]models.GroupMembership, error)

	// ReplaceGroupMembers swaps a group's roster wholesale.
	ReplaceGroupMembers(ctx context.Context, groupID string, members []models.GroupMembership) error

	// CreateUser persists a new user account.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by login email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Close releases any resources held by the store.
	Close() error
}
