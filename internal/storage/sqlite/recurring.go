package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/mdjukic/settleup/internal/date"
	"github.com/mdjukic/settleup/internal/models"
	"github.com/mdjukic/settleup/pkg/errors"
)

// CreateRecurringRule persists a new rule.
func (s *SQLiteStore) CreateRecurringRule(ctx context.Context, rule *models.RecurringRule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if rule.CreatedAt == 0 {
		rule.CreatedAt = time.Now().Unix()
	}
	if rule.Status == "" {
		rule.Status = models.RuleActive
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recurring_rules (id, owner_id, template_transaction_id, frequency, day_of_month, next_due, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.OwnerID, rule.TemplateTransactionID, string(rule.Frequency),
		rule.DayOfMonth, rule.NextDue.String(), string(rule.Status), rule.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "insert recurring rule")
	}
	return nil
}

// GetRecurringRule retrieves a rule by ID.
func (s *SQLiteStore) GetRecurringRule(ctx context.Context, id string) (*models.RecurringRule, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, template_transaction_id, frequency, day_of_month, next_due, status, created_at
		 FROM recurring_rules WHERE id = ?`, id)
	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.KindNotFound, "recurring rule not found: %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "get recurring rule")
	}
	return rule, nil
}

// UpdateRecurringRule rewrites the mutable fields of a rule.
func (s *SQLiteStore) UpdateRecurringRule(ctx context.Context, rule *models.RecurringRule) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE recurring_rules SET next_due = ?, status = ?, day_of_month = ? WHERE id = ?",
		rule.NextDue.String(), string(rule.Status), rule.DayOfMonth, rule.ID,
	)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "update recurring rule")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.KindNotFound, "recurring rule not found: %s", rule.ID)
	}
	return nil
}

// MaterializeRecurring commits a materialized transaction, its splits, and
// the advanced rule in one database transaction. A crash can never leave
// the transaction committed with the rule still due, or the other way
// around.
func (s *SQLiteStore) MaterializeRecurring(ctx context.Context, t *models.Transaction, splits []*models.Split, rule *models.RecurringRule) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt == 0 {
		t.CreatedAt = time.Now().Unix()
	}

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "begin materialization")
	}
	defer dbtx.Rollback()

	res, err := dbtx.ExecContext(ctx,
		"UPDATE recurring_rules SET next_due = ?, status = ?, day_of_month = ? WHERE id = ?",
		rule.NextDue.String(), string(rule.Status), rule.DayOfMonth, rule.ID,
	)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "advance recurring rule")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.KindNotFound, "recurring rule not found: %s", rule.ID)
	}

	if err := insertTransaction(ctx, dbtx, t); err != nil {
		return err
	}
	if err := insertSplits(ctx, dbtx, t.ID, splits); err != nil {
		return err
	}

	if err := dbtx.Commit(); err != nil {
		return errors.Wrap(err, errors.KindInternal, "commit materialization")
	}
	return nil
}

// ListActiveRulesByOwner returns a user's active rules ordered by due date.
func (s *SQLiteStore) ListActiveRulesByOwner(ctx context.Context, ownerID string) ([]*models.RecurringRule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, template_transaction_id, frequency, day_of_month, next_due, status, created_at
		 FROM recurring_rules WHERE owner_id = ? AND status = ? ORDER BY next_due, id`,
		ownerID, string(models.RuleActive))
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "list recurring rules")
	}
	defer rows.Close()

	var rules []*models.RecurringRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.KindInternal, "scan recurring rule")
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "iterate recurring rules")
	}
	return rules, nil
}

func scanRule(row rowScanner) (*models.RecurringRule, error) {
	rule := &models.RecurringRule{}
	var freq, due, status string
	err := row.Scan(&rule.ID, &rule.OwnerID, &rule.TemplateTransactionID, &freq,
		&rule.DayOfMonth, &due, &status, &rule.CreatedAt)
	if err != nil {
		return nil, err
	}
	rule.Frequency = models.Frequency(freq)
	rule.Status = models.RuleStatus(status)
	if rule.NextDue, err = date.Parse(due); err != nil {
		return nil, err
	}
	return rule, nil
}
