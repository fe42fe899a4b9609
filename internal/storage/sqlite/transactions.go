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

// CreateTransaction persists a transaction and its splits in one database
// transaction. Partial allocation is never visible.
func (s *SQLiteStore) CreateTransaction(ctx context.Context, t *models.Transaction, splits []*models.Split) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt == 0 {
		t.CreatedAt = time.Now().Unix()
	}

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "begin transaction")
	}
	defer dbtx.Rollback()

	if err := insertTransaction(ctx, dbtx, t); err != nil {
		return err
	}
	if err := insertSplits(ctx, dbtx, t.ID, splits); err != nil {
		return err
	}

	if err := dbtx.Commit(); err != nil {
		return errors.Wrap(err, errors.KindInternal, "commit transaction")
	}
	return nil
}

// GetTransaction retrieves a transaction by ID.
func (s *SQLiteStore) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, amount, currency, amount_in_base, rate_missing,
		 date, category_id, group_id, recurring_rule_id, created_at
		 FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.KindNotFound, "transaction not found: %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "get transaction")
	}
	return t, nil
}

// UpdateTransaction rewrites a transaction and replaces its splits
// atomically. The old splits are dropped; allocation always runs fresh.
func (s *SQLiteStore) UpdateTransaction(ctx context.Context, t *models.Transaction, splits []*models.Split) error {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "begin transaction")
	}
	defer dbtx.Rollback()

	res, err := dbtx.ExecContext(ctx,
		`UPDATE transactions SET amount = ?, currency = ?, amount_in_base = ?, rate_missing = ?,
		 date = ?, category_id = ? WHERE id = ?`,
		t.Amount, string(t.Currency), t.AmountInBase, boolToInt(t.RateMissing),
		t.Date.String(), t.CategoryID, t.ID,
	)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "update transaction")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.KindNotFound, "transaction not found: %s", t.ID)
	}

	if _, err := dbtx.ExecContext(ctx, "DELETE FROM splits WHERE transaction_id = ?", t.ID); err != nil {
		return errors.Wrap(err, errors.KindInternal, "delete old splits")
	}
	if err := insertSplits(ctx, dbtx, t.ID, splits); err != nil {
		return err
	}

	if err := dbtx.Commit(); err != nil {
		return errors.Wrap(err, errors.KindInternal, "commit transaction")
	}
	return nil
}

// DeleteTransaction removes a transaction; the foreign key cascades its
// splits.
func (s *SQLiteStore) DeleteTransaction(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "delete transaction")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.KindNotFound, "transaction not found: %s", id)
	}
	return nil
}

// ListSplitsByTransaction returns the stored splits of a transaction.
func (s *SQLiteStore) ListSplitsByTransaction(ctx context.Context, transactionID string) ([]*models.Split, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, transaction_id, owed_by_user_id, amount, is_paid
		 FROM splits WHERE transaction_id = ? ORDER BY owed_by_user_id`, transactionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "list splits")
	}
	defer rows.Close()

	var splits []*models.Split
	for rows.Next() {
		sp := &models.Split{}
		var paid int
		if err := rows.Scan(&sp.ID, &sp.TransactionID, &sp.OwedByUserID, &sp.Amount, &paid); err != nil {
			return nil, errors.Wrap(err, errors.KindInternal, "scan split")
		}
		sp.IsPaid = paid != 0
		splits = append(splits, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "iterate splits")
	}
	return splits, nil
}

func insertTransaction(ctx context.Context, dbtx *sql.Tx, t *models.Transaction) error {
	_, err := dbtx.ExecContext(ctx,
		`INSERT INTO transactions (id, owner_id, amount, currency, amount_in_base, rate_missing,
		 date, category_id, group_id, recurring_rule_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.Amount, string(t.Currency), t.AmountInBase, boolToInt(t.RateMissing),
		t.Date.String(), t.CategoryID, nullable(t.GroupID), nullable(t.RecurringRuleID), t.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "insert transaction")
	}
	return nil
}

func insertSplits(ctx context.Context, dbtx *sql.Tx, transactionID string, splits []*models.Split) error {
	for _, sp := range splits {
		if sp.ID == "" {
			sp.ID = uuid.New().String()
		}
		sp.TransactionID = transactionID
		_, err := dbtx.ExecContext(ctx,
			"INSERT INTO splits (id, transaction_id, owed_by_user_id, amount, is_paid) VALUES (?, ?, ?, ?, ?)",
			sp.ID, sp.TransactionID, sp.OwedByUserID, sp.Amount, boolToInt(sp.IsPaid),
		)
		if err != nil {
			return errors.Wrap(err, errors.KindInternal, "insert split")
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	t := &models.Transaction{}
	var (
		day         string
		cur         string
		rateMissing int
		groupID     sql.NullString
		ruleID      sql.NullString
	)
	err := row.Scan(&t.ID, &t.OwnerID, &t.Amount, &cur, &t.AmountInBase, &rateMissing,
		&day, &t.CategoryID, &groupID, &ruleID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Currency = models.Currency(cur)
	t.RateMissing = rateMissing != 0
	t.GroupID = groupID.String
	t.RecurringRuleID = ruleID.String
	if t.Date, err = date.Parse(day); err != nil {
		return nil, err
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
