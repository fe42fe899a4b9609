package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/mdjukic/settleup/internal/date"
	"github.com/mdjukic/settleup/internal/models"
	"github.com/mdjukic/settleup/internal/settlement"
	"github.com/mdjukic/settleup/pkg/errors"
)

// ListUnpaidSplits joins unpaid splits with their parent transactions for
// the netting engine.
func (s *SQLiteStore) ListUnpaidSplits(ctx context.Context, groupID string) ([]settlement.UnpaidSplit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sp.id, sp.transaction_id, t.owner_id, sp.owed_by_user_id, sp.amount, t.currency, t.date
		 FROM splits sp
		 JOIN transactions t ON t.id = sp.transaction_id
		 WHERE t.group_id = ? AND sp.is_paid = 0
		 ORDER BY t.date, t.id, sp.id`, groupID)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "list unpaid splits")
	}
	defer rows.Close()

	var unpaid []settlement.UnpaidSplit
	for rows.Next() {
		var (
			u   settlement.UnpaidSplit
			cur string
			day string
		)
		if err := rows.Scan(&u.SplitID, &u.TransactionID, &u.PayerID, &u.OwedByUserID, &u.Amount, &cur, &day); err != nil {
			return nil, errors.Wrap(err, errors.KindInternal, "scan unpaid split")
		}
		u.Currency = models.Currency(cur)
		if u.Date, err = date.Parse(day); err != nil {
			return nil, errors.Wrap(err, errors.KindInternal, "parse split date")
		}
		unpaid = append(unpaid, u)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "iterate unpaid splits")
	}
	return unpaid, nil
}

// ApplySettlement marks the planned splits paid and records the settlement
// in one database transaction. The is_paid guard in the UPDATE is the
// final word on the optimistic check: a split paid by a concurrent
// confirmation makes the whole operation fail with StaleSettlement and
// nothing commits.
func (s *SQLiteStore) ApplySettlement(ctx context.Context, st *models.Settlement, splitIDs []string) error {
	if st.ID == "" {
		st.ID = uuid.New().String()
	}
	if st.CreatedAt == 0 {
		st.CreatedAt = time.Now().Unix()
	}

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "begin settlement")
	}
	defer dbtx.Rollback()

	for _, id := range splitIDs {
		res, err := dbtx.ExecContext(ctx,
			"UPDATE splits SET is_paid = 1 WHERE id = ? AND is_paid = 0", id)
		if err != nil {
			return errors.Wrap(err, errors.KindInternal, "mark split paid")
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return errors.New(errors.KindStaleSettlement,
				"split %s was settled concurrently", id)
		}
	}

	_, err = dbtx.ExecContext(ctx,
		`INSERT INTO settlements (id, group_id, from_user_id, to_user_id, amount, residual, created_by, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.GroupID, st.FromUserID, st.ToUserID, st.Amount, st.Residual,
		st.CreatedBy, nullable(st.Note), st.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "insert settlement")
	}

	if err := dbtx.Commit(); err != nil {
		return errors.Wrap(err, errors.KindInternal, "commit settlement")
	}
	return nil
}

// ListSettlementsByGroup returns confirmed settlements, newest first.
func (s *SQLiteStore) ListSettlementsByGroup(ctx context.Context, groupID string) ([]*models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, from_user_id, to_user_id, amount, residual, created_by, note, created_at
		 FROM settlements WHERE group_id = ? ORDER BY created_at DESC, id`, groupID)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "list settlements")
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		st := &models.Settlement{}
		var note sql.NullString
		if err := rows.Scan(&st.ID, &st.GroupID, &st.FromUserID, &st.ToUserID,
			&st.Amount, &st.Residual, &st.CreatedBy, &note, &st.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.KindInternal, "scan settlement")
		}
		st.Note = note.String
		settlements = append(settlements, st)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "iterate settlements")
	}
	return settlements, nil
}
