package sqlite

import (
	"context"
	"database/sql"

	"github.com/mdjukic/settleup/internal/models"
	"github.com/mdjukic/settleup/pkg/errors"
)

// CreateUser persists a new user account.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)",
		user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "insert user")
	}
	return nil
}

// GetUserByEmail retrieves a user by login email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?", email)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "SELECT id, name, email, password_hash, created_at FROM users WHERE id = ?", id)
}

func (s *SQLiteStore) getUser(ctx context.Context, query, arg string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.KindNotFound, "user not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "get user")
	}
	return user, nil
}

// ListGroupMembers returns the roster of a group.
func (s *SQLiteStore) ListGroupMembers(ctx context.Context, groupID string) ([]models.GroupMembership, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT group_id, user_id, role FROM group_members WHERE group_id = ? ORDER BY user_id", groupID)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "list group members")
	}
	defer rows.Close()

	var members []models.GroupMembership
	for rows.Next() {
		var m models.GroupMembership
		var role string
		if err := rows.Scan(&m.GroupID, &m.UserID, &role); err != nil {
			return nil, errors.Wrap(err, errors.KindInternal, "scan group member")
		}
		m.Role = models.Role(role)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "iterate group members")
	}
	return members, nil
}

// ReplaceGroupMembers swaps a group's roster wholesale. The roster is
// owned by the external group collaborator; this is its write path.
func (s *SQLiteStore) ReplaceGroupMembers(ctx context.Context, groupID string, members []models.GroupMembership) error {
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "begin roster update")
	}
	defer dbtx.Rollback()

	if _, err := dbtx.ExecContext(ctx, "DELETE FROM group_members WHERE group_id = ?", groupID); err != nil {
		return errors.Wrap(err, errors.KindInternal, "clear roster")
	}
	for _, m := range members {
		role := m.Role
		if role == "" {
			role = models.RoleMember
		}
		_, err := dbtx.ExecContext(ctx,
			"INSERT INTO group_members (group_id, user_id, role) VALUES (?, ?, ?)",
			groupID, m.UserID, string(role))
		if err != nil {
			return errors.Wrap(err, errors.KindInternal, "insert group member")
		}
	}

	if err := dbtx.Commit(); err != nil {
		return errors.Wrap(err, errors.KindInternal, "commit roster update")
	}
	return nil
}
