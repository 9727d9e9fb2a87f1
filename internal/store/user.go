package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/examhall/examhall/internal/model"
)

// ErrUsernameTaken is returned by CreateUser when the username exists.
var ErrUsernameTaken = errors.New("username already taken")

const userColumns = `id, username, name, password_hash, role, cohort_id, active, created_at`

// CreateUser inserts a new user and returns its id.
func (s *Store) CreateUser(ctx context.Context, u model.User) (string, error) {
	id := uuid.NewString()
	_, err := s.exec(ctx, s.db,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, u.Username, u.Name, u.PasswordHash, u.Role, nullString(u.CohortID), u.Active, time.Now().UTC(),
	)
	if isUniqueViolation(err) {
		return "", ErrUsernameTaken
	}
	if err != nil {
		slog.Error("failed to create user", "username", u.Username, "error", err)
		return "", err
	}
	slog.Info("created user", "id", id, "username", u.Username, "role", u.Role)
	return id, nil
}

// GetUserByUsername returns a user by username, or nil if none exists.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(s.queryRow(ctx, s.db, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// GetUserByID returns a user by ID, or nil if none exists.
func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(s.queryRow(ctx, s.db, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// ListUsers returns all users.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.query(ctx, s.db, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// SetUserActive enables or disables a user's login.
func (s *Store) SetUserActive(ctx context.Context, id string, active bool) error {
	res, err := s.exec(ctx, s.db, `UPDATE users SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("update user %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrNotFound
	}
	slog.Info("updated user", "id", id, "active", active)
	return nil
}

// SetUserPassword replaces a user's password hash.
func (s *Store) SetUserPassword(ctx context.Context, id, hash string) error {
	res, err := s.exec(ctx, s.db, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return fmt.Errorf("update password %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrNotFound
	}
	slog.Info("updated password", "id", id)
	return nil
}

// DeleteUser removes a user with their submissions.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := s.exec(ctx, tx,
		`DELETE FROM graded_answers WHERE submission_id IN (SELECT id FROM submissions WHERE user_id = ?)`, id,
	); err != nil {
		return fmt.Errorf("delete user %s answers: %w", id, err)
	}
	if _, err := s.exec(ctx, tx, `DELETE FROM submissions WHERE user_id = ?`, id); err != nil {
		return fmt.Errorf("delete user %s submissions: %w", id, err)
	}
	res, err := s.exec(ctx, tx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("deleted user", "id", id)
	return nil
}

// UserCount returns the total number of users.
func (s *Store) UserCount(ctx context.Context) (int, error) {
	var count int
	err := s.queryRow(ctx, s.db, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func scanUser(row scanner) (*model.User, error) {
	var u model.User
	var cohort sql.NullString
	if err := row.Scan(&u.ID, &u.Username, &u.Name, &u.PasswordHash, &u.Role, &cohort, &u.Active, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.CohortID = stringPtr(cohort)
	return &u, nil
}
