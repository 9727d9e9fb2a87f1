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

var (
	// ErrCohortExists is returned by CreateCohort when the name is taken.
	ErrCohortExists = errors.New("cohort already exists")
	// ErrCohortInUse is returned by DeleteCohort while users still belong
	// to the cohort.
	ErrCohortInUse = errors.New("cohort has members")
)

// CreateCohort inserts a new enabled cohort.
func (s *Store) CreateCohort(ctx context.Context, name string) (*model.Cohort, error) {
	c := model.Cohort{ID: uuid.NewString(), Name: name, CreatedAt: time.Now().UTC()}
	_, err := s.exec(ctx, s.db,
		`INSERT INTO cohorts (id, name, disabled, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, c.Disabled, c.CreatedAt,
	)
	if isUniqueViolation(err) {
		return nil, ErrCohortExists
	}
	if err != nil {
		return nil, fmt.Errorf("insert cohort: %w", err)
	}
	slog.Info("created cohort", "id", c.ID, "name", c.Name)
	return &c, nil
}

// GetCohort returns a cohort by id.
func (s *Store) GetCohort(ctx context.Context, id string) (*model.Cohort, error) {
	return s.getCohort(ctx, `id = ?`, id)
}

// GetCohortByName returns a cohort by its unique name.
func (s *Store) GetCohortByName(ctx context.Context, name string) (*model.Cohort, error) {
	return s.getCohort(ctx, `name = ?`, name)
}

func (s *Store) getCohort(ctx context.Context, where string, arg any) (*model.Cohort, error) {
	var c model.Cohort
	err := s.queryRow(ctx, s.db,
		`SELECT id, name, disabled, created_at FROM cohorts WHERE `+where, arg,
	).Scan(&c.ID, &c.Name, &c.Disabled, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCohorts returns cohorts ordered by name. Disabled cohorts are
// included only when includeDisabled is set.
func (s *Store) ListCohorts(ctx context.Context, includeDisabled bool) ([]model.Cohort, error) {
	query := `SELECT id, name, disabled, created_at FROM cohorts`
	var args []any
	if !includeDisabled {
		query += ` WHERE disabled = ?`
		args = append(args, false)
	}
	query += ` ORDER BY name`
	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cohorts := []model.Cohort{}
	for rows.Next() {
		var c model.Cohort
		if err := rows.Scan(&c.ID, &c.Name, &c.Disabled, &c.CreatedAt); err != nil {
			return nil, err
		}
		cohorts = append(cohorts, c)
	}
	return cohorts, rows.Err()
}

// SetCohortDisabled records the disabled flag. Nothing in grading or
// analytics reads it; registration hides disabled cohorts.
func (s *Store) SetCohortDisabled(ctx context.Context, id string, disabled bool) error {
	res, err := s.exec(ctx, s.db, `UPDATE cohorts SET disabled = ? WHERE id = ?`, disabled, id)
	if err != nil {
		return fmt.Errorf("update cohort %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrNotFound
	}
	slog.Info("updated cohort", "id", id, "disabled", disabled)
	return nil
}

// DeleteCohort removes an empty cohort.
func (s *Store) DeleteCohort(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var members int
	if err := s.queryRow(ctx, tx, `SELECT COUNT(*) FROM users WHERE cohort_id = ?`, id).Scan(&members); err != nil {
		return fmt.Errorf("count cohort members: %w", err)
	}
	if members > 0 {
		return ErrCohortInUse
	}
	res, err := s.exec(ctx, tx, `DELETE FROM cohorts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete cohort %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("deleted cohort", "id", id)
	return nil
}
