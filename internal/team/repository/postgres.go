package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/worldzhy/newbie.saas/internal/team/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a team repository that uses the given db for persistence.
func NewPostgresRepository(database *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: database}
}

var _ Repository = (*PostgresRepository)(nil)

// GetByID returns the team for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*domain.Team, error) {
	var t domain.Team
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM teams WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create persists the team. The team must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.Team) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO teams (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		t.ID, t.Name, t.CreatedAt, t.UpdatedAt)
	return err
}

// Update overwrites the stored team record.
func (r *PostgresRepository) Update(ctx context.Context, t *domain.Team) error {
	t.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`UPDATE teams SET name = $2, updated_at = $3 WHERE id = $1`, t.ID, t.Name, t.UpdatedAt)
	return err
}

// Delete removes the team. Memberships and team API keys cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	return err
}
