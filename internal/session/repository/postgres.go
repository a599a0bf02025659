package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/worldzhy/newbie.saas/internal/session/domain"
)

const sessionColumns = `id, user_id, token, ip_address, user_agent, browser, operating_system,
	city, region, country_code, timezone, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(database *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: database}
}

var _ Repository = (*PostgresRepository)(nil)

// GetByID returns the session for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

// GetByToken returns the session holding the refresh token, or nil.
func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE token = $1`, token)
	return scanSession(row)
}

// ListByUser returns the user's sessions, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.Token, &s.IPAddress, &s.UserAgent, &s.Browser,
			&s.OperatingSystem, &s.City, &s.Region, &s.CountryCode, &s.Timezone,
			&s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &s)
	}
	return result, rows.Err()
}

// Create persists the session and assigns its ID.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	return r.db.QueryRowContext(ctx, `
		INSERT INTO sessions (user_id, token, ip_address, user_agent, browser, operating_system,
			city, region, country_code, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		s.UserID, s.Token, s.IPAddress, s.UserAgent, s.Browser, s.OperatingSystem,
		s.City, s.Region, s.CountryCode, s.Timezone, s.CreatedAt, s.UpdatedAt).Scan(&s.ID)
}

// Touch bumps updated_at.
func (r *PostgresRepository) Touch(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET updated_at = $2 WHERE id = $1`, id, time.Now().UTC())
	return err
}

// Delete revokes the session.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// DeleteByToken revokes the session holding the refresh token.
func (r *PostgresRepository) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

// DeleteAllByUser revokes every session of the user.
func (r *PostgresRepository) DeleteAllByUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(&s.ID, &s.UserID, &s.Token, &s.IPAddress, &s.UserAgent, &s.Browser,
		&s.OperatingSystem, &s.City, &s.Region, &s.CountryCode, &s.Timezone,
		&s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
