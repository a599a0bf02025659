package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/worldzhy/newbie.saas/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(database *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: database}
}

var _ Repository = (*PostgresRepository)(nil)

// Create persists the event. An empty ID is filled with a fresh UUID.
func (r *PostgresRepository) Create(ctx context.Context, l *domain.AuditLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, user_id, team_id, event, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		l.ID, l.UserID, nullableID(l.TeamID), l.Event, l.IPAddress, l.UserAgent, l.CreatedAt)
	return err
}

// ListByUser returns the user's most recent events.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*domain.AuditLog, error) {
	return r.list(ctx, `
		SELECT id, user_id, team_id, event, ip_address, user_agent, created_at
		FROM audit_logs WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
}

// ListByTeam returns the team's most recent events.
func (r *PostgresRepository) ListByTeam(ctx context.Context, teamID int64, limit int) ([]*domain.AuditLog, error) {
	return r.list(ctx, `
		SELECT id, user_id, team_id, event, ip_address, user_agent, created_at
		FROM audit_logs WHERE team_id = $1 ORDER BY created_at DESC LIMIT $2`, teamID, limit)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.AuditLog
	for rows.Next() {
		var (
			l      domain.AuditLog
			teamID sql.NullInt64
		)
		if err := rows.Scan(&l.ID, &l.UserID, &teamID, &l.Event, &l.IPAddress, &l.UserAgent, &l.CreatedAt); err != nil {
			return nil, err
		}
		l.TeamID = teamID.Int64
		result = append(result, &l)
	}
	return result, rows.Err()
}

func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
