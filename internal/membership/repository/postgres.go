package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/worldzhy/newbie.saas/internal/db"
	"github.com/worldzhy/newbie.saas/internal/membership/domain"
)

// ErrDuplicateMembership is returned when the user already belongs to the team.
var ErrDuplicateMembership = errors.New("user already belongs to team")

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a membership repository that uses the given db for persistence.
func NewPostgresRepository(database *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: database}
}

var _ Repository = (*PostgresRepository)(nil)

// GetByID returns the membership for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, team_id, role, created_at FROM memberships WHERE id = $1`, id)
	return scanMembership(row)
}

// GetByUserAndTeam returns the user's membership in the team, or nil if the
// user does not belong to it.
func (r *PostgresRepository) GetByUserAndTeam(ctx context.Context, userID, teamID int64) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, team_id, role, created_at FROM memberships WHERE user_id = $1 AND team_id = $2`,
		userID, teamID)
	return scanMembership(row)
}

// ListByUser returns all memberships of the user.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Membership, error) {
	return r.list(ctx,
		`SELECT id, user_id, team_id, role, created_at FROM memberships WHERE user_id = $1 ORDER BY id`, userID)
}

// ListByTeam returns all memberships of the team.
func (r *PostgresRepository) ListByTeam(ctx context.Context, teamID int64) ([]*domain.Membership, error) {
	return r.list(ctx,
		`SELECT id, user_id, team_id, role, created_at FROM memberships WHERE team_id = $1 ORDER BY id`, teamID)
}

// Create persists the membership and assigns its ID.
func (r *PostgresRepository) Create(ctx context.Context, m *domain.Membership) error {
	m.CreatedAt = time.Now().UTC()
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO memberships (user_id, team_id, role, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		m.UserID, m.TeamID, m.Role, m.CreatedAt).Scan(&m.ID)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateMembership
	}
	return err
}

// UpdateRole changes the membership role.
func (r *PostgresRepository) UpdateRole(ctx context.Context, id int64, role domain.Role) error {
	_, err := r.db.ExecContext(ctx, `UPDATE memberships SET role = $2 WHERE id = $1`, id, role)
	return err
}

// Delete removes the membership.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM memberships WHERE id = $1`, id)
	return err
}

// CountByTeam returns the number of memberships in the team.
func (r *PostgresRepository) CountByTeam(ctx context.Context, teamID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM memberships WHERE team_id = $1`, teamID).Scan(&n)
	return n, err
}

// CountOwnersByTeam returns the number of OWNER memberships in the team.
func (r *PostgresRepository) CountOwnersByTeam(ctx context.Context, teamID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM memberships WHERE team_id = $1 AND role = 'OWNER'`, teamID).Scan(&n)
	return n, err
}

func (r *PostgresRepository) list(ctx context.Context, query string, arg any) ([]*domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Membership
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.ID, &m.UserID, &m.TeamID, &m.Role, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &m)
	}
	return result, rows.Err()
}

func scanMembership(row *sql.Row) (*domain.Membership, error) {
	var m domain.Membership
	err := row.Scan(&m.ID, &m.UserID, &m.TeamID, &m.Role, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
