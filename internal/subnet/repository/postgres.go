package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/worldzhy/newbie.saas/internal/subnet/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an approved subnet repository that uses the given db for persistence.
func NewPostgresRepository(database *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: database}
}

var _ Repository = (*PostgresRepository)(nil)

// ListByUser returns the user's approved subnets.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.ApprovedSubnet, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, subnet_hash, created_at FROM approved_subnets WHERE user_id = $1 ORDER BY id`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.ApprovedSubnet
	for rows.Next() {
		var s domain.ApprovedSubnet
		if err := rows.Scan(&s.ID, &s.UserID, &s.SubnetHash, &s.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &s)
	}
	return result, rows.Err()
}

// Create persists the subnet and assigns its ID.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.ApprovedSubnet) error {
	s.CreatedAt = time.Now().UTC()
	return r.db.QueryRowContext(ctx,
		`INSERT INTO approved_subnets (user_id, subnet_hash, created_at) VALUES ($1, $2, $3) RETURNING id`,
		s.UserID, s.SubnetHash, s.CreatedAt).Scan(&s.ID)
}

// Delete removes the subnet when it belongs to userID.
func (r *PostgresRepository) Delete(ctx context.Context, id, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM approved_subnets WHERE id = $1 AND user_id = $2`, id, userID)
	return err
}
