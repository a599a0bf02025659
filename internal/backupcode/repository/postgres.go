package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/worldzhy/newbie.saas/internal/backupcode/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a backup code repository that uses the given db for persistence.
func NewPostgresRepository(database *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: database}
}

var _ Repository = (*PostgresRepository)(nil)

// ListByUser returns all of the user's codes, used and unused.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.BackupCode, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, code_hash, is_used, created_at FROM backup_codes WHERE user_id = $1 ORDER BY id`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.BackupCode
	for rows.Next() {
		var c domain.BackupCode
		if err := rows.Scan(&c.ID, &c.UserID, &c.CodeHash, &c.IsUsed, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &c)
	}
	return result, rows.Err()
}

// ReplaceForUser deletes the user's codes and inserts the new hashes in one
// transaction.
func (r *PostgresRepository) ReplaceForUser(ctx context.Context, userID int64, codeHashes []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM backup_codes WHERE user_id = $1`, userID); err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, hash := range codeHashes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO backup_codes (user_id, code_hash, is_used, created_at) VALUES ($1, $2, false, $3)`,
			userID, hash, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ConsumeIfUnused marks the code used with a conditional update so that two
// concurrent logins can not both spend it.
func (r *PostgresRepository) ConsumeIfUnused(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE backup_codes SET is_used = true WHERE id = $1 AND is_used = false`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteAllByUser removes every code of the user.
func (r *PostgresRepository) DeleteAllByUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM backup_codes WHERE user_id = $1`, userID)
	return err
}
