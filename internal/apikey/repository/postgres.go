package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/worldzhy/newbie.saas/internal/apikey/domain"
)

const apiKeyColumns = `id, user_id, team_id, name, description, key, scopes, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an API key repository that uses the given db for persistence.
func NewPostgresRepository(database *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: database}
}

var _ Repository = (*PostgresRepository)(nil)

// GetByID returns the key for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*domain.APIKey, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1`, id)
	return scanAPIKey(row)
}

// GetBySecret returns the key whose secret matches, or nil.
func (r *PostgresRepository) GetBySecret(ctx context.Context, secret string) (*domain.APIKey, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE key = $1`, secret)
	return scanAPIKey(row)
}

// ListByUser returns every key the user owns.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.APIKey, error) {
	return r.list(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE user_id = $1 ORDER BY id`, userID)
}

// ListByTeam returns every key issued on behalf of the team.
func (r *PostgresRepository) ListByTeam(ctx context.Context, teamID int64) ([]*domain.APIKey, error) {
	return r.list(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE team_id = $1 ORDER BY id`, teamID)
}

// Create persists the key and assigns its ID.
func (r *PostgresRepository) Create(ctx context.Context, k *domain.APIKey) error {
	scopes, err := json.Marshal(orEmpty(k.Scopes))
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	k.CreatedAt = now
	k.UpdatedAt = now
	return r.db.QueryRowContext(ctx, `
		INSERT INTO api_keys (user_id, team_id, name, description, key, scopes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		k.UserID, nullableID(k.TeamID), k.Name, k.Description, k.Key, scopes,
		k.CreatedAt, k.UpdatedAt).Scan(&k.ID)
}

// Update overwrites the stored key record, secret included.
func (r *PostgresRepository) Update(ctx context.Context, k *domain.APIKey) error {
	scopes, err := json.Marshal(orEmpty(k.Scopes))
	if err != nil {
		return err
	}
	k.UpdatedAt = time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		UPDATE api_keys
		SET name = $2, description = $3, key = $4, scopes = $5, updated_at = $6
		WHERE id = $1`,
		k.ID, k.Name, k.Description, k.Key, scopes, k.UpdatedAt)
	return err
}

// Delete removes the key.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	return err
}

func (r *PostgresRepository) list(ctx context.Context, query string, arg any) ([]*domain.APIKey, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.APIKey
	for rows.Next() {
		k, err := scanAPIKeyRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, k)
	}
	return result, rows.Err()
}

func scanAPIKey(row *sql.Row) (*domain.APIKey, error) {
	var (
		k         domain.APIKey
		teamID    sql.NullInt64
		rawScopes []byte
	)
	err := row.Scan(&k.ID, &k.UserID, &teamID, &k.Name, &k.Description, &k.Key, &rawScopes,
		&k.CreatedAt, &k.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	k.TeamID = teamID.Int64
	if err := json.Unmarshal(rawScopes, &k.Scopes); err != nil {
		return nil, err
	}
	return &k, nil
}

func scanAPIKeyRow(rows *sql.Rows) (*domain.APIKey, error) {
	var (
		k         domain.APIKey
		teamID    sql.NullInt64
		rawScopes []byte
	)
	if err := rows.Scan(&k.ID, &k.UserID, &teamID, &k.Name, &k.Description, &k.Key, &rawScopes,
		&k.CreatedAt, &k.UpdatedAt); err != nil {
		return nil, err
	}
	k.TeamID = teamID.Int64
	if err := json.Unmarshal(rawScopes, &k.Scopes); err != nil {
		return nil, err
	}
	return &k, nil
}

func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func orEmpty(scopes []string) []string {
	if scopes == nil {
		return []string{}
	}
	return scopes
}
