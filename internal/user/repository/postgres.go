package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/worldzhy/newbie.saas/internal/db"
	"github.com/worldzhy/newbie.saas/internal/user/domain"
)

// ErrDuplicateEmail is returned when the normalized email is already in use.
var ErrDuplicateEmail = errors.New("email already in use")

const userColumns = `id, name, email, email_safe, email_verified, password_hash, role,
	mfa_method, mfa_secret, mfa_phone, check_location_on_login, active, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(database *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: database}
}

var _ Repository = (*PostgresRepository)(nil)

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail returns the user whose normalized email matches email, or nil if
// not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email_safe = $1`, domain.SafeEmail(email))
	return scanUser(row)
}

// Create persists the user. The user must have ID set; it is not assigned by
// this method.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, email_safe, email_verified, password_hash, role,
			mfa_method, mfa_secret, mfa_phone, check_location_on_login, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		u.ID, u.Name, u.Email, u.EmailSafe, u.EmailVerified, u.PasswordHash, u.Role,
		u.MfaMethod, u.MfaSecret, u.MfaPhone, u.CheckLocationOnLogin, u.Active, u.CreatedAt, u.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

// Update overwrites the stored user record.
func (r *PostgresRepository) Update(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET name = $2, email = $3, email_safe = $4, email_verified = $5, password_hash = $6,
			role = $7, mfa_method = $8, mfa_secret = $9, mfa_phone = $10,
			check_location_on_login = $11, active = $12, updated_at = $13
		WHERE id = $1`,
		u.ID, u.Name, u.Email, u.EmailSafe, u.EmailVerified, u.PasswordHash,
		u.Role, u.MfaMethod, u.MfaSecret, u.MfaPhone,
		u.CheckLocationOnLogin, u.Active, u.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	return err
}

// Deactivate marks the user inactive.
func (r *PostgresRepository) Deactivate(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET active = false, updated_at = $2 WHERE id = $1`, id, time.Now().UTC())
	return err
}

// MergeInto moves memberships, sessions, API keys, backup codes, approved
// subnets, and audit logs from mergeID to baseID and deletes the merged user.
// Memberships in teams the base user already belongs to are dropped instead of
// moved. Everything runs in one transaction: a failure leaves both accounts
// untouched.
func (r *PostgresRepository) MergeInto(ctx context.Context, baseID, mergeID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Each statement binds exactly the parameters it references; an unused
	// placeholder fails statement preparation under the extended protocol.
	statements := []struct {
		query string
		args  []any
	}{
		{`UPDATE memberships SET user_id = $1 WHERE user_id = $2
			AND team_id NOT IN (SELECT team_id FROM memberships WHERE user_id = $1)`, []any{baseID, mergeID}},
		{`DELETE FROM memberships WHERE user_id = $1`, []any{mergeID}},
		{`UPDATE sessions SET user_id = $1 WHERE user_id = $2`, []any{baseID, mergeID}},
		{`UPDATE api_keys SET user_id = $1 WHERE user_id = $2`, []any{baseID, mergeID}},
		{`UPDATE backup_codes SET user_id = $1 WHERE user_id = $2`, []any{baseID, mergeID}},
		{`UPDATE approved_subnets SET user_id = $1 WHERE user_id = $2`, []any{baseID, mergeID}},
		{`UPDATE audit_logs SET user_id = $1 WHERE user_id = $2`, []any{baseID, mergeID}},
		{`DELETE FROM users WHERE id = $1`, []any{mergeID}},
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.EmailSafe, &u.EmailVerified, &u.PasswordHash,
		&u.Role, &u.MfaMethod, &u.MfaSecret, &u.MfaPhone, &u.CheckLocationOnLogin, &u.Active,
		&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
