package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/worldzhy/newbie.saas/internal/user/domain"
)

func newMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	database, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return NewPostgresRepository(database), mock
}

func userRow() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "name", "email", "email_safe", "email_verified", "password_hash", "role",
		"mfa_method", "mfa_secret", "mfa_phone", "check_location_on_login", "active",
		"created_at", "updated_at",
	}).AddRow(
		int64(10042424), "Ada", "Ada.Lovelace+work@gmail.com", "adalovelace@gmail.com",
		true, "$2a$04$hash", "REGULAR", "TOTP", "JBSWY3DP", "", false, true, now, now,
	)
}

func TestGetByID(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(int64(10042424)).
		WillReturnRows(userRow())

	u, err := repo.GetByID(context.Background(), 10042424)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u == nil || u.ID != 10042424 {
		t.Fatalf("got %+v, want user 10042424", u)
	}
	if u.MfaMethod != domain.MfaTotp {
		t.Errorf("MfaMethod = %q, want TOTP", u.MfaMethod)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetByIDMissing(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	u, err := repo.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u != nil {
		t.Errorf("got %+v, want nil for a missing row", u)
	}
}

func TestGetByEmailNormalizes(t *testing.T) {
	repo, mock := newMock(t)

	// The raw address is normalized before hitting the database, so
	// Ada.Lovelace+work@gmail.com and adalovelace@gmail.com are one account.
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email_safe").
		WithArgs("adalovelace@gmail.com").
		WillReturnRows(userRow())

	u, err := repo.GetByEmail(context.Background(), "Ada.Lovelace+work@gmail.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if u == nil {
		t.Fatal("expected a user")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestMergeIntoRunsInOneTransaction(t *testing.T) {
	repo, mock := newMock(t)

	base, merge := int64(10000001), int64(10000002)

	// Statements that reassign rows bind (base, merge); the deletes reference
	// only the merged account and must bind exactly one parameter, since an
	// unreferenced placeholder fails preparation on a real server.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE memberships SET user_id").WithArgs(base, merge).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM memberships").WithArgs(merge).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE sessions SET user_id").WithArgs(base, merge).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("UPDATE api_keys SET user_id").WithArgs(base, merge).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE backup_codes SET user_id").WithArgs(base, merge).WillReturnResult(sqlmock.NewResult(0, 10))
	mock.ExpectExec("UPDATE approved_subnets SET user_id").WithArgs(base, merge).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE audit_logs SET user_id").WithArgs(base, merge).WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("DELETE FROM users").WithArgs(merge).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.MergeInto(context.Background(), base, merge); err != nil {
		t.Fatalf("MergeInto: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestMergeIntoRollsBackOnFailure(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE memberships SET user_id").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM memberships").WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	if err := repo.MergeInto(context.Background(), 10000001, 10000002); err == nil {
		t.Fatal("expected the merge to fail")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
