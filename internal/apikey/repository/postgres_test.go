package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/worldzhy/newbie.saas/internal/apikey/domain"
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

func TestGetBySecretDecodesScopes(t *testing.T) {
	repo, mock := newMock(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "team_id", "name", "description", "key", "scopes", "created_at", "updated_at",
	}).AddRow(int64(3), int64(10000001), nil, "ci", "", "secret123",
		[]byte(`["user-10000001:read-info","user-10000001:read-api-key-*"]`), now, now)

	mock.ExpectQuery("SELECT (.+) FROM api_keys WHERE key").
		WithArgs("secret123").
		WillReturnRows(rows)

	k, err := repo.GetBySecret(context.Background(), "secret123")
	if err != nil {
		t.Fatalf("GetBySecret: %v", err)
	}
	if k == nil {
		t.Fatal("expected a key")
	}
	if k.ForTeam() {
		t.Error("key with NULL team_id must be personal")
	}
	if len(k.Scopes) != 2 || k.Scopes[0] != "user-10000001:read-info" {
		t.Errorf("Scopes = %v", k.Scopes)
	}
}

func TestGetBySecretMissing(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM api_keys WHERE key").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	k, err := repo.GetBySecret(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetBySecret: %v", err)
	}
	if k != nil {
		t.Errorf("got %+v, want nil", k)
	}
}

func TestCreateEncodesScopesAndTeam(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("INSERT INTO api_keys").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))

	k := &domain.APIKey{
		UserID: 10000001,
		TeamID: 10000007,
		Name:   "deploy",
		Key:    "secret456",
		Scopes: []string{"team-10000007:read-info"},
	}
	if err := repo.Create(context.Background(), k); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if k.ID != 9 {
		t.Errorf("ID = %d, want 9", k.ID)
	}
}
