package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/worldzhy/newbie.saas/internal/apikey"
	apikeydomain "github.com/worldzhy/newbie.saas/internal/apikey/domain"
	membershipdomain "github.com/worldzhy/newbie.saas/internal/membership/domain"
	"github.com/worldzhy/newbie.saas/internal/ratelimit"
	"github.com/worldzhy/newbie.saas/internal/security"
	userdomain "github.com/worldzhy/newbie.saas/internal/user/domain"
)

type fakeKeyRepo struct {
	keys map[int64]*apikeydomain.APIKey
}

func (r *fakeKeyRepo) GetByID(_ context.Context, id int64) (*apikeydomain.APIKey, error) {
	return r.keys[id], nil
}

func (r *fakeKeyRepo) GetBySecret(_ context.Context, secret string) (*apikeydomain.APIKey, error) {
	for _, k := range r.keys {
		if k.Key == secret {
			return k, nil
		}
	}
	return nil, nil
}

func (r *fakeKeyRepo) ListByUser(_ context.Context, userID int64) ([]*apikeydomain.APIKey, error) {
	return nil, nil
}

func (r *fakeKeyRepo) ListByTeam(_ context.Context, teamID int64) ([]*apikeydomain.APIKey, error) {
	return nil, nil
}

func (r *fakeKeyRepo) Create(_ context.Context, k *apikeydomain.APIKey) error { return nil }
func (r *fakeKeyRepo) Update(_ context.Context, k *apikeydomain.APIKey) error { return nil }
func (r *fakeKeyRepo) Delete(_ context.Context, id int64) error               { return nil }

type fakeKeyUsers struct{}

func (fakeKeyUsers) GetByID(_ context.Context, id int64) (*userdomain.User, error) {
	return &userdomain.User{ID: id, Role: userdomain.RoleRegular, Active: true}, nil
}

type fakeKeyMemberships struct{}

func (fakeKeyMemberships) ListByUser(_ context.Context, _ int64) ([]*membershipdomain.Membership, error) {
	return nil, nil
}

type recordedEvent struct {
	userID, teamID int64
	event          string
}

type recordingAuditor struct {
	events []recordedEvent
}

func (a *recordingAuditor) Record(_ context.Context, userID, teamID int64, event, _, _ string) {
	a.events = append(a.events, recordedEvent{userID: userID, teamID: teamID, event: event})
}

func newTestServer(t *testing.T, publicTier ratelimit.Tier) (*Server, *fakeKeyRepo, *recordingAuditor) {
	t.Helper()
	repo := &fakeKeyRepo{keys: map[int64]*apikeydomain.APIKey{}}
	auditor := &recordingAuditor{}
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("test token provider: %v", err)
	}
	s := NewServer(Config{
		APIKeys:    apikey.NewService(repo, fakeKeyUsers{}, fakeKeyMemberships{}, 10, time.Minute),
		Audit:      auditor,
		Tokens:     tokens,
		PublicTier: publicTier,
	})
	return s, repo, auditor
}

// testRouter mounts one guarded route with the full middleware chain.
func testRouter(s *Server, method, path, opID string, h http.HandlerFunc) http.Handler {
	r := mux.NewRouter()
	r.Use(s.authenticate, s.rateLimit)
	s.route(r, method, path, opID, h)
	return r
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func bearerFor(t *testing.T, s *Server, userID int64, grantedScopes []string) string {
	t.Helper()
	token, err := s.tokens.SignAccess(security.PrincipalUser, userID, grantedScopes, 1, "REGULAR", time.Hour)
	if err != nil {
		t.Fatalf("sign access token: %v", err)
	}
	return "Bearer " + token
}

func TestGuardRequiresAuthentication(t *testing.T) {
	s, _, _ := newTestServer(t, ratelimit.Tier{})
	router := testRouter(s, http.MethodGet, "/users/{userId}", "users.get", okHandler)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/10000001", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous request = %d, want 401", rr.Code)
	}
}

func TestGuardScopeCheck(t *testing.T) {
	s, _, _ := newTestServer(t, ratelimit.Tier{})
	router := testRouter(s, http.MethodGet, "/users/{userId}", "users.get", okHandler)
	header := bearerFor(t, s, 10000001, []string{"user-10000001:read-info"})

	req := httptest.NewRequest(http.MethodGet, "/users/10000001", nil)
	req.Header.Set("Authorization", header)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("own profile = %d, want 200", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/users/10000002", nil)
	req.Header.Set("Authorization", header)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("someone else's profile = %d, want 403", rr.Code)
	}
}

func TestGuardSudoWildcard(t *testing.T) {
	s, _, _ := newTestServer(t, ratelimit.Tier{})
	router := testRouter(s, http.MethodGet, "/users/{userId}", "users.get", okHandler)
	header := bearerFor(t, s, 10000009, []string{"*", "user-*:*", "team-*:*"})

	req := httptest.NewRequest(http.MethodGet, "/users/10000002", nil)
	req.Header.Set("Authorization", header)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("superuser request = %d, want 200", rr.Code)
	}
}

func TestGuardFallsBackToCallerID(t *testing.T) {
	s, _, _ := newTestServer(t, ratelimit.Tier{})
	// teams.create carries a user-scoped pattern but the path has no user id;
	// the caller's own id must satisfy it.
	router := testRouter(s, http.MethodPost, "/teams", "teams.create", okHandler)

	req := httptest.NewRequest(http.MethodPost, "/teams", nil)
	req.Header.Set("Authorization", bearerFor(t, s, 10000001, []string{"user-10000001:write-membership-*"}))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("create with own membership scope = %d, want 200", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/teams", nil)
	req.Header.Set("Authorization", bearerFor(t, s, 10000001, []string{"user-10000002:write-membership-*"}))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("create with foreign scope = %d, want 403", rr.Code)
	}
}

func TestAuthenticateRejectsBadBearer(t *testing.T) {
	s, _, _ := newTestServer(t, ratelimit.Tier{})
	router := testRouter(s, http.MethodGet, "/users/{userId}", "users.get", okHandler)

	req := httptest.NewRequest(http.MethodGet, "/users/10000001", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("bad token = %d, want 401", rr.Code)
	}
}

func TestAuthenticateAPIKey(t *testing.T) {
	s, repo, _ := newTestServer(t, ratelimit.Tier{})
	repo.keys[1] = &apikeydomain.APIKey{
		ID: 1, UserID: 10000001, Key: "sekrit",
		Scopes: []string{"user-10000001:read-info"},
	}
	router := testRouter(s, http.MethodGet, "/users/{userId}", "users.get", okHandler)

	req := httptest.NewRequest(http.MethodGet, "/users/10000001", nil)
	req.Header.Set("Authorization", "sekrit")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("api key request = %d, want 200", rr.Code)
	}

	// The key's stored scopes bound what it can do.
	req = httptest.NewRequest(http.MethodGet, "/users/10000002", nil)
	req.Header.Set("Authorization", "sekrit")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("out-of-scope api key request = %d, want 403", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/users/10000001", nil)
	req.Header.Set("Authorization", "wrong-secret")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("unknown secret = %d, want 401", rr.Code)
	}
}

func TestRateLimitHeadersAnd429(t *testing.T) {
	s, _, _ := newTestServer(t, ratelimit.Tier{Requests: 2, Window: time.Minute})
	router := testRouter(s, http.MethodPost, "/auth/login", "auth.login", okHandler)

	var rr *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "203.0.113.9:4242"
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d = %d, want 200", i+1, rr.Code)
		}
		if rr.Header().Get("X-RateLimit-Limit") != "2" {
			t.Errorf("X-RateLimit-Limit = %q, want 2", rr.Header().Get("X-RateLimit-Limit"))
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "203.0.113.9:4242"
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("over-limit request = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("429 without Retry-After")
	}

	// A different client address is a different bucket.
	req = httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "198.51.100.7:4242"
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("other client = %d, want 200", rr.Code)
	}
}

func TestGuardRecordsAuditEvent(t *testing.T) {
	s, repo, auditor := newTestServer(t, ratelimit.Tier{})
	repo.keys[1] = &apikeydomain.APIKey{ID: 1, UserID: 10000001, TeamID: 10000007, Key: "k", Scopes: nil}
	router := testRouter(s, http.MethodDelete, "/teams/{teamId}/api-keys/{id}", "teams.api-keys.delete", okHandler)

	req := httptest.NewRequest(http.MethodDelete, "/teams/10000007/api-keys/1", nil)
	req.Header.Set("Authorization", bearerFor(t, s, 10000001, []string{"team-10000007:delete-api-key-*"}))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("request = %d, want 200", rr.Code)
	}
	if len(auditor.events) != 1 {
		t.Fatalf("audit events = %d, want 1", len(auditor.events))
	}
	got := auditor.events[0]
	if got.event != "api-key.delete" || got.userID != 10000001 || got.teamID != 10000007 {
		t.Errorf("audit event = %+v", got)
	}
}

func TestGuardSkipsAuditOnFailure(t *testing.T) {
	s, _, auditor := newTestServer(t, ratelimit.Tier{})
	failing := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}
	router := testRouter(s, http.MethodDelete, "/teams/{teamId}/api-keys/{id}", "teams.api-keys.delete", failing)

	req := httptest.NewRequest(http.MethodDelete, "/teams/10000007/api-keys/1", nil)
	req.Header.Set("Authorization", bearerFor(t, s, 10000001, []string{"team-10000007:delete-api-key-*"}))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if len(auditor.events) != 0 {
		t.Errorf("failed request still audited: %+v", auditor.events)
	}
}
