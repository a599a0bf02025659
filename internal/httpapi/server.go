// Package httpapi is the HTTP boundary: routing, authentication, the scope
// authorization table, rate limiting, and request handlers.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/worldzhy/newbie.saas/internal/apikey"
	auditdomain "github.com/worldzhy/newbie.saas/internal/audit/domain"
	"github.com/worldzhy/newbie.saas/internal/auth"
	"github.com/worldzhy/newbie.saas/internal/membership"
	"github.com/worldzhy/newbie.saas/internal/ratelimit"
	"github.com/worldzhy/newbie.saas/internal/security"
	subnetdomain "github.com/worldzhy/newbie.saas/internal/subnet/domain"
	"github.com/worldzhy/newbie.saas/internal/team"
	"github.com/worldzhy/newbie.saas/internal/user"
)

// AuditLogRepo reads audit history for the read-only log endpoints.
type AuditLogRepo interface {
	ListByUser(ctx context.Context, userID int64, limit int) ([]*auditdomain.AuditLog, error)
	ListByTeam(ctx context.Context, teamID int64, limit int) ([]*auditdomain.AuditLog, error)
}

// SubnetRepo backs the approved-subnet management endpoints.
type SubnetRepo interface {
	ListByUser(ctx context.Context, userID int64) ([]*subnetdomain.ApprovedSubnet, error)
	Delete(ctx context.Context, id, userID int64) error
}

// Auditor records security events best-effort.
type Auditor interface {
	Record(ctx context.Context, userID, teamID int64, event, ipAddress, userAgent string)
}

// Config bundles the server dependencies.
type Config struct {
	Auth        *auth.Service
	Users       *user.Service
	Teams       *team.Service
	Memberships *membership.Service
	APIKeys     *apikey.Service
	Subnets     SubnetRepo
	AuditLogs   AuditLogRepo
	Audit       Auditor
	Tokens      *security.TokenProvider

	PublicTier ratelimit.Tier
	UserTier   ratelimit.Tier
	APIKeyTier ratelimit.Tier
}

// Server holds the handler dependencies.
type Server struct {
	auth        *auth.Service
	users       *user.Service
	teams       *team.Service
	memberships *membership.Service
	apikeys     *apikey.Service
	subnets     SubnetRepo
	auditLogs   AuditLogRepo
	audit       Auditor
	tokens      *security.TokenProvider

	publicLimiter *ratelimit.Limiter
	userLimiter   *ratelimit.Limiter
	keyLimiter    *ratelimit.Limiter
}

type noopAuditor struct{}

func (noopAuditor) Record(context.Context, int64, int64, string, string, string) {}

// NewServer returns a Server. Zero tiers fall back to the default limits.
func NewServer(cfg Config) *Server {
	if cfg.PublicTier.Requests <= 0 {
		cfg.PublicTier = ratelimit.DefaultPublicTier
	}
	if cfg.UserTier.Requests <= 0 {
		cfg.UserTier = ratelimit.DefaultUserTier
	}
	if cfg.APIKeyTier.Requests <= 0 {
		cfg.APIKeyTier = ratelimit.DefaultAPIKeyTier
	}
	s := &Server{
		auth:          cfg.Auth,
		users:         cfg.Users,
		teams:         cfg.Teams,
		memberships:   cfg.Memberships,
		apikeys:       cfg.APIKeys,
		subnets:       cfg.Subnets,
		auditLogs:     cfg.AuditLogs,
		audit:         cfg.Audit,
		tokens:        cfg.Tokens,
		publicLimiter: ratelimit.NewLimiter(cfg.PublicTier, 0),
		userLimiter:   ratelimit.NewLimiter(cfg.UserTier, 0),
		keyLimiter:    ratelimit.NewLimiter(cfg.APIKeyTier, 0),
	}
	if s.audit == nil {
		s.audit = noopAuditor{}
	}
	return s
}

// Router builds the HTTP handler with the full middleware chain.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests, s.authenticate, s.rateLimit)

	s.route(r, http.MethodPost, "/auth/register", "auth.register", s.handleRegister)
	s.route(r, http.MethodPost, "/auth/login", "auth.login", s.handleLogin)
	s.route(r, http.MethodPost, "/auth/login/totp", "auth.login.totp", s.handleLoginTotp)
	s.route(r, http.MethodPost, "/auth/login/token", "auth.login.token", s.handleLoginToken)
	s.route(r, http.MethodPost, "/auth/refresh", "auth.refresh", s.handleRefresh)
	s.route(r, http.MethodPost, "/auth/logout", "auth.logout", s.handleLogout)
	s.route(r, http.MethodPost, "/auth/approve-subnet", "auth.approve-subnet", s.handleApproveSubnet)
	s.route(r, http.MethodPost, "/auth/verify-email", "auth.verify-email", s.handleVerifyEmail)
	s.route(r, http.MethodPost, "/auth/resend-email-verification", "auth.resend-verification", s.handleResendVerification)
	s.route(r, http.MethodPost, "/auth/forgot-password", "auth.forgot-password", s.handleForgotPassword)
	s.route(r, http.MethodPost, "/auth/reset-password", "auth.reset-password", s.handleResetPassword)
	s.route(r, http.MethodPost, "/auth/merge", "auth.merge", s.handleMerge)

	s.route(r, http.MethodGet, "/users/{userId}", "users.get", s.handleGetUser)
	s.route(r, http.MethodPatch, "/users/{userId}", "users.update", s.handleUpdateUser)
	s.route(r, http.MethodDelete, "/users/{userId}", "users.deactivate", s.handleDeactivateUser)

	s.route(r, http.MethodGet, "/users/{userId}/sessions", "users.sessions.list", s.handleListSessions)
	s.route(r, http.MethodDelete, "/users/{userId}/sessions/{id}", "users.sessions.delete", s.handleDeleteSession)

	s.route(r, http.MethodGet, "/users/{userId}/memberships", "users.memberships.list", s.handleListUserMemberships)
	s.route(r, http.MethodDelete, "/users/{userId}/memberships/{id}", "users.memberships.delete", s.handleDeleteMembership)

	s.route(r, http.MethodGet, "/users/{userId}/approved-subnets", "users.subnets.list", s.handleListSubnets)
	s.route(r, http.MethodDelete, "/users/{userId}/approved-subnets/{id}", "users.subnets.delete", s.handleDeleteSubnet)

	s.route(r, http.MethodGet, "/users/{userId}/audit-logs", "users.audit-logs.list", s.handleListUserAuditLogs)

	s.route(r, http.MethodPost, "/users/{userId}/mfa/totp", "users.mfa.totp", s.handleTotpQrCode)
	s.route(r, http.MethodPost, "/users/{userId}/mfa/enable", "users.mfa.enable", s.handleEnableMfa)
	s.route(r, http.MethodDelete, "/users/{userId}/mfa", "users.mfa.disable", s.handleDisableMfa)
	s.route(r, http.MethodPost, "/users/{userId}/mfa/regenerate", "users.mfa.regenerate", s.handleRegenerateBackupCodes)

	s.route(r, http.MethodPost, "/users/{userId}/merge-request", "users.merge-request", s.handleMergeRequest)

	s.route(r, http.MethodGet, "/users/{userId}/api-keys", "users.api-keys.list", s.handleListUserAPIKeys)
	s.route(r, http.MethodPost, "/users/{userId}/api-keys", "users.api-keys.create", s.handleCreateUserAPIKey)
	s.route(r, http.MethodPatch, "/users/{userId}/api-keys/{id}", "users.api-keys.update", s.handleUpdateAPIKey)
	s.route(r, http.MethodDelete, "/users/{userId}/api-keys/{id}", "users.api-keys.delete", s.handleDeleteAPIKey)

	s.route(r, http.MethodPost, "/teams", "teams.create", s.handleCreateTeam)
	s.route(r, http.MethodGet, "/teams/{teamId}", "teams.get", s.handleGetTeam)
	s.route(r, http.MethodPatch, "/teams/{teamId}", "teams.update", s.handleUpdateTeam)
	s.route(r, http.MethodDelete, "/teams/{teamId}", "teams.delete", s.handleDeleteTeam)

	s.route(r, http.MethodGet, "/teams/{teamId}/memberships", "teams.memberships.list", s.handleListTeamMemberships)
	s.route(r, http.MethodPost, "/teams/{teamId}/memberships", "teams.memberships.create", s.handleCreateMembership)
	s.route(r, http.MethodPatch, "/teams/{teamId}/memberships/{id}", "teams.memberships.update", s.handleUpdateMembership)
	s.route(r, http.MethodDelete, "/teams/{teamId}/memberships/{id}", "teams.memberships.delete", s.handleDeleteMembership)

	s.route(r, http.MethodGet, "/teams/{teamId}/audit-logs", "teams.audit-logs.list", s.handleListTeamAuditLogs)

	s.route(r, http.MethodGet, "/teams/{teamId}/api-keys", "teams.api-keys.list", s.handleListTeamAPIKeys)
	s.route(r, http.MethodPost, "/teams/{teamId}/api-keys", "teams.api-keys.create", s.handleCreateTeamAPIKey)
	s.route(r, http.MethodPatch, "/teams/{teamId}/api-keys/{id}", "teams.api-keys.update", s.handleUpdateAPIKey)
	s.route(r, http.MethodDelete, "/teams/{teamId}/api-keys/{id}", "teams.api-keys.delete", s.handleDeleteAPIKey)

	return otelhttp.NewHandler(r, "httpapi")
}

func (s *Server) route(r *mux.Router, method, path, opID string, h http.HandlerFunc) {
	op, ok := operations[opID]
	if !ok {
		panic("httpapi: route references unknown operation " + opID)
	}
	r.Handle(path, s.guard(op, h)).Methods(method)
}
