package httpapi

import (
	"context"

	"github.com/worldzhy/newbie.saas/internal/security"
)

// Principal is the authenticated caller of a request: either a user behind an
// access token or an API key behind its secret.
type Principal struct {
	Type      security.PrincipalType
	UserID    int64 // owner for API-key principals
	APIKeyID  int64 // zero for user principals
	SessionID int64 // zero for API-key principals
	Role      string
	Scopes    []string
}

type contextKey int

const principalKey contextKey = iota

// withPrincipal returns a context carrying the principal.
func withPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the request's principal, or nil for anonymous
// requests.
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}
