package httpapi

import (
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/worldzhy/newbie.saas/internal/apikey"
	"github.com/worldzhy/newbie.saas/internal/auth"
	"github.com/worldzhy/newbie.saas/internal/scopes"
	"github.com/worldzhy/newbie.saas/internal/security"
)

// statusRecorder captures the response status for logging and audit.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		log.Printf("httpapi: %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}

// authenticate resolves the Authorization header into a principal. A Bearer
// value is a user access token; anything else is treated as an API key
// secret. A missing header passes through anonymously, a present but invalid
// credential is rejected here.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		var principal *Principal
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			claims, err := s.tokens.VerifyAccess(strings.TrimSpace(token))
			if err != nil {
				writeError(w, err)
				return
			}
			principal = &Principal{
				Type:      security.PrincipalUser,
				UserID:    claims.UserID,
				SessionID: claims.SessionID,
				Role:      claims.Role,
				Scopes:    claims.Scopes,
			}
		} else {
			key, err := s.apikeys.GetBySecret(r.Context(), header)
			if err != nil {
				if errors.Is(err, apikey.ErrAPIKeyNotFound) {
					writeError(w, auth.ErrInvalidCredentials)
					return
				}
				writeError(w, err)
				return
			}
			principal = &Principal{
				Type:     security.PrincipalAPIKey,
				UserID:   key.UserID,
				APIKeyID: key.ID,
				Scopes:   key.Scopes,
			}
		}
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
	})
}

// rateLimit applies the tier matching the principal: API keys get the widest
// bucket, logged-in users the middle one, anonymous clients the narrowest,
// keyed by IP.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := s.publicLimiter
		key := "ip:" + clientIP(r)
		if p := PrincipalFrom(r.Context()); p != nil {
			switch p.Type {
			case security.PrincipalAPIKey:
				limiter = s.keyLimiter
				key = "api-key:" + strconv.FormatInt(p.APIKeyID, 10)
			default:
				limiter = s.userLimiter
				key = "user:" + strconv.FormatInt(p.UserID, 10)
			}
		}

		decision := limiter.Check(key)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.Reset.Unix(), 10))
		if !decision.Allowed {
			seconds := int(decision.RetryAfter/time.Second) + 1
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// guard enforces the operation's authorization declaration around the
// handler and records its audit event on success.
func (s *Server) guard(op Operation, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := PrincipalFrom(r.Context())
		if !op.Public && principal == nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "authentication required"})
			return
		}
		params := mux.Vars(r)
		if len(op.Scopes) > 0 {
			// Routes without a user id in the path authorize against the
			// caller's own id.
			if _, ok := params["userId"]; !ok && principal != nil {
				params = copyParams(params)
				params["userId"] = strconv.FormatInt(principal.UserID, 10)
			}
			if !scopes.Authorize(op.Scopes, principal.Scopes, params) {
				writeJSON(w, http.StatusForbidden, errorBody{Error: "insufficient scope"})
				return
			}
		}

		rec := &statusRecorder{ResponseWriter: w}
		h(rec, r)

		if op.AuditEvent != "" && rec.status < http.StatusBadRequest {
			var teamID int64
			if v, ok := params["teamId"]; ok {
				teamID, _ = strconv.ParseInt(v, 10, 64)
			}
			var userID int64
			if principal != nil {
				userID = principal.UserID
			}
			s.audit.Record(r.Context(), userID, teamID, op.AuditEvent, clientIP(r), r.UserAgent())
		}
	})
}

func copyParams(params map[string]string) map[string]string {
	out := make(map[string]string, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	return out
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the socket
// peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) clientInfo(r *http.Request) auth.ClientInfo {
	return auth.ClientInfo{IPAddress: clientIP(r), UserAgent: r.UserAgent()}
}
