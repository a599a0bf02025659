package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/worldzhy/newbie.saas/internal/apikey"
	"github.com/worldzhy/newbie.saas/internal/auth"
	"github.com/worldzhy/newbie.saas/internal/membership"
	membershiprepo "github.com/worldzhy/newbie.saas/internal/membership/repository"
	"github.com/worldzhy/newbie.saas/internal/security"
	"github.com/worldzhy/newbie.saas/internal/team"
	"github.com/worldzhy/newbie.saas/internal/user"
	userrepo "github.com/worldzhy/newbie.saas/internal/user/repository"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Printf("httpapi: encode response: %v", err)
		}
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps a service error to an HTTP status. Unrecognized errors are
// logged and reported as a generic 500 so internals never leak to clients.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("httpapi: %v", err)
		msg = "internal server error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrNoToken),
		errors.Is(err, auth.ErrInvalidMfaCode),
		errors.Is(err, auth.ErrMfaBackupCodeUsed),
		errors.Is(err, security.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrUnverifiedEmail),
		errors.Is(err, auth.ErrUnverifiedLocation):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, auth.ErrSessionNotFound),
		errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, user.ErrSessionNotFound),
		errors.Is(err, team.ErrTeamNotFound),
		errors.Is(err, membership.ErrMembershipNotFound),
		errors.Is(err, apikey.ErrAPIKeyNotFound),
		errors.Is(err, apikey.ErrOwnerNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrEmailConflict),
		errors.Is(err, auth.ErrEmailVerifiedConflict),
		errors.Is(err, auth.ErrMfaEnabledConflict),
		errors.Is(err, auth.ErrMfaNotEnabled),
		errors.Is(err, userrepo.ErrDuplicateEmail),
		errors.Is(err, membershiprepo.ErrDuplicateMembership):
		return http.StatusConflict
	case errors.Is(err, auth.ErrMfaPhoneNotFound),
		errors.Is(err, membership.ErrCannotDeleteSoleMember),
		errors.Is(err, membership.ErrCannotDeleteSoleOwner),
		errors.Is(err, membership.ErrCannotUpdateRoleSoleOwner):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
