package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/worldzhy/newbie.saas/internal/auth"
	userdomain "github.com/worldzhy/newbie.saas/internal/user/domain"
)

type tokenResponse struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

func toTokenResponse(t *auth.TokenResponse) tokenResponse {
	return tokenResponse{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.ExpiresAt,
	}
}

type userResponse struct {
	ID                   int64                `json:"id"`
	Name                 string               `json:"name"`
	Email                string               `json:"email"`
	EmailVerified        bool                 `json:"emailVerified"`
	Role                 userdomain.Role      `json:"role"`
	MfaMethod            userdomain.MfaMethod `json:"mfaMethod"`
	CheckLocationOnLogin bool                 `json:"checkLocationOnLogin"`
	Active               bool                 `json:"active"`
	CreatedAt            time.Time            `json:"createdAt"`
}

func toUserResponse(u *userdomain.User) userResponse {
	return userResponse{
		ID:                   u.ID,
		Name:                 u.Name,
		Email:                u.Email,
		EmailVerified:        u.EmailVerified,
		Role:                 u.Role,
		MfaMethod:            u.MfaMethod,
		CheckLocationOnLogin: u.CheckLocationOnLogin,
		Active:               u.Active,
		CreatedAt:            u.CreatedAt,
	}
}

func decode(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

var errBadRequest = errors.New("invalid request body")

func writeBadRequest(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: errBadRequest.Error()})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &body); err != nil || body.Email == "" {
		writeBadRequest(w)
		return
	}
	u, err := s.auth.Register(r.Context(), s.clientInfo(r), body.Name, body.Email, body.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Code     string `json:"code"`
	}
	if err := decode(r, &body); err != nil || body.Email == "" {
		writeBadRequest(w)
		return
	}
	// The public endpoint never asserts federated login; that path is for
	// callers that verified the identity against an external provider first.
	resp, err := s.auth.Login(r.Context(), s.clientInfo(r), body.Email, body.Password, body.Code, false)
	if err != nil {
		writeError(w, err)
		return
	}
	if resp.MfaToken != "" {
		writeJSON(w, http.StatusOK, map[string]string{
			"mfaToken":  resp.MfaToken,
			"mfaMethod": string(resp.MfaMethod),
		})
		return
	}
	writeJSON(w, http.StatusOK, toTokenResponse(resp.Tokens))
}

func (s *Server) handleLoginTotp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
		Code  string `json:"code"`
	}
	if err := decode(r, &body); err != nil || body.Token == "" {
		writeBadRequest(w)
		return
	}
	tokens, err := s.auth.LoginWithTotp(r.Context(), s.clientInfo(r), body.Token, body.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTokenResponse(tokens))
}

func (s *Server) handleLoginToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := decode(r, &body); err != nil || body.Token == "" {
		writeBadRequest(w)
		return
	}
	tokens, err := s.auth.LoginWithEmailToken(r.Context(), s.clientInfo(r), body.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTokenResponse(tokens))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decode(r, &body); err != nil {
		writeBadRequest(w)
		return
	}
	tokens, err := s.auth.Refresh(r.Context(), s.clientInfo(r), body.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTokenResponse(tokens))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decode(r, &body); err != nil {
		writeBadRequest(w)
		return
	}
	if err := s.auth.Logout(r.Context(), s.clientInfo(r), body.RefreshToken); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleApproveSubnet(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := decode(r, &body); err != nil || body.Token == "" {
		writeBadRequest(w)
		return
	}
	tokens, err := s.auth.ApproveSubnet(r.Context(), s.clientInfo(r), body.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTokenResponse(tokens))
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := decode(r, &body); err != nil || body.Token == "" {
		writeBadRequest(w)
		return
	}
	tokens, err := s.auth.VerifyEmail(r.Context(), s.clientInfo(r), body.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTokenResponse(tokens))
}

func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := decode(r, &body); err != nil || body.Email == "" {
		writeBadRequest(w)
		return
	}
	if err := s.auth.SendEmailVerification(r.Context(), body.Email); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := decode(r, &body); err != nil || body.Email == "" {
		writeBadRequest(w)
		return
	}
	// An unknown email reads the same as a known one, so the endpoint does not
	// reveal which addresses have accounts.
	if err := s.auth.RequestPasswordReset(r.Context(), body.Email); err != nil && !errors.Is(err, auth.ErrUserNotFound) {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decode(r, &body); err != nil || body.Token == "" || body.Password == "" {
		writeBadRequest(w)
		return
	}
	tokens, err := s.auth.ResetPassword(r.Context(), s.clientInfo(r), body.Token, body.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTokenResponse(tokens))
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := decode(r, &body); err != nil || body.Token == "" {
		writeBadRequest(w)
		return
	}
	if err := s.auth.MergeAccounts(r.Context(), s.clientInfo(r), body.Token); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
