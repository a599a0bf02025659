package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	sessiondomain "github.com/worldzhy/newbie.saas/internal/session/domain"
	"github.com/worldzhy/newbie.saas/internal/user"
	userdomain "github.com/worldzhy/newbie.saas/internal/user/domain"
)

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		writeBadRequest(w)
		return
	}
	u, err := s.users.Get(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		writeBadRequest(w)
		return
	}
	var body struct {
		Name                 *string `json:"name"`
		CheckLocationOnLogin *bool   `json:"checkLocationOnLogin"`
	}
	if err := decode(r, &body); err != nil {
		writeBadRequest(w)
		return
	}
	u, err := s.users.Update(r.Context(), userID, user.ProfileUpdate{
		Name:                 body.Name,
		CheckLocationOnLogin: body.CheckLocationOnLogin,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (s *Server) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		writeBadRequest(w)
		return
	}
	if err := s.users.Deactivate(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sessionResponse struct {
	ID              int64     `json:"id"`
	IPAddress       string    `json:"ipAddress"`
	UserAgent       string    `json:"userAgent"`
	Browser         string    `json:"browser,omitempty"`
	OperatingSystem string    `json:"operatingSystem,omitempty"`
	City            string    `json:"city,omitempty"`
	Region          string    `json:"region,omitempty"`
	CountryCode     string    `json:"countryCode,omitempty"`
	Timezone        string    `json:"timezone,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toSessionResponse(sess *sessiondomain.Session) sessionResponse {
	return sessionResponse{
		ID:              sess.ID,
		IPAddress:       sess.IPAddress,
		UserAgent:       sess.UserAgent,
		Browser:         sess.Browser,
		OperatingSystem: sess.OperatingSystem,
		City:            sess.City,
		Region:          sess.Region,
		CountryCode:     sess.CountryCode,
		Timezone:        sess.Timezone,
		CreatedAt:       sess.CreatedAt,
		UpdatedAt:       sess.UpdatedAt,
	}
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		writeBadRequest(w)
		return
	}
	sessions, err := s.users.ListSessions(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, toSessionResponse(sess))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	userID, okUser := pathID(r, "userId")
	sessionID, okSession := pathID(r, "id")
	if !okUser || !okSession {
		writeBadRequest(w)
		return
	}
	if err := s.users.DeleteSession(r.Context(), userID, sessionID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTotpQrCode(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		writeBadRequest(w)
		return
	}
	url, err := s.auth.GetTotpQrCode(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleEnableMfa(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		writeBadRequest(w)
		return
	}
	var body struct {
		Method string `json:"method"`
		Phone  string `json:"phone"`
		Code   string `json:"code"`
	}
	if err := decode(r, &body); err != nil || body.Code == "" {
		writeBadRequest(w)
		return
	}
	method := userdomain.MfaMethod(body.Method)
	switch method {
	case userdomain.MfaTotp, userdomain.MfaSms, userdomain.MfaEmail:
	default:
		writeBadRequest(w)
		return
	}
	codes, err := s.auth.EnableMfaMethod(r.Context(), userID, method, body.Phone, body.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"backupCodes": codes})
}

func (s *Server) handleDisableMfa(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		writeBadRequest(w)
		return
	}
	if err := s.auth.DisableMfa(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		writeBadRequest(w)
		return
	}
	codes, err := s.auth.RegenerateBackupCodes(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"backupCodes": codes})
}

func (s *Server) handleMergeRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		writeBadRequest(w)
		return
	}
	var body struct {
		Email string `json:"email"`
	}
	if err := decode(r, &body); err != nil || body.Email == "" {
		writeBadRequest(w)
		return
	}
	if err := s.auth.RequestMergeAccounts(r.Context(), userID, body.Email); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type subnetResponse struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Server) handleListSubnets(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		writeBadRequest(w)
		return
	}
	approved, err := s.subnets.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]subnetResponse, 0, len(approved))
	for _, a := range approved {
		out = append(out, subnetResponse{ID: a.ID, CreatedAt: a.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteSubnet(w http.ResponseWriter, r *http.Request) {
	userID, okUser := pathID(r, "userId")
	subnetID, okSubnet := pathID(r, "id")
	if !okUser || !okSubnet {
		writeBadRequest(w)
		return
	}
	if err := s.subnets.Delete(r.Context(), subnetID, userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

const defaultAuditLogLimit = 50

func auditLogLimit(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			return n
		}
	}
	return defaultAuditLogLimit
}

type auditLogResponse struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"userId"`
	TeamID    int64     `json:"teamId,omitempty"`
	Event     string    `json:"event"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Server) handleListUserAuditLogs(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		writeBadRequest(w)
		return
	}
	logs, err := s.auditLogs.ListByUser(r.Context(), userID, auditLogLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]auditLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, auditLogResponse{
			ID: l.ID, UserID: l.UserID, TeamID: l.TeamID, Event: l.Event,
			IPAddress: l.IPAddress, UserAgent: l.UserAgent, CreatedAt: l.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListTeamAuditLogs(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(r, "teamId")
	if !ok {
		writeBadRequest(w)
		return
	}
	logs, err := s.auditLogs.ListByTeam(r.Context(), teamID, auditLogLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]auditLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, auditLogResponse{
			ID: l.ID, UserID: l.UserID, TeamID: l.TeamID, Event: l.Event,
			IPAddress: l.IPAddress, UserAgent: l.UserAgent, CreatedAt: l.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
