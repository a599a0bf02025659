package httpapi

import (
	"net/http"
	"time"

	"github.com/worldzhy/newbie.saas/internal/membership"
	membershipdomain "github.com/worldzhy/newbie.saas/internal/membership/domain"
	teamdomain "github.com/worldzhy/newbie.saas/internal/team/domain"
)

type teamResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func toTeamResponse(t *teamdomain.Team) teamResponse {
	return teamResponse{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt}
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFrom(r.Context())
	var body struct {
		Name string `json:"name"`
	}
	if err := decode(r, &body); err != nil || body.Name == "" {
		writeBadRequest(w)
		return
	}
	t, err := s.teams.Create(r.Context(), principal.UserID, body.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTeamResponse(t))
}

func (s *Server) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(r, "teamId")
	if !ok {
		writeBadRequest(w)
		return
	}
	t, err := s.teams.Get(r.Context(), teamID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTeamResponse(t))
}

func (s *Server) handleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(r, "teamId")
	if !ok {
		writeBadRequest(w)
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := decode(r, &body); err != nil {
		writeBadRequest(w)
		return
	}
	t, err := s.teams.Update(r.Context(), teamID, body.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTeamResponse(t))
}

func (s *Server) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(r, "teamId")
	if !ok {
		writeBadRequest(w)
		return
	}
	if err := s.teams.Delete(r.Context(), teamID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type membershipResponse struct {
	ID        int64                 `json:"id"`
	UserID    int64                 `json:"userId"`
	TeamID    int64                 `json:"teamId"`
	Role      membershipdomain.Role `json:"role"`
	CreatedAt time.Time             `json:"createdAt"`
}

func toMembershipResponse(m *membershipdomain.Membership) membershipResponse {
	return membershipResponse{ID: m.ID, UserID: m.UserID, TeamID: m.TeamID, Role: m.Role, CreatedAt: m.CreatedAt}
}

func (s *Server) handleListUserMemberships(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		writeBadRequest(w)
		return
	}
	memberships, err := s.memberships.ListForUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]membershipResponse, 0, len(memberships))
	for _, m := range memberships {
		out = append(out, toMembershipResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListTeamMemberships(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(r, "teamId")
	if !ok {
		writeBadRequest(w)
		return
	}
	memberships, err := s.memberships.ListForTeam(r.Context(), teamID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]membershipResponse, 0, len(memberships))
	for _, m := range memberships {
		out = append(out, toMembershipResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateMembership(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(r, "teamId")
	if !ok {
		writeBadRequest(w)
		return
	}
	var body struct {
		UserID int64  `json:"userId"`
		Role   string `json:"role"`
	}
	if err := decode(r, &body); err != nil || body.UserID == 0 {
		writeBadRequest(w)
		return
	}
	role := membershipdomain.Role(body.Role)
	switch role {
	case "", membershipdomain.RoleOwner, membershipdomain.RoleAdmin, membershipdomain.RoleMember:
	default:
		writeBadRequest(w)
		return
	}
	m, err := s.memberships.Add(r.Context(), teamID, body.UserID, role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMembershipResponse(m))
}

func (s *Server) handleUpdateMembership(w http.ResponseWriter, r *http.Request) {
	teamID, okTeam := pathID(r, "teamId")
	membershipID, okID := pathID(r, "id")
	if !okTeam || !okID {
		writeBadRequest(w)
		return
	}
	var body struct {
		Role string `json:"role"`
	}
	if err := decode(r, &body); err != nil {
		writeBadRequest(w)
		return
	}
	role := membershipdomain.Role(body.Role)
	switch role {
	case membershipdomain.RoleOwner, membershipdomain.RoleAdmin, membershipdomain.RoleMember:
	default:
		writeBadRequest(w)
		return
	}
	if !s.membershipInScope(w, r, membershipID, 0, teamID) {
		return
	}
	m, err := s.memberships.UpdateRole(r.Context(), membershipID, role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMembershipResponse(m))
}

// handleDeleteMembership serves both the user-facing route (leave a team) and
// the team-facing route (remove a member); the surrounding path var decides
// which ownership check applies.
func (s *Server) handleDeleteMembership(w http.ResponseWriter, r *http.Request) {
	membershipID, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w)
		return
	}
	var userID, teamID int64
	if v, ok := pathID(r, "userId"); ok {
		userID = v
	}
	if v, ok := pathID(r, "teamId"); ok {
		teamID = v
	}
	if !s.membershipInScope(w, r, membershipID, userID, teamID) {
		return
	}
	if err := s.memberships.Delete(r.Context(), membershipID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// membershipInScope verifies the membership belongs to the user or team named
// in the path. A mismatch reads as not found so ids are not enumerable across
// tenants.
func (s *Server) membershipInScope(w http.ResponseWriter, r *http.Request, membershipID, userID, teamID int64) bool {
	m, err := s.memberships.Get(r.Context(), membershipID)
	if err != nil {
		writeError(w, err)
		return false
	}
	if (userID != 0 && m.UserID != userID) || (teamID != 0 && m.TeamID != teamID) {
		writeError(w, membership.ErrMembershipNotFound)
		return false
	}
	return true
}
