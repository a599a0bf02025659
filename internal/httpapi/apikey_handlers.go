package httpapi

import (
	"net/http"
	"time"

	"github.com/worldzhy/newbie.saas/internal/apikey"
	apikeydomain "github.com/worldzhy/newbie.saas/internal/apikey/domain"
)

type apiKeyResponse struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	TeamID      int64     `json:"teamId,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Key         string    `json:"key"`
	Scopes      []string  `json:"scopes"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toAPIKeyResponse(k *apikeydomain.APIKey) apiKeyResponse {
	scopes := k.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	return apiKeyResponse{
		ID:          k.ID,
		UserID:      k.UserID,
		TeamID:      k.TeamID,
		Name:        k.Name,
		Description: k.Description,
		Key:         k.Key,
		Scopes:      scopes,
		CreatedAt:   k.CreatedAt,
	}
}

type apiKeyBody struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Scopes      []string `json:"scopes"`
}

func (s *Server) handleListUserAPIKeys(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		writeBadRequest(w)
		return
	}
	keys, err := s.apikeys.ListForUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]apiKeyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, toAPIKeyResponse(k))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateUserAPIKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		writeBadRequest(w)
		return
	}
	var body apiKeyBody
	if err := decode(r, &body); err != nil || body.Name == "" {
		writeBadRequest(w)
		return
	}
	k, err := s.apikeys.CreateForUser(r.Context(), userID, body.Name, body.Description, body.Scopes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAPIKeyResponse(k))
}

func (s *Server) handleListTeamAPIKeys(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(r, "teamId")
	if !ok {
		writeBadRequest(w)
		return
	}
	keys, err := s.apikeys.ListForTeam(r.Context(), teamID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]apiKeyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, toAPIKeyResponse(k))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTeamAPIKey(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(r, "teamId")
	if !ok {
		writeBadRequest(w)
		return
	}
	principal := PrincipalFrom(r.Context())
	var body apiKeyBody
	if err := decode(r, &body); err != nil || body.Name == "" {
		writeBadRequest(w)
		return
	}
	k, err := s.apikeys.CreateForTeam(r.Context(), principal.UserID, teamID, body.Name, body.Description, body.Scopes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAPIKeyResponse(k))
}

// handleUpdateAPIKey serves both the user and team routes; the path var
// decides the ownership check.
func (s *Server) handleUpdateAPIKey(w http.ResponseWriter, r *http.Request) {
	keyID, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w)
		return
	}
	var body apiKeyBody
	if err := decode(r, &body); err != nil {
		writeBadRequest(w)
		return
	}
	if !s.apiKeyInScope(w, r, keyID) {
		return
	}
	k, err := s.apikeys.Update(r.Context(), keyID, body.Name, body.Description, body.Scopes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIKeyResponse(k))
}

func (s *Server) handleDeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	keyID, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w)
		return
	}
	if !s.apiKeyInScope(w, r, keyID) {
		return
	}
	if err := s.apikeys.Delete(r.Context(), keyID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiKeyInScope verifies the key belongs to the user or team named in the
// path. A mismatch reads as not found.
func (s *Server) apiKeyInScope(w http.ResponseWriter, r *http.Request, keyID int64) bool {
	k, err := s.apikeys.GetByID(r.Context(), keyID)
	if err != nil {
		writeError(w, err)
		return false
	}
	if userID, ok := pathID(r, "userId"); ok && (k.ForTeam() || k.UserID != userID) {
		writeError(w, apikey.ErrAPIKeyNotFound)
		return false
	}
	if teamID, ok := pathID(r, "teamId"); ok && k.TeamID != teamID {
		writeError(w, apikey.ErrAPIKeyNotFound)
		return false
	}
	return true
}
