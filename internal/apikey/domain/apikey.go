package domain

import "time"

// APIKey is a delegated credential owned by a user, optionally on behalf of a
// team. Its stored scopes are always kept a subset of what the owner holds.
type APIKey struct {
	ID          int64
	UserID      int64
	TeamID      int64 // 0 for personal keys
	Name        string
	Description string
	Key         string // opaque secret presented in the Authorization header
	Scopes      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ForTeam reports whether the key is a team key.
func (k *APIKey) ForTeam() bool {
	return k.TeamID != 0
}
