package domain

import (
	"errors"
	"time"
)

// Team groups users through memberships and owns team-scoped resources.
type Team struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate validates the team for persistence.
func (t *Team) Validate() error {
	if t.Name == "" {
		return errors.New("name is required")
	}
	return nil
}
