package repository

import (
	"context"

	"github.com/worldzhy/newbie.saas/internal/membership/domain"
)

// Repository defines persistence for memberships.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.Membership, error)
	GetByUserAndTeam(ctx context.Context, userID, teamID int64) (*domain.Membership, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.Membership, error)
	ListByTeam(ctx context.Context, teamID int64) ([]*domain.Membership, error)
	Create(ctx context.Context, m *domain.Membership) error
	UpdateRole(ctx context.Context, id int64, role domain.Role) error
	Delete(ctx context.Context, id int64) error
	// CountByTeam returns the number of memberships in the team.
	CountByTeam(ctx context.Context, teamID int64) (int, error)
	// CountOwnersByTeam returns the number of OWNER memberships in the team.
	CountOwnersByTeam(ctx context.Context, teamID int64) (int, error)
}
