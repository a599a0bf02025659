package repository

import (
	"context"

	"github.com/worldzhy/newbie.saas/internal/team/domain"
)

// Repository defines persistence for teams.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.Team, error)
	Create(ctx context.Context, t *domain.Team) error
	Update(ctx context.Context, t *domain.Team) error
	Delete(ctx context.Context, id int64) error
}
