package repository

import (
	"context"

	"github.com/worldzhy/newbie.saas/internal/apikey/domain"
)

// Repository defines persistence for API keys.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.APIKey, error)
	// GetBySecret returns the key whose opaque secret matches, or nil.
	GetBySecret(ctx context.Context, secret string) (*domain.APIKey, error)
	// ListByUser returns every key the user owns, personal and team.
	ListByUser(ctx context.Context, userID int64) ([]*domain.APIKey, error)
	ListByTeam(ctx context.Context, teamID int64) ([]*domain.APIKey, error)
	Create(ctx context.Context, k *domain.APIKey) error
	Update(ctx context.Context, k *domain.APIKey) error
	Delete(ctx context.Context, id int64) error
}
