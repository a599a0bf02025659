package repository

import (
	"context"

	"github.com/worldzhy/newbie.saas/internal/user/domain"
)

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// GetByEmail looks a user up by the normalized form of email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
	// Deactivate marks the user inactive without deleting any rows.
	Deactivate(ctx context.Context, id int64) error
	// MergeInto reassigns every record owned by mergeID to baseID and deletes
	// the merged user, all in one transaction.
	MergeInto(ctx context.Context, baseID, mergeID int64) error
}
