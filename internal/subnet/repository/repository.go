package repository

import (
	"context"

	"github.com/worldzhy/newbie.saas/internal/subnet/domain"
)

// Repository defines persistence for approved subnets.
type Repository interface {
	ListByUser(ctx context.Context, userID int64) ([]*domain.ApprovedSubnet, error)
	Create(ctx context.Context, s *domain.ApprovedSubnet) error
	// Delete removes the subnet only when it belongs to userID.
	Delete(ctx context.Context, id, userID int64) error
}
