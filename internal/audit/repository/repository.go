package repository

import (
	"context"

	"github.com/worldzhy/newbie.saas/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, l *domain.AuditLog) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]*domain.AuditLog, error)
	ListByTeam(ctx context.Context, teamID int64, limit int) ([]*domain.AuditLog, error)
}
