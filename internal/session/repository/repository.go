package repository

import (
	"context"

	"github.com/worldzhy/newbie.saas/internal/session/domain"
)

// Repository defines persistence for sessions.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.Session, error)
	// GetByToken returns the session holding the given refresh token, or nil.
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	// Touch bumps updated_at; called on every successful refresh.
	Touch(ctx context.Context, id int64) error
	// Delete revokes a session. The refresh token stops working immediately;
	// access tokens already issued live out their TTL.
	Delete(ctx context.Context, id int64) error
	DeleteByToken(ctx context.Context, token string) error
	DeleteAllByUser(ctx context.Context, userID int64) error
}
