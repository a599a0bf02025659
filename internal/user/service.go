// Package user implements profile and session management for the account
// owner's surface.
package user

import (
	"context"
	"errors"

	sessiondomain "github.com/worldzhy/newbie.saas/internal/session/domain"
	"github.com/worldzhy/newbie.saas/internal/user/domain"
)

var (
	// ErrUserNotFound is returned when no user matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrSessionNotFound is returned when no session matches, including a
	// session that exists but belongs to another user.
	ErrSessionNotFound = errors.New("session not found")
)

// Repo is the persistence the service needs.
type Repo interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
	Deactivate(ctx context.Context, id int64) error
}

// SessionRepo backs the session management surface.
type SessionRepo interface {
	GetByID(ctx context.Context, id int64) (*sessiondomain.Session, error)
	ListByUser(ctx context.Context, userID int64) ([]*sessiondomain.Session, error)
	Delete(ctx context.Context, id int64) error
	DeleteAllByUser(ctx context.Context, userID int64) error
}

// Auditor records security events best-effort.
type Auditor interface {
	Record(ctx context.Context, userID, teamID int64, event, ipAddress, userAgent string)
}

// ProfileUpdate carries the mutable profile fields. Nil pointers leave the
// field untouched.
type ProfileUpdate struct {
	Name                 *string
	CheckLocationOnLogin *bool
}

// Service implements profile and session operations.
type Service struct {
	users    Repo
	sessions SessionRepo
	audit    Auditor
}

// NewService returns a user Service.
func NewService(users Repo, sessions SessionRepo, audit Auditor) *Service {
	if audit == nil {
		audit = noopAuditor{}
	}
	return &Service{users: users, sessions: sessions, audit: audit}
}

type noopAuditor struct{}

func (noopAuditor) Record(context.Context, int64, int64, string, string, string) {}

// Get returns the user, or ErrUserNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// Update applies the profile changes.
func (s *Service) Update(ctx context.Context, id int64, upd ProfileUpdate) (*domain.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.CheckLocationOnLogin != nil {
		u.CheckLocationOnLogin = *upd.CheckLocationOnLogin
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Deactivate marks the account inactive and revokes every session. Logging in
// again reactivates the account.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.users.Deactivate(ctx, id); err != nil {
		return err
	}
	if err := s.sessions.DeleteAllByUser(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, id, 0, "user.deactivate", "", "")
	return nil
}

// ListSessions returns the user's active sessions, newest first.
func (s *Service) ListSessions(ctx context.Context, userID int64) ([]*sessiondomain.Session, error) {
	return s.sessions.ListByUser(ctx, userID)
}

// DeleteSession revokes one of the user's sessions. A session id belonging to
// another user reads as not found.
func (s *Service) DeleteSession(ctx context.Context, userID, sessionID int64) error {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil || sess.UserID != userID {
		return ErrSessionNotFound
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.audit.Record(ctx, userID, 0, "user.session.delete", "", "")
	return nil
}
