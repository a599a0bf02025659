// Package membership implements team membership management. Two invariants
// hold at all times: a team keeps at least one membership, and at least one of
// them is an OWNER.
package membership

import (
	"context"
	"errors"

	"github.com/worldzhy/newbie.saas/internal/membership/domain"
)

var (
	// ErrMembershipNotFound is returned when no membership matches.
	ErrMembershipNotFound = errors.New("membership not found")
	// ErrCannotDeleteSoleMember rejects deleting a team's last membership.
	ErrCannotDeleteSoleMember = errors.New("cannot delete the only membership of a team")
	// ErrCannotDeleteSoleOwner rejects deleting a team's last OWNER.
	ErrCannotDeleteSoleOwner = errors.New("cannot delete the only owner of a team")
	// ErrCannotUpdateRoleSoleOwner rejects demoting a team's last OWNER.
	ErrCannotUpdateRoleSoleOwner = errors.New("cannot change the role of the only owner of a team")
)

// Repo is the persistence the service needs.
type Repo interface {
	GetByID(ctx context.Context, id int64) (*domain.Membership, error)
	GetByUserAndTeam(ctx context.Context, userID, teamID int64) (*domain.Membership, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.Membership, error)
	ListByTeam(ctx context.Context, teamID int64) ([]*domain.Membership, error)
	Create(ctx context.Context, m *domain.Membership) error
	UpdateRole(ctx context.Context, id int64, role domain.Role) error
	Delete(ctx context.Context, id int64) error
	CountByTeam(ctx context.Context, teamID int64) (int, error)
	CountOwnersByTeam(ctx context.Context, teamID int64) (int, error)
}

// SessionRepo revokes a member's sessions when their grants change.
type SessionRepo interface {
	DeleteAllByUser(ctx context.Context, userID int64) error
}

// Sanitizer re-clips a user's API keys after their grants shrink.
type Sanitizer interface {
	RemoveUnauthorizedScopes(ctx context.Context, userID int64) error
}

// Auditor records security events best-effort.
type Auditor interface {
	Record(ctx context.Context, userID, teamID int64, event, ipAddress, userAgent string)
}

// Service implements membership CRUD with the team invariants.
type Service struct {
	memberships Repo
	sessions    SessionRepo
	sanitizer   Sanitizer
	audit       Auditor
}

// NewService returns a membership Service.
func NewService(memberships Repo, sessions SessionRepo, sanitizer Sanitizer, audit Auditor) *Service {
	if audit == nil {
		audit = noopAuditor{}
	}
	return &Service{
		memberships: memberships,
		sessions:    sessions,
		sanitizer:   sanitizer,
		audit:       audit,
	}
}

type noopAuditor struct{}

func (noopAuditor) Record(context.Context, int64, int64, string, string, string) {}

// Get returns the membership, or ErrMembershipNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Membership, error) {
	m, err := s.memberships.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrMembershipNotFound
	}
	return m, nil
}

// ListForUser returns the user's memberships across teams.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]*domain.Membership, error) {
	return s.memberships.ListByUser(ctx, userID)
}

// ListForTeam returns the team's memberships.
func (s *Service) ListForTeam(ctx context.Context, teamID int64) ([]*domain.Membership, error) {
	return s.memberships.ListByTeam(ctx, teamID)
}

// Add joins userID to teamID. An empty role defaults to MEMBER. Gaining scopes
// needs no session revocation; the wider grant lands on the next refresh.
func (s *Service) Add(ctx context.Context, teamID, userID int64, role domain.Role) (*domain.Membership, error) {
	if role == "" {
		role = domain.RoleMember
	}
	m := &domain.Membership{UserID: userID, TeamID: teamID, Role: role}
	if err := s.memberships.Create(ctx, m); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, userID, teamID, "membership.create", "", "")
	return m, nil
}

// UpdateRole changes the membership's role. Demoting the last OWNER is
// rejected. A role change revokes the member's sessions and re-clips their
// API keys, so a downgrade takes effect immediately rather than at token
// expiry.
func (s *Service) UpdateRole(ctx context.Context, id int64, role domain.Role) (*domain.Membership, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Role == role {
		return m, nil
	}
	if m.Role == domain.RoleOwner {
		owners, err := s.memberships.CountOwnersByTeam(ctx, m.TeamID)
		if err != nil {
			return nil, err
		}
		if owners <= 1 {
			return nil, ErrCannotUpdateRoleSoleOwner
		}
	}
	if err := s.memberships.UpdateRole(ctx, id, role); err != nil {
		return nil, err
	}
	m.Role = role
	if err := s.sessions.DeleteAllByUser(ctx, m.UserID); err != nil {
		return nil, err
	}
	if err := s.sanitizer.RemoveUnauthorizedScopes(ctx, m.UserID); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, m.UserID, m.TeamID, "membership.update-role", "", "")
	return m, nil
}

// Delete removes the membership, refusing to empty the team or orphan it
// without an OWNER. The former member's sessions are revoked and their API
// keys re-clipped.
func (s *Service) Delete(ctx context.Context, id int64) error {
	m, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	total, err := s.memberships.CountByTeam(ctx, m.TeamID)
	if err != nil {
		return err
	}
	if total <= 1 {
		return ErrCannotDeleteSoleMember
	}
	if m.Role == domain.RoleOwner {
		owners, err := s.memberships.CountOwnersByTeam(ctx, m.TeamID)
		if err != nil {
			return err
		}
		if owners <= 1 {
			return ErrCannotDeleteSoleOwner
		}
	}
	if err := s.memberships.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.sessions.DeleteAllByUser(ctx, m.UserID); err != nil {
		return err
	}
	if err := s.sanitizer.RemoveUnauthorizedScopes(ctx, m.UserID); err != nil {
		return err
	}
	s.audit.Record(ctx, m.UserID, m.TeamID, "membership.delete", "", "")
	return nil
}
