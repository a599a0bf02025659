// Package team implements team lifecycle. Creating a team makes the creator
// its OWNER; deleting a team revokes every member's sessions and re-clips
// their API keys.
package team

import (
	"context"
	"errors"

	membershipdomain "github.com/worldzhy/newbie.saas/internal/membership/domain"
	"github.com/worldzhy/newbie.saas/internal/security"
	"github.com/worldzhy/newbie.saas/internal/team/domain"
)

// ErrTeamNotFound is returned when no team matches.
var ErrTeamNotFound = errors.New("team not found")

// Repo is the persistence the service needs.
type Repo interface {
	GetByID(ctx context.Context, id int64) (*domain.Team, error)
	Create(ctx context.Context, t *domain.Team) error
	Update(ctx context.Context, t *domain.Team) error
	Delete(ctx context.Context, id int64) error
}

// MembershipRepo creates the owner membership and enumerates members for the
// delete hooks.
type MembershipRepo interface {
	Create(ctx context.Context, m *membershipdomain.Membership) error
	ListByTeam(ctx context.Context, teamID int64) ([]*membershipdomain.Membership, error)
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

// Service implements team CRUD.
type Service struct {
	teams       Repo
	memberships MembershipRepo
	sessions    SessionRepo
	sanitizer   Sanitizer
	audit       Auditor
}

// NewService returns a team Service.
func NewService(teams Repo, memberships MembershipRepo, sessions SessionRepo, sanitizer Sanitizer, audit Auditor) *Service {
	if audit == nil {
		audit = noopAuditor{}
	}
	return &Service{
		teams:       teams,
		memberships: memberships,
		sessions:    sessions,
		sanitizer:   sanitizer,
		audit:       audit,
	}
}

type noopAuditor struct{}

func (noopAuditor) Record(context.Context, int64, int64, string, string, string) {}

// Create makes a team with ownerUserID as its first OWNER.
func (s *Service) Create(ctx context.Context, ownerUserID int64, name string) (*domain.Team, error) {
	id, err := security.RandomRecordID()
	if err != nil {
		return nil, err
	}
	team := &domain.Team{ID: id, Name: name}
	if err := team.Validate(); err != nil {
		return nil, err
	}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, err
	}
	owner := &membershipdomain.Membership{
		UserID: ownerUserID,
		TeamID: team.ID,
		Role:   membershipdomain.RoleOwner,
	}
	if err := s.memberships.Create(ctx, owner); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, ownerUserID, team.ID, "team.create", "", "")
	return team, nil
}

// Get returns the team, or ErrTeamNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Team, error) {
	team, err := s.teams.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, ErrTeamNotFound
	}
	return team, nil
}

// Update renames the team.
func (s *Service) Update(ctx context.Context, id int64, name string) (*domain.Team, error) {
	team, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != "" {
		team.Name = name
	}
	if err := s.teams.Update(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

// Delete removes the team. Memberships and team API keys go with it, and each
// former member's sessions are revoked so stale team scopes die with the team.
func (s *Service) Delete(ctx context.Context, id int64) error {
	team, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	members, err := s.memberships.ListByTeam(ctx, team.ID)
	if err != nil {
		return err
	}
	if err := s.teams.Delete(ctx, team.ID); err != nil {
		return err
	}
	for _, m := range members {
		if err := s.sessions.DeleteAllByUser(ctx, m.UserID); err != nil {
			return err
		}
		if err := s.sanitizer.RemoveUnauthorizedScopes(ctx, m.UserID); err != nil {
			return err
		}
	}
	s.audit.Record(ctx, 0, team.ID, "team.delete", "", "")
	return nil
}
