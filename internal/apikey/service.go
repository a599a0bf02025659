// Package apikey manages delegated API key credentials. A key's stored scopes
// are kept a subset of what its owner currently holds: submissions are
// clipped on write, and keys are re-clipped whenever the owner's grants
// shrink.
package apikey

import (
	"context"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/worldzhy/newbie.saas/internal/apikey/domain"
	membershipdomain "github.com/worldzhy/newbie.saas/internal/membership/domain"
	"github.com/worldzhy/newbie.saas/internal/scopes"
	"github.com/worldzhy/newbie.saas/internal/security"
	userdomain "github.com/worldzhy/newbie.saas/internal/user/domain"
)

var (
	// ErrAPIKeyNotFound is returned when no key matches; distinct from a
	// scope denial so callers can tell a bad credential from an unauthorized
	// one.
	ErrAPIKeyNotFound = errors.New("api key not found")
	// ErrOwnerNotFound is returned when the key's owning user does not exist.
	ErrOwnerNotFound = errors.New("api key owner not found")
)

const secretBytes = 64

// Repo is the persistence the service needs.
type Repo interface {
	GetByID(ctx context.Context, id int64) (*domain.APIKey, error)
	GetBySecret(ctx context.Context, secret string) (*domain.APIKey, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.APIKey, error)
	ListByTeam(ctx context.Context, teamID int64) ([]*domain.APIKey, error)
	Create(ctx context.Context, k *domain.APIKey) error
	Update(ctx context.Context, k *domain.APIKey) error
	Delete(ctx context.Context, id int64) error
}

// UserRepo resolves key owners.
type UserRepo interface {
	GetByID(ctx context.Context, id int64) (*userdomain.User, error)
}

// MembershipRepo resolves the owner's memberships for effective-scope checks.
type MembershipRepo interface {
	ListByUser(ctx context.Context, userID int64) ([]*membershipdomain.Membership, error)
}

// Service manages API keys and resolves secrets through an expiring cache.
type Service struct {
	repo        Repo
	users       UserRepo
	memberships MembershipRepo

	// bySecret caches secret lookups. Mutations evict synchronously before
	// returning, so a revoked or re-scoped key never authenticates from a
	// stale entry past the mutation's response.
	bySecret *lru.LRU[string, *domain.APIKey]
}

// NewService returns a Service caching up to cacheSize secret lookups for ttl.
func NewService(repo Repo, users UserRepo, memberships MembershipRepo, cacheSize int, ttl time.Duration) *Service {
	if cacheSize <= 0 {
		cacheSize = 1000
	}
	return &Service{
		repo:        repo,
		users:       users,
		memberships: memberships,
		bySecret:    lru.NewLRU[string, *domain.APIKey](cacheSize, nil, ttl),
	}
}

// GetBySecret resolves an API key credential, serving repeats from cache.
func (s *Service) GetBySecret(ctx context.Context, secret string) (*domain.APIKey, error) {
	if k, ok := s.bySecret.Get(secret); ok {
		return k, nil
	}
	k, err := s.repo.GetBySecret(ctx, secret)
	if err != nil {
		return nil, err
	}
	if k == nil {
		return nil, ErrAPIKeyNotFound
	}
	s.bySecret.Add(secret, k)
	return k, nil
}

// GetByID returns the key, or ErrAPIKeyNotFound.
func (s *Service) GetByID(ctx context.Context, id int64) (*domain.APIKey, error) {
	k, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if k == nil {
		return nil, ErrAPIKeyNotFound
	}
	return k, nil
}

// ListForUser returns the user's personal keys.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]*domain.APIKey, error) {
	all, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	personal := all[:0]
	for _, k := range all {
		if !k.ForTeam() {
			personal = append(personal, k)
		}
	}
	return personal, nil
}

// ListForTeam returns the team's keys.
func (s *Service) ListForTeam(ctx context.Context, teamID int64) ([]*domain.APIKey, error) {
	return s.repo.ListByTeam(ctx, teamID)
}

// CreateForUser mints a personal key. Submitted scopes outside the user's
// personal universe are dropped without error.
func (s *Service) CreateForUser(ctx context.Context, userID int64, name, description string, submitted []string) (*domain.APIKey, error) {
	universe, err := s.userUniverse(ctx, userID)
	if err != nil {
		return nil, err
	}
	secret, err := security.RandomToken(secretBytes)
	if err != nil {
		return nil, err
	}
	k := &domain.APIKey{
		UserID:      userID,
		Name:        name,
		Description: description,
		Key:         secret,
		Scopes:      clip(submitted, universe),
	}
	if err := s.repo.Create(ctx, k); err != nil {
		return nil, err
	}
	return k, nil
}

// CreateForTeam mints a team key owned by userID. Submitted scopes are
// clipped to the team universe.
func (s *Service) CreateForTeam(ctx context.Context, userID, teamID int64, name, description string, submitted []string) (*domain.APIKey, error) {
	universe := scopes.ForTeamKeys(teamID)
	secret, err := security.RandomToken(secretBytes)
	if err != nil {
		return nil, err
	}
	k := &domain.APIKey{
		UserID:      userID,
		TeamID:      teamID,
		Name:        name,
		Description: description,
		Key:         secret,
		Scopes:      clip(submitted, universe),
	}
	if err := s.repo.Create(ctx, k); err != nil {
		return nil, err
	}
	return k, nil
}

// Update renames or re-scopes the key. Scope submissions are clipped against
// the same universe as creation. The cache entry is evicted before returning.
func (s *Service) Update(ctx context.Context, id int64, name, description string, submitted []string) (*domain.APIKey, error) {
	k, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != "" {
		k.Name = name
	}
	if description != "" {
		k.Description = description
	}
	if submitted != nil {
		if k.ForTeam() {
			k.Scopes = clip(submitted, scopes.ForTeamKeys(k.TeamID))
		} else {
			universe, err := s.userUniverse(ctx, k.UserID)
			if err != nil {
				return nil, err
			}
			k.Scopes = clip(submitted, universe)
		}
	}
	if err := s.repo.Update(ctx, k); err != nil {
		return nil, err
	}
	s.bySecret.Remove(k.Key)
	return k, nil
}

// Delete revokes the key. The cache entry is evicted before returning.
func (s *Service) Delete(ctx context.Context, id int64) error {
	k, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.bySecret.Remove(k.Key)
	return nil
}

// RemoveUnauthorizedScopes re-clips every key the user owns after their
// grants changed. Personal keys are clipped to the personal universe; team
// keys additionally to what the owner still holds on that team, so a
// demotion propagates into delegated credentials.
func (s *Service) RemoveUnauthorizedScopes(ctx context.Context, userID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	memberships, err := s.memberships.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	effective := scopes.ForUser(user, memberships)

	keys, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, k := range keys {
		var kept []string
		if k.ForTeam() {
			teamUniverse := scopes.ForTeamKeys(k.TeamID)
			for _, scope := range k.Scopes {
				if _, inTeam := teamUniverse[scope]; inTeam && coveredBy(scope, effective) {
					kept = append(kept, scope)
				}
			}
		} else {
			for _, scope := range k.Scopes {
				if coveredBy(scope, effective) {
					kept = append(kept, scope)
				}
			}
		}
		if len(kept) == len(k.Scopes) {
			continue
		}
		k.Scopes = kept
		if err := s.repo.Update(ctx, k); err != nil {
			return err
		}
		s.bySecret.Remove(k.Key)
	}
	return nil
}

// CleanAllForUser re-clips the user's keys and drops all of their cache
// entries, used when an account is merged or deactivated.
func (s *Service) CleanAllForUser(ctx context.Context, userID int64) error {
	if err := s.RemoveUnauthorizedScopes(ctx, userID); err != nil {
		return err
	}
	keys, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, k := range keys {
		s.bySecret.Remove(k.Key)
	}
	return nil
}

func (s *Service) userUniverse(ctx context.Context, userID int64) (map[string]string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrOwnerNotFound
	}
	return scopes.ForUserKeys(user), nil
}

func clip(submitted []string, universe map[string]string) []string {
	var kept []string
	for _, scope := range submitted {
		if _, ok := universe[scope]; ok {
			kept = append(kept, scope)
		}
	}
	return kept
}

func coveredBy(scope string, granted []string) bool {
	for _, g := range granted {
		if scopes.Match(g, scope) {
			return true
		}
	}
	return false
}
