package auth

import (
	"context"
)

// RequestMergeAccounts emails the owner of emailAddress a merge token that
// authorizes folding that account into the requesting user's account.
func (s *Service) RequestMergeAccounts(ctx context.Context, baseUserID int64, emailAddress string) error {
	mergeUser, err := s.users.GetByEmail(ctx, emailAddress)
	if err != nil {
		return err
	}
	if mergeUser == nil {
		return ErrUserNotFound
	}
	token, err := s.tokens.SignMerge(baseUserID, mergeUser.ID, shortTokenTTL)
	if err != nil {
		return err
	}
	s.sendMail(mergeUser.Email, "Merge your accounts", "auth/merge-accounts", map[string]string{
		"name": mergeUser.Name,
		"link": s.frontendURL + "/auth/merge-accounts?token=" + token,
	})
	return nil
}

// MergeAccounts folds the merged account into the base account: memberships,
// sessions, API keys, backup codes, subnets, and audit history move over in
// one transaction, and the merged user is deleted. A failure anywhere leaves
// both accounts untouched.
func (s *Service) MergeAccounts(ctx context.Context, info ClientInfo, token string) error {
	baseUserID, mergeUserID, err := s.tokens.VerifyMerge(token)
	if err != nil {
		return err
	}
	base, err := s.users.GetByID(ctx, baseUserID)
	if err != nil {
		return err
	}
	merge, err := s.users.GetByID(ctx, mergeUserID)
	if err != nil {
		return err
	}
	if base == nil || merge == nil {
		return ErrUserNotFound
	}
	if err := s.users.MergeInto(ctx, baseUserID, mergeUserID); err != nil {
		return err
	}
	s.audit.Record(ctx, baseUserID, 0, "auth.merge-accounts", info.IPAddress, info.UserAgent)
	return nil
}
