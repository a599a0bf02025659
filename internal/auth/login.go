package auth

import (
	"context"
	"time"

	"github.com/worldzhy/newbie.saas/internal/email"
	"github.com/worldzhy/newbie.saas/internal/mfa"
	"github.com/worldzhy/newbie.saas/internal/scopes"
	"github.com/worldzhy/newbie.saas/internal/security"
	userdomain "github.com/worldzhy/newbie.saas/internal/user/domain"
)

// Register creates a user account, approves the registration subnet, and
// sends a verification email valid for seven days.
func (s *Service) Register(ctx context.Context, info ClientInfo, name, emailAddress, password string) (*userdomain.User, error) {
	existing, err := s.users.GetByEmail(ctx, emailAddress)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailConflict
	}

	id, err := security.RandomRecordID()
	if err != nil {
		return nil, err
	}
	user := &userdomain.User{
		ID:     id,
		Name:   name,
		Email:  emailAddress,
		Role:   userdomain.RoleRegular,
		Active: true,
	}
	if password != "" {
		hash, err := s.hasher.Hash([]byte(password))
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if info.IPAddress != "" {
		if err := s.approveSubnet(ctx, user.ID, info.IPAddress); err != nil {
			return nil, err
		}
	}

	if token, err := s.tokens.SignSubject(security.PurposeEmailVerify, user.ID, emailVerifyTTL); err == nil {
		s.sendMail(user.Email, "Verify your email", email.TemplateEmailVerify, map[string]string{
			"name": user.Name,
			"link": s.frontendURL + "/auth/verify-email?token=" + token,
		})
	}

	s.audit.Record(ctx, user.ID, 0, "auth.register", info.IPAddress, info.UserAgent)
	return user, nil
}

// Login authenticates with email and password. When the account has MFA
// enabled and no code is supplied, the response carries a challenge token
// instead of credentials; a TOTP or backup code in the same call takes the
// fast path. federated skips the password compare for callers that have
// already proven the identity against an external provider; it must never be
// set from unauthenticated client input.
func (s *Service) Login(ctx context.Context, info ClientInfo, emailAddress, password, code string, federated bool) (*LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, emailAddress)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	// Logging in reactivates a deactivated account.
	if !user.Active {
		user.Active = true
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
	}

	if !user.EmailVerified {
		return nil, ErrUnverifiedEmail
	}
	if !federated {
		// An account without a stored hash has no password to log in with.
		if user.PasswordHash == "" || !s.hasher.Matches(user.PasswordHash, []byte(password)) {
			return nil, ErrInvalidCredentials
		}
	}

	if user.MfaMethod != userdomain.MfaNone {
		if code != "" {
			if err := s.verifyMfaCode(ctx, user, code); err != nil {
				return nil, err
			}
		} else {
			return s.beginMfaChallenge(ctx, user)
		}
	}

	if err := s.checkLoginSubnet(ctx, user, info); err != nil {
		return nil, err
	}

	tokens, err := s.issueTokens(ctx, user, info)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, user.ID, 0, "auth.login", info.IPAddress, info.UserAgent)
	return &LoginResponse{Tokens: tokens}, nil
}

// beginMfaChallenge signs a challenge token and triggers the per-method side
// effect: an SMS code or an email magic link. TOTP needs no delivery.
func (s *Service) beginMfaChallenge(ctx context.Context, user *userdomain.User) (*LoginResponse, error) {
	switch user.MfaMethod {
	case userdomain.MfaSms:
		if user.MfaPhone == "" {
			return nil, ErrMfaPhoneNotFound
		}
		code, err := mfa.CurrentTotpCode(user.MfaSecret)
		if err != nil {
			return nil, err
		}
		if err := s.sms.SendOTP(user.MfaPhone, code); err != nil {
			return nil, err
		}
	case userdomain.MfaEmail:
		token, err := s.tokens.SignSubject(security.PurposeEmailMfa, user.ID, shortTokenTTL)
		if err != nil {
			return nil, err
		}
		s.sendMail(user.Email, "Your login link", email.TemplateEmailMfa, map[string]string{
			"link": s.frontendURL + "/auth/login-link?token=" + token,
		})
	}

	challenge, err := s.tokens.SignMfaChallenge(user.ID, string(user.MfaMethod), shortTokenTTL)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{MfaToken: challenge, MfaMethod: user.MfaMethod}, nil
}

// LoginWithTotp completes an MFA challenge with a TOTP or backup code.
func (s *Service) LoginWithTotp(ctx context.Context, info ClientInfo, challengeToken, code string) (*TokenResponse, error) {
	userID, _, err := s.tokens.VerifyMfaChallenge(challengeToken)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if err := s.verifyMfaCode(ctx, user, code); err != nil {
		return nil, err
	}
	if err := s.checkLoginSubnet(ctx, user, info); err != nil {
		return nil, err
	}
	tokens, err := s.issueTokens(ctx, user, info)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, user.ID, 0, "auth.login.mfa", info.IPAddress, info.UserAgent)
	return tokens, nil
}

// LoginWithEmailToken completes an email MFA challenge from a magic link.
// The link proves mailbox access, so the current subnet is approved as well.
func (s *Service) LoginWithEmailToken(ctx context.Context, info ClientInfo, token string) (*TokenResponse, error) {
	userID, err := s.tokens.VerifySubject(security.PurposeEmailMfa, token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if info.IPAddress != "" {
		if err := s.approveSubnet(ctx, user.ID, info.IPAddress); err != nil {
			return nil, err
		}
	}
	tokens, err := s.issueTokens(ctx, user, info)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, user.ID, 0, "auth.login.email-mfa", info.IPAddress, info.UserAgent)
	return tokens, nil
}

// Refresh exchanges a refresh token for a fresh access token. The refresh
// token itself is kept; session deletion is the revocation mechanism.
func (s *Service) Refresh(ctx context.Context, info ClientInfo, refreshToken string) (*TokenResponse, error) {
	if refreshToken == "" {
		return nil, ErrNoToken
	}
	session, err := s.sessions.GetByToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if err := s.sessions.Touch(ctx, session.ID); err != nil {
		return nil, err
	}

	memberships, err := s.memberships.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	granted := scopes.ForUser(user, memberships)
	expiresAt := time.Now().UTC().Add(s.accessTTL)
	accessToken, err := s.tokens.SignAccess(security.PrincipalUser, user.ID, granted,
		session.ID, string(user.Role), s.accessTTL)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

// Logout revokes the session holding the refresh token.
func (s *Service) Logout(ctx context.Context, info ClientInfo, refreshToken string) error {
	if refreshToken == "" {
		return ErrNoToken
	}
	session, err := s.sessions.GetByToken(ctx, refreshToken)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if err := s.sessions.DeleteByToken(ctx, refreshToken); err != nil {
		return err
	}
	s.audit.Record(ctx, session.UserID, 0, "auth.logout", info.IPAddress, info.UserAgent)
	return nil
}

// ApproveSubnet approves the current subnet using an emailed approval token,
// then finishes the login that was blocked.
func (s *Service) ApproveSubnet(ctx context.Context, info ClientInfo, token string) (*TokenResponse, error) {
	userID, err := s.tokens.VerifySubject(security.PurposeApproveSubnet, token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if err := s.approveSubnet(ctx, user.ID, info.IPAddress); err != nil {
		return nil, err
	}
	tokens, err := s.issueTokens(ctx, user, info)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, user.ID, 0, "auth.approve-subnet", info.IPAddress, info.UserAgent)
	return tokens, nil
}

// VerifyEmail marks the account's email verified and logs the user in.
func (s *Service) VerifyEmail(ctx context.Context, info ClientInfo, token string) (*TokenResponse, error) {
	userID, err := s.tokens.VerifySubject(security.PurposeEmailVerify, token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.EmailVerified {
		user.EmailVerified = true
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
	}
	tokens, err := s.issueTokens(ctx, user, info)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, user.ID, 0, "auth.verify-email", info.IPAddress, info.UserAgent)
	return tokens, nil
}

// SendEmailVerification re-sends the verification email.
func (s *Service) SendEmailVerification(ctx context.Context, emailAddress string) error {
	user, err := s.users.GetByEmail(ctx, emailAddress)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.EmailVerified {
		return ErrEmailVerifiedConflict
	}
	token, err := s.tokens.SignSubject(security.PurposeEmailVerify, user.ID, emailVerifyTTL)
	if err != nil {
		return err
	}
	s.sendMail(user.Email, "Verify your email", email.TemplateEmailVerify, map[string]string{
		"name": user.Name,
		"link": s.frontendURL + "/auth/verify-email?token=" + token,
	})
	return nil
}

// RequestPasswordReset sends a reset link valid for thirty minutes.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddress string) error {
	user, err := s.users.GetByEmail(ctx, emailAddress)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	token, err := s.tokens.SignSubject(security.PurposePasswordReset, user.ID, shortTokenTTL)
	if err != nil {
		return err
	}
	s.sendMail(user.Email, "Reset your password", email.TemplatePasswordReset, map[string]string{
		"name": user.Name,
		"link": s.frontendURL + "/auth/reset-password?token=" + token,
	})
	return nil
}

// ResetPassword sets a new password from a reset token, approves the current
// subnet, notifies the user, and logs them in.
func (s *Service) ResetPassword(ctx context.Context, info ClientInfo, token, newPassword string) (*TokenResponse, error) {
	userID, err := s.tokens.VerifySubject(security.PurposePasswordReset, token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	hash, err := s.hasher.Hash([]byte(newPassword))
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	if info.IPAddress != "" {
		if err := s.approveSubnet(ctx, user.ID, info.IPAddress); err != nil {
			return nil, err
		}
	}
	s.sendMail(user.Email, "Your password was changed", email.TemplatePasswordChanged, map[string]string{
		"name": user.Name,
	})
	tokens, err := s.issueTokens(ctx, user, info)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, user.ID, 0, "auth.password-reset", info.IPAddress, info.UserAgent)
	return tokens, nil
}
