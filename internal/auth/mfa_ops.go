package auth

import (
	"context"

	"github.com/worldzhy/newbie.saas/internal/email"
	"github.com/worldzhy/newbie.saas/internal/mfa"
	userdomain "github.com/worldzhy/newbie.saas/internal/user/domain"
)

// verifyMfaCode accepts either the current TOTP code or an unused backup
// code. A backup code is burned on use; handing in a burned code is reported
// distinctly from a wrong code.
func (s *Service) verifyMfaCode(ctx context.Context, user *userdomain.User, code string) error {
	if user.MfaMethod == userdomain.MfaNone && user.MfaSecret == "" {
		return ErrMfaNotEnabled
	}
	if user.MfaSecret != "" && mfa.VerifyTotp(code, user.MfaSecret, s.totpSkew) {
		return nil
	}

	codes, err := s.backupCodes.ListByUser(ctx, user.ID)
	if err != nil {
		return err
	}
	for _, c := range codes {
		if !s.hasher.Matches(c.CodeHash, []byte(code)) {
			continue
		}
		if c.IsUsed {
			return ErrMfaBackupCodeUsed
		}
		consumed, err := s.backupCodes.ConsumeIfUnused(ctx, c.ID)
		if err != nil {
			return err
		}
		if !consumed {
			// Lost the race against a concurrent login with the same code.
			return ErrMfaBackupCodeUsed
		}
		s.sendMail(user.Email, "A backup code was used", email.TemplateBackupCodeUsed, map[string]string{
			"name": user.Name,
		})
		return nil
	}
	return ErrInvalidMfaCode
}

// GetTotpQrCode starts TOTP enrollment: it stores a fresh secret (unless MFA
// is already on) and returns the otpauth:// URL to render as a QR code.
func (s *Service) GetTotpQrCode(ctx context.Context, userID int64) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrUserNotFound
	}
	if user.MfaMethod != userdomain.MfaNone {
		return "", ErrMfaEnabledConflict
	}
	enrollment, err := mfa.GenerateTotpSecret(s.totpIssuer, user.Email)
	if err != nil {
		return "", err
	}
	user.MfaSecret = enrollment.Secret
	if err := s.users.Update(ctx, user); err != nil {
		return "", err
	}
	return enrollment.URL, nil
}

// EnableMfaMethod turns MFA on once the user proves possession of the secret
// with a valid code. All sessions are revoked so every device re-authenticates
// through the second factor. Returns the plaintext backup codes, shown once.
func (s *Service) EnableMfaMethod(ctx context.Context, userID int64, method userdomain.MfaMethod, phone, code string) ([]string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.MfaMethod != userdomain.MfaNone {
		return nil, ErrMfaEnabledConflict
	}
	if user.MfaSecret == "" {
		return nil, ErrMfaNotEnabled
	}
	if method == userdomain.MfaSms {
		if phone == "" {
			return nil, ErrMfaPhoneNotFound
		}
		user.MfaPhone = phone
	}
	if !mfa.VerifyTotp(code, user.MfaSecret, s.totpSkew) {
		return nil, ErrInvalidMfaCode
	}

	batch, err := mfa.GenerateBackupCodes(s.hasher)
	if err != nil {
		return nil, err
	}
	if err := s.backupCodes.ReplaceForUser(ctx, userID, batch.Hashes); err != nil {
		return nil, err
	}

	user.MfaMethod = method
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	if err := s.sessions.DeleteAllByUser(ctx, userID); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, userID, 0, "auth.mfa.enable", "", "")
	return batch.Plaintext, nil
}

// DisableMfa turns MFA off, deletes backup codes, and revokes all sessions.
func (s *Service) DisableMfa(ctx context.Context, userID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if user.MfaMethod == userdomain.MfaNone {
		return ErrMfaNotEnabled
	}
	user.MfaMethod = userdomain.MfaNone
	user.MfaSecret = ""
	user.MfaPhone = ""
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	if err := s.backupCodes.DeleteAllByUser(ctx, userID); err != nil {
		return err
	}
	if err := s.sessions.DeleteAllByUser(ctx, userID); err != nil {
		return err
	}
	s.audit.Record(ctx, userID, 0, "auth.mfa.disable", "", "")
	return nil
}

// RegenerateBackupCodes replaces the batch and returns the new plaintext
// codes, shown once.
func (s *Service) RegenerateBackupCodes(ctx context.Context, userID int64) ([]string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.MfaMethod == userdomain.MfaNone {
		return nil, ErrMfaNotEnabled
	}
	batch, err := mfa.GenerateBackupCodes(s.hasher)
	if err != nil {
		return nil, err
	}
	if err := s.backupCodes.ReplaceForUser(ctx, userID, batch.Hashes); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, userID, 0, "auth.mfa.regenerate-backup-codes", "", "")
	return batch.Plaintext, nil
}
