package domain

import (
	"errors"
	"strings"
	"time"
)

// User is the core user entity and one of the two principal kinds.
type User struct {
	ID                   int64
	Name                 string
	Email                string
	EmailSafe            string // normalized form used for lookups
	EmailVerified        bool
	PasswordHash         string // empty for federated-only accounts
	Role                 Role
	MfaMethod            MfaMethod
	MfaSecret            string // base32 TOTP secret; empty when MFA was never set up
	MfaPhone             string // phone number for SMS MFA
	CheckLocationOnLogin bool
	Active               bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Role is the platform-wide user role. SUDO bypasses scope checks entirely.
type Role string

const (
	RoleRegular Role = "REGULAR"
	RoleSudo    Role = "SUDO"
)

// MfaMethod selects the second factor required at login.
type MfaMethod string

const (
	MfaNone  MfaMethod = "NONE"
	MfaTotp  MfaMethod = "TOTP"
	MfaSms   MfaMethod = "SMS"
	MfaEmail MfaMethod = "EMAIL"
)

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.EmailSafe == "" {
		u.EmailSafe = SafeEmail(u.Email)
	}
	if u.Role == "" {
		u.Role = RoleRegular
	}
	if u.MfaMethod == "" {
		u.MfaMethod = MfaNone
	}
	return nil
}

// SafeEmail normalizes an email address for lookups: lowercased, with any
// +suffix and, for Gmail-style addresses, dots in the local part removed.
func SafeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	local, domain := email[:at], email[at+1:]
	if plus := strings.Index(local, "+"); plus >= 0 {
		local = local[:plus]
	}
	if domain == "gmail.com" || domain == "googlemail.com" {
		local = strings.ReplaceAll(local, ".", "")
	}
	return local + "@" + domain
}
