package auth

import "errors"

// Sentinel errors for the auth service; the HTTP layer maps them to status codes.
var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrUnverifiedEmail       = errors.New("email is not verified")
	ErrUnverifiedLocation    = errors.New("location is not verified")
	ErrMfaNotEnabled         = errors.New("multi-factor authentication is not enabled")
	ErrInvalidMfaCode        = errors.New("invalid one-time or backup code")
	ErrMfaBackupCodeUsed     = errors.New("backup code has already been used")
	ErrMfaPhoneNotFound      = errors.New("no phone number on file for SMS codes")
	ErrSessionNotFound       = errors.New("session not found")
	ErrNoToken               = errors.New("no token provided")
	ErrUserNotFound          = errors.New("user not found")
	ErrEmailConflict         = errors.New("email already registered")
	ErrEmailVerifiedConflict = errors.New("email is already verified")
	ErrMfaEnabledConflict    = errors.New("multi-factor authentication is already enabled")
)
