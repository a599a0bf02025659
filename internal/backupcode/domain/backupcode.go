package domain

import "time"

// BackupCode is a single-use MFA recovery code. The plaintext code is shown
// to the user once at generation time; only the bcrypt hash is stored.
type BackupCode struct {
	ID        int64
	UserID    int64
	CodeHash  string
	IsUsed    bool
	CreatedAt time.Time
}
