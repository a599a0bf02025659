package repository

import (
	"context"

	"github.com/worldzhy/newbie.saas/internal/backupcode/domain"
)

// Repository defines persistence for MFA backup codes.
type Repository interface {
	ListByUser(ctx context.Context, userID int64) ([]*domain.BackupCode, error)
	// ReplaceForUser atomically deletes the user's existing codes and inserts
	// the given hashes as fresh unused codes.
	ReplaceForUser(ctx context.Context, userID int64, codeHashes []string) error
	// ConsumeIfUnused marks the code used. Returns true if this call did the
	// marking, false if the code was already used: at most one concurrent
	// login can win a given code.
	ConsumeIfUnused(ctx context.Context, id int64) (bool, error)
	DeleteAllByUser(ctx context.Context, userID int64) error
}
