// Package audit records security events. Writes are best effort: an audit
// failure is logged, never surfaced to the flow that produced the event.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/worldzhy/newbie.saas/internal/audit/domain"
	"github.com/worldzhy/newbie.saas/internal/audit/repository"
)

// Logger writes audit events through a repository.
type Logger struct {
	repo repository.Repository
}

// NewLogger returns a Logger backed by repo.
func NewLogger(repo repository.Repository) *Logger {
	return &Logger{repo: repo}
}

// Record persists the event asynchronously. teamID 0 means a user-only event.
func (l *Logger) Record(ctx context.Context, userID, teamID int64, event, ipAddress, userAgent string) {
	entry := &domain.AuditLog{
		UserID:    userID,
		TeamID:    teamID,
		Event:     event,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
	go func() {
		writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := l.repo.Create(writeCtx, entry); err != nil {
			log.Printf("audit: record %s: %v", event, err)
		}
	}()
}
