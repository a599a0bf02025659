package domain

import "time"

// AuditLog represents one audit event.
type AuditLog struct {
	ID        string
	UserID    int64
	TeamID    int64 // 0 for user-only events
	Event     string
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}
