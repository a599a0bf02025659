// Package email delivers transactional emails. Senders are fire and forget
// from the caller's point of view: a failed delivery is logged, never
// propagated into an authentication flow.
package email

import "context"

// Message is a templated email. Data fills template placeholders on the
// delivery side.
type Message struct {
	To       string
	Subject  string
	Template string
	Data     map[string]string
}

// Well-known template names.
const (
	TemplateEmailVerify     = "auth/email-verify"
	TemplateEmailMfa        = "auth/email-mfa"
	TemplatePasswordReset   = "auth/password-reset"
	TemplatePasswordChanged = "auth/password-changed"
	TemplateApproveSubnet   = "auth/approve-subnet"
	TemplateBackupCodeUsed  = "auth/backup-code-used"
)

// Mailer delivers a message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NoopMailer drops messages; used in development and tests.
type NoopMailer struct{}

func (NoopMailer) Send(context.Context, Message) error { return nil }
