// Package auth implements the login, MFA, and account lifecycle flows on top
// of the scope engine and the purpose-tagged token service.
package auth

import (
	"context"
	"log"
	"strings"
	"time"

	backupcodedomain "github.com/worldzhy/newbie.saas/internal/backupcode/domain"
	"github.com/worldzhy/newbie.saas/internal/email"
	"github.com/worldzhy/newbie.saas/internal/geolocation"
	membershipdomain "github.com/worldzhy/newbie.saas/internal/membership/domain"
	"github.com/worldzhy/newbie.saas/internal/mfa/sms"
	"github.com/worldzhy/newbie.saas/internal/scopes"
	"github.com/worldzhy/newbie.saas/internal/security"
	sessiondomain "github.com/worldzhy/newbie.saas/internal/session/domain"
	subnetdomain "github.com/worldzhy/newbie.saas/internal/subnet/domain"
	userdomain "github.com/worldzhy/newbie.saas/internal/user/domain"
)

const (
	emailVerifyTTL = 7 * 24 * time.Hour
	shortTokenTTL  = 30 * time.Minute

	refreshTokenBytes = 64
)

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id int64) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
	Update(ctx context.Context, u *userdomain.User) error
	MergeInto(ctx context.Context, baseID, mergeID int64) error
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	GetByToken(ctx context.Context, token string) (*sessiondomain.Session, error)
	Touch(ctx context.Context, id int64) error
	DeleteByToken(ctx context.Context, token string) error
	DeleteAllByUser(ctx context.Context, userID int64) error
}

// MembershipRepo is the minimal membership repository needed by the auth service.
type MembershipRepo interface {
	ListByUser(ctx context.Context, userID int64) ([]*membershipdomain.Membership, error)
}

// BackupCodeRepo is the minimal backup code repository needed by the auth service.
type BackupCodeRepo interface {
	ListByUser(ctx context.Context, userID int64) ([]*backupcodedomain.BackupCode, error)
	ReplaceForUser(ctx context.Context, userID int64, codeHashes []string) error
	ConsumeIfUnused(ctx context.Context, id int64) (bool, error)
	DeleteAllByUser(ctx context.Context, userID int64) error
}

// SubnetRepo is the minimal approved subnet repository needed by the auth service.
type SubnetRepo interface {
	ListByUser(ctx context.Context, userID int64) ([]*subnetdomain.ApprovedSubnet, error)
	Create(ctx context.Context, s *subnetdomain.ApprovedSubnet) error
}

// Auditor records security events best-effort.
type Auditor interface {
	Record(ctx context.Context, userID, teamID int64, event, ipAddress, userAgent string)
}

// ClientInfo carries per-request client metadata into the service.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// TokenResponse is an issued credential pair.
type TokenResponse struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// LoginResponse is either a finished login (Tokens set) or a pending MFA
// challenge (MfaToken and MfaMethod set).
type LoginResponse struct {
	Tokens    *TokenResponse
	MfaToken  string
	MfaMethod userdomain.MfaMethod
}

// Service implements registration, login, MFA, sessions, and account merging.
type Service struct {
	users       UserRepo
	sessions    SessionRepo
	memberships MembershipRepo
	backupCodes BackupCodeRepo
	subnets     SubnetRepo

	hasher *security.Hasher
	tokens *security.TokenProvider
	mailer email.Mailer
	sms    sms.Sender
	geo    geolocation.Resolver
	audit  Auditor

	accessTTL   time.Duration
	totpSkew    uint
	totpIssuer  string
	frontendURL string
}

// Config bundles the service dependencies.
type Config struct {
	Users       UserRepo
	Sessions    SessionRepo
	Memberships MembershipRepo
	BackupCodes BackupCodeRepo
	Subnets     SubnetRepo

	Hasher *security.Hasher
	Tokens *security.TokenProvider
	Mailer email.Mailer
	SMS    sms.Sender
	Geo    geolocation.Resolver
	Audit  Auditor

	AccessTTL   time.Duration
	TotpSkew    uint
	TotpIssuer  string
	FrontendURL string
}

// NewService returns a Service with the given dependencies. Optional
// collaborators (mailer, SMS, geolocation, auditor) fall back to no-ops.
func NewService(cfg Config) *Service {
	s := &Service{
		users:       cfg.Users,
		sessions:    cfg.Sessions,
		memberships: cfg.Memberships,
		backupCodes: cfg.BackupCodes,
		subnets:     cfg.Subnets,
		hasher:      cfg.Hasher,
		tokens:      cfg.Tokens,
		mailer:      cfg.Mailer,
		sms:         cfg.SMS,
		geo:         cfg.Geo,
		audit:       cfg.Audit,
		accessTTL:   cfg.AccessTTL,
		totpSkew:    cfg.TotpSkew,
		totpIssuer:  cfg.TotpIssuer,
		frontendURL: cfg.FrontendURL,
	}
	if s.mailer == nil {
		s.mailer = email.NoopMailer{}
	}
	if s.sms == nil {
		s.sms = sms.NoopSender{}
	}
	if s.geo == nil {
		s.geo = geolocation.NoopResolver{}
	}
	if s.audit == nil {
		s.audit = noopAuditor{}
	}
	if s.accessTTL <= 0 {
		s.accessTTL = time.Hour
	}
	if s.totpIssuer == "" {
		s.totpIssuer = "newbie"
	}
	return s
}

type noopAuditor struct{}

func (noopAuditor) Record(context.Context, int64, int64, string, string, string) {}

// issueTokens resolves the user's effective scopes, opens a session, and
// signs an access token pinned to it.
func (s *Service) issueTokens(ctx context.Context, user *userdomain.User, info ClientInfo) (*TokenResponse, error) {
	memberships, err := s.memberships.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	granted := scopes.ForUser(user, memberships)

	refreshToken, err := security.RandomToken(refreshTokenBytes)
	if err != nil {
		return nil, err
	}

	session := &sessiondomain.Session{
		UserID:    user.ID,
		Token:     refreshToken,
		IPAddress: info.IPAddress,
		UserAgent: info.UserAgent,
	}
	session.Browser, session.OperatingSystem = parseUserAgent(info.UserAgent)
	if loc, err := s.geo.Lookup(ctx, info.IPAddress); err == nil && loc != nil {
		session.City = loc.City
		session.Region = loc.Region
		session.CountryCode = loc.CountryCode
		session.Timezone = loc.Timezone
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

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

// checkLoginSubnet enforces the location gate for users that opted in. The
// first login from anywhere approves the current subnet; later logins from an
// unknown subnet get an approval email and fail with ErrUnverifiedLocation.
func (s *Service) checkLoginSubnet(ctx context.Context, user *userdomain.User, info ClientInfo) error {
	if !user.CheckLocationOnLogin {
		return nil
	}
	subnet := security.AnonymizeSubnet(info.IPAddress)
	approved, err := s.subnets.ListByUser(ctx, user.ID)
	if err != nil {
		return err
	}
	for _, a := range approved {
		if s.hasher.Matches(a.SubnetHash, []byte(subnet)) {
			return nil
		}
	}
	if len(approved) == 0 {
		return s.approveSubnet(ctx, user.ID, info.IPAddress)
	}

	token, err := s.tokens.SignSubject(security.PurposeApproveSubnet, user.ID, shortTokenTTL)
	if err != nil {
		return err
	}
	s.sendMail(user.Email, "Approve a new login location", email.TemplateApproveSubnet, map[string]string{
		"link": s.frontendURL + "/auth/approve-subnet?token=" + token,
	})
	return ErrUnverifiedLocation
}

// approveSubnet stores the bcrypt hash of the anonymized subnet, skipping
// duplicates.
func (s *Service) approveSubnet(ctx context.Context, userID int64, ipAddress string) error {
	subnet := security.AnonymizeSubnet(ipAddress)
	approved, err := s.subnets.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, a := range approved {
		if s.hasher.Matches(a.SubnetHash, []byte(subnet)) {
			return nil
		}
	}
	hash, err := s.hasher.Hash([]byte(subnet))
	if err != nil {
		return err
	}
	return s.subnets.Create(ctx, &subnetdomain.ApprovedSubnet{UserID: userID, SubnetHash: hash})
}

// sendMail delivers asynchronously; a failure is logged and forgotten.
func (s *Service) sendMail(to, subject, template string, data map[string]string) {
	msg := email.Message{To: to, Subject: subject, Template: template, Data: data}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.mailer.Send(ctx, msg); err != nil {
			log.Printf("auth: send %s email: %v", template, err)
		}
	}()
}

func parseUserAgent(ua string) (browser, operatingSystem string) {
	l := strings.ToLower(ua)
	switch {
	case strings.Contains(l, "edg/"):
		browser = "Edge"
	case strings.Contains(l, "firefox/"):
		browser = "Firefox"
	case strings.Contains(l, "chrome/"):
		browser = "Chrome"
	case strings.Contains(l, "safari/"):
		browser = "Safari"
	case strings.Contains(l, "curl/"):
		browser = "curl"
	}
	switch {
	case strings.Contains(l, "windows"):
		operatingSystem = "Windows"
	case strings.Contains(l, "mac os") || strings.Contains(l, "macintosh"):
		operatingSystem = "macOS"
	case strings.Contains(l, "android"):
		operatingSystem = "Android"
	case strings.Contains(l, "iphone") || strings.Contains(l, "ipad"):
		operatingSystem = "iOS"
	case strings.Contains(l, "linux"):
		operatingSystem = "Linux"
	}
	return browser, operatingSystem
}
