package auth

import (
	"context"
	"testing"
	"time"

	backupcodedomain "github.com/worldzhy/newbie.saas/internal/backupcode/domain"
	membershipdomain "github.com/worldzhy/newbie.saas/internal/membership/domain"
	"github.com/worldzhy/newbie.saas/internal/mfa"
	"github.com/worldzhy/newbie.saas/internal/security"
	sessiondomain "github.com/worldzhy/newbie.saas/internal/session/domain"
	subnetdomain "github.com/worldzhy/newbie.saas/internal/subnet/domain"
	userdomain "github.com/worldzhy/newbie.saas/internal/user/domain"
)

type userStore struct {
	users map[int64]*userdomain.User
}

func (s *userStore) GetByID(_ context.Context, id int64) (*userdomain.User, error) {
	if u, ok := s.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (s *userStore) GetByEmail(_ context.Context, email string) (*userdomain.User, error) {
	safe := userdomain.SafeEmail(email)
	for _, u := range s.users {
		if u.EmailSafe == safe {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *userStore) Create(_ context.Context, u *userdomain.User) error {
	copied := *u
	s.users[u.ID] = &copied
	return nil
}

func (s *userStore) Update(_ context.Context, u *userdomain.User) error {
	copied := *u
	s.users[u.ID] = &copied
	return nil
}

func (s *userStore) MergeInto(_ context.Context, baseID, mergeID int64) error {
	delete(s.users, mergeID)
	return nil
}

type sessionStore struct {
	nextID   int64
	sessions map[int64]*sessiondomain.Session
}

func (s *sessionStore) Create(_ context.Context, sess *sessiondomain.Session) error {
	s.nextID++
	sess.ID = s.nextID
	copied := *sess
	s.sessions[sess.ID] = &copied
	return nil
}

func (s *sessionStore) GetByToken(_ context.Context, token string) (*sessiondomain.Session, error) {
	for _, sess := range s.sessions {
		if sess.Token == token {
			copied := *sess
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *sessionStore) Touch(_ context.Context, id int64) error {
	if sess, ok := s.sessions[id]; ok {
		sess.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (s *sessionStore) DeleteByToken(_ context.Context, token string) error {
	for id, sess := range s.sessions {
		if sess.Token == token {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *sessionStore) DeleteAllByUser(_ context.Context, userID int64) error {
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

type membershipStore struct {
	byUser map[int64][]*membershipdomain.Membership
}

func (s *membershipStore) ListByUser(_ context.Context, userID int64) ([]*membershipdomain.Membership, error) {
	return s.byUser[userID], nil
}

type backupCodeStore struct {
	nextID int64
	codes  map[int64]*backupcodedomain.BackupCode
}

func (s *backupCodeStore) ListByUser(_ context.Context, userID int64) ([]*backupcodedomain.BackupCode, error) {
	var out []*backupcodedomain.BackupCode
	for _, c := range s.codes {
		if c.UserID == userID {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *backupCodeStore) ReplaceForUser(_ context.Context, userID int64, codeHashes []string) error {
	for id, c := range s.codes {
		if c.UserID == userID {
			delete(s.codes, id)
		}
	}
	for _, hash := range codeHashes {
		s.nextID++
		s.codes[s.nextID] = &backupcodedomain.BackupCode{ID: s.nextID, UserID: userID, CodeHash: hash}
	}
	return nil
}

func (s *backupCodeStore) ConsumeIfUnused(_ context.Context, id int64) (bool, error) {
	c, ok := s.codes[id]
	if !ok || c.IsUsed {
		return false, nil
	}
	c.IsUsed = true
	return true, nil
}

func (s *backupCodeStore) DeleteAllByUser(_ context.Context, userID int64) error {
	for id, c := range s.codes {
		if c.UserID == userID {
			delete(s.codes, id)
		}
	}
	return nil
}

type subnetStore struct {
	nextID  int64
	subnets map[int64]*subnetdomain.ApprovedSubnet
}

func (s *subnetStore) ListByUser(_ context.Context, userID int64) ([]*subnetdomain.ApprovedSubnet, error) {
	var out []*subnetdomain.ApprovedSubnet
	for _, a := range s.subnets {
		if a.UserID == userID {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *subnetStore) Create(_ context.Context, a *subnetdomain.ApprovedSubnet) error {
	s.nextID++
	a.ID = s.nextID
	copied := *a
	s.subnets[a.ID] = &copied
	return nil
}

type recordingSMS struct {
	sent []string
}

func (s *recordingSMS) SendOTP(phone, otp string) error {
	s.sent = append(s.sent, phone+":"+otp)
	return nil
}

type recordingAuditor struct {
	events []string
}

func (a *recordingAuditor) Record(_ context.Context, _, _ int64, event, _, _ string) {
	a.events = append(a.events, event)
}

type authEnv struct {
	svc         *Service
	users       *userStore
	sessions    *sessionStore
	memberships *membershipStore
	backupCodes *backupCodeStore
	subnets     *subnetStore
	sms         *recordingSMS
	audit       *recordingAuditor
	tokens      *security.TokenProvider
	hasher      *security.Hasher
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("test token provider: %v", err)
	}
	env := &authEnv{
		users:       &userStore{users: map[int64]*userdomain.User{}},
		sessions:    &sessionStore{sessions: map[int64]*sessiondomain.Session{}},
		memberships: &membershipStore{byUser: map[int64][]*membershipdomain.Membership{}},
		backupCodes: &backupCodeStore{codes: map[int64]*backupcodedomain.BackupCode{}},
		subnets:     &subnetStore{subnets: map[int64]*subnetdomain.ApprovedSubnet{}},
		sms:         &recordingSMS{},
		audit:       &recordingAuditor{},
		tokens:      tokens,
		hasher:      security.NewHasher(4),
	}
	env.svc = NewService(Config{
		Users:       env.users,
		Sessions:    env.sessions,
		Memberships: env.memberships,
		BackupCodes: env.backupCodes,
		Subnets:     env.subnets,
		Hasher:      env.hasher,
		Tokens:      env.tokens,
		SMS:         env.sms,
		Audit:       env.audit,
		AccessTTL:   time.Hour,
		TotpSkew:    1,
		FrontendURL: "https://app.example.com",
	})
	return env
}

// addUser seeds a verified, active user with the given password and returns it.
func (env *authEnv) addUser(t *testing.T, id int64, emailAddress, password string) *userdomain.User {
	t.Helper()
	u := &userdomain.User{
		ID:            id,
		Name:          "Ada",
		Email:         emailAddress,
		EmailSafe:     userdomain.SafeEmail(emailAddress),
		EmailVerified: true,
		Role:          userdomain.RoleRegular,
		MfaMethod:     userdomain.MfaNone,
		Active:        true,
	}
	if password != "" {
		hash, err := env.hasher.Hash([]byte(password))
		if err != nil {
			t.Fatalf("hash password: %v", err)
		}
		u.PasswordHash = hash
	}
	env.users.users[id] = u
	return u
}

var client = ClientInfo{IPAddress: "203.0.113.9", UserAgent: "curl/8.0"}

func TestRegisterThenLoginAfterVerification(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()

	user, err := env.svc.Register(ctx, client, "Ada", "ada@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID < 10000000 || user.ID > 10999999 {
		t.Errorf("ID = %d, want an 8-digit record id", user.ID)
	}

	if _, err := env.svc.Register(ctx, client, "Ada", "Ada+spam@example.com", "x"); err != ErrEmailConflict {
		t.Errorf("duplicate register = %v, want ErrEmailConflict", err)
	}

	if _, err := env.svc.Login(ctx, client, "ada@example.com", "hunter22", "", false); err != ErrUnverifiedEmail {
		t.Errorf("login before verification = %v, want ErrUnverifiedEmail", err)
	}

	verifyToken, err := env.tokens.SignSubject(security.PurposeEmailVerify, user.ID, time.Hour)
	if err != nil {
		t.Fatalf("sign verify token: %v", err)
	}
	if _, err := env.svc.VerifyEmail(ctx, client, verifyToken); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}

	resp, err := env.svc.Login(ctx, client, "ada@example.com", "hunter22", "", false)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Tokens == nil || resp.Tokens.AccessToken == "" || resp.Tokens.RefreshToken == "" {
		t.Fatal("login produced no credentials")
	}

	claims, err := env.tokens.VerifyAccess(resp.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.UserID != user.ID || claims.Type != security.PrincipalUser {
		t.Errorf("claims = {%d %s}, want user %d", claims.UserID, claims.Type, user.ID)
	}
	if len(claims.Scopes) == 0 {
		t.Error("access token carries no scopes")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.addUser(t, 10000001, "ada@example.com", "hunter22")

	if _, err := env.svc.Login(ctx, client, "ada@example.com", "wrong", "", false); err != ErrInvalidCredentials {
		t.Errorf("wrong password = %v, want ErrInvalidCredentials", err)
	}
	if _, err := env.svc.Login(ctx, client, "nobody@example.com", "hunter22", "", false); err != ErrInvalidCredentials {
		t.Errorf("unknown email = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginPasswordlessAccount(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.addUser(t, 10000001, "ada@example.com", "")

	// No stored hash means no password login, whatever is guessed.
	if _, err := env.svc.Login(ctx, client, "ada@example.com", "attacker-guess", "", false); err != ErrInvalidCredentials {
		t.Errorf("guess against passwordless account = %v, want ErrInvalidCredentials", err)
	}
	if _, err := env.svc.Login(ctx, client, "ada@example.com", "", "", false); err != ErrInvalidCredentials {
		t.Errorf("empty password = %v, want ErrInvalidCredentials", err)
	}

	// A caller that verified the identity upstream may skip the compare.
	resp, err := env.svc.Login(ctx, client, "ada@example.com", "", "", true)
	if err != nil {
		t.Fatalf("federated login: %v", err)
	}
	if resp.Tokens == nil || resp.Tokens.AccessToken == "" {
		t.Fatal("federated login produced no credentials")
	}
}

func TestLoginUnverifiedEmailBeforePassword(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	u := env.addUser(t, 10000001, "ada@example.com", "hunter22")
	u.EmailVerified = false

	// Verification state is reported before the password is checked.
	if _, err := env.svc.Login(ctx, client, "ada@example.com", "wrong", "", false); err != ErrUnverifiedEmail {
		t.Errorf("wrong password on unverified account = %v, want ErrUnverifiedEmail", err)
	}
}

func TestLoginReactivatesDeactivatedAccount(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	u := env.addUser(t, 10000001, "ada@example.com", "hunter22")
	u.Active = false

	if _, err := env.svc.Login(ctx, client, "ada@example.com", "hunter22", "", false); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !env.users.users[u.ID].Active {
		t.Error("account still inactive after login")
	}
}

func TestLoginTotpChallengeAndCompletion(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	u := env.addUser(t, 10000001, "ada@example.com", "hunter22")
	enrollment, err := mfa.GenerateTotpSecret("test", u.Email)
	if err != nil {
		t.Fatalf("GenerateTotpSecret: %v", err)
	}
	u.MfaMethod = userdomain.MfaTotp
	u.MfaSecret = enrollment.Secret

	resp, err := env.svc.Login(ctx, client, "ada@example.com", "hunter22", "", false)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Tokens != nil {
		t.Fatal("login skipped the second factor")
	}
	if resp.MfaToken == "" || resp.MfaMethod != userdomain.MfaTotp {
		t.Fatalf("challenge = {%q %s}, want a TOTP challenge", resp.MfaToken, resp.MfaMethod)
	}

	code, err := mfa.CurrentTotpCode(enrollment.Secret)
	if err != nil {
		t.Fatalf("CurrentTotpCode: %v", err)
	}
	tokens, err := env.svc.LoginWithTotp(ctx, client, resp.MfaToken, code)
	if err != nil {
		t.Fatalf("LoginWithTotp: %v", err)
	}
	if tokens.AccessToken == "" {
		t.Error("challenge completion produced no access token")
	}

	if _, err := env.svc.LoginWithTotp(ctx, client, resp.MfaToken, "000000"); err != ErrInvalidMfaCode {
		t.Errorf("wrong code = %v, want ErrInvalidMfaCode", err)
	}
	if _, err := env.svc.LoginWithTotp(ctx, client, "garbage", code); err != security.ErrInvalidToken {
		t.Errorf("bad challenge token = %v, want ErrInvalidToken", err)
	}
}

func TestLoginTotpFastPath(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	u := env.addUser(t, 10000001, "ada@example.com", "hunter22")
	enrollment, _ := mfa.GenerateTotpSecret("test", u.Email)
	u.MfaMethod = userdomain.MfaTotp
	u.MfaSecret = enrollment.Secret

	code, err := mfa.CurrentTotpCode(enrollment.Secret)
	if err != nil {
		t.Fatalf("CurrentTotpCode: %v", err)
	}
	resp, err := env.svc.Login(ctx, client, "ada@example.com", "hunter22", code, false)
	if err != nil {
		t.Fatalf("Login with inline code: %v", err)
	}
	if resp.Tokens == nil {
		t.Fatal("inline code did not finish the login")
	}
}

func TestLoginSmsChallengeDeliversCode(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	u := env.addUser(t, 10000001, "ada@example.com", "hunter22")
	enrollment, _ := mfa.GenerateTotpSecret("test", u.Email)
	u.MfaMethod = userdomain.MfaSms
	u.MfaSecret = enrollment.Secret
	u.MfaPhone = "+15550100"

	resp, err := env.svc.Login(ctx, client, "ada@example.com", "hunter22", "", false)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.MfaToken == "" || resp.MfaMethod != userdomain.MfaSms {
		t.Fatal("expected an SMS challenge")
	}
	if len(env.sms.sent) != 1 {
		t.Fatalf("sent %d SMS, want 1", len(env.sms.sent))
	}

	u.MfaPhone = ""
	if _, err := env.svc.Login(ctx, client, "ada@example.com", "hunter22", "", false); err != ErrMfaPhoneNotFound {
		t.Errorf("no phone on file = %v, want ErrMfaPhoneNotFound", err)
	}
}

func TestBackupCodeIsSingleUse(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	u := env.addUser(t, 10000001, "ada@example.com", "hunter22")
	enrollment, _ := mfa.GenerateTotpSecret("test", u.Email)
	u.MfaMethod = userdomain.MfaTotp
	u.MfaSecret = enrollment.Secret

	batch, err := mfa.GenerateBackupCodes(env.hasher)
	if err != nil {
		t.Fatalf("GenerateBackupCodes: %v", err)
	}
	if err := env.backupCodes.ReplaceForUser(ctx, u.ID, batch.Hashes); err != nil {
		t.Fatalf("seed backup codes: %v", err)
	}
	backup := batch.Plaintext[0]

	resp, err := env.svc.Login(ctx, client, "ada@example.com", "hunter22", backup, false)
	if err != nil {
		t.Fatalf("login with backup code: %v", err)
	}
	if resp.Tokens == nil {
		t.Fatal("backup code did not finish the login")
	}

	if _, err := env.svc.Login(ctx, client, "ada@example.com", "hunter22", backup, false); err != ErrMfaBackupCodeUsed {
		t.Errorf("reused backup code = %v, want ErrMfaBackupCodeUsed", err)
	}
	if _, err := env.svc.Login(ctx, client, "ada@example.com", "hunter22", "0000000000", false); err != ErrInvalidMfaCode {
		t.Errorf("unknown code = %v, want ErrInvalidMfaCode", err)
	}
}

func TestLoginSubnetGate(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	u := env.addUser(t, 10000001, "ada@example.com", "hunter22")
	u.CheckLocationOnLogin = true

	// First login from anywhere approves the current subnet.
	if _, err := env.svc.Login(ctx, client, "ada@example.com", "hunter22", "", false); err != nil {
		t.Fatalf("first login: %v", err)
	}
	if len(env.subnets.subnets) != 1 {
		t.Fatalf("stored %d subnets after first login, want 1", len(env.subnets.subnets))
	}

	// Same /24 passes, even from a different host address.
	sameSubnet := ClientInfo{IPAddress: "203.0.113.200", UserAgent: client.UserAgent}
	if _, err := env.svc.Login(ctx, sameSubnet, "ada@example.com", "hunter22", "", false); err != nil {
		t.Fatalf("login from same subnet: %v", err)
	}

	elsewhere := ClientInfo{IPAddress: "198.51.100.7", UserAgent: client.UserAgent}
	if _, err := env.svc.Login(ctx, elsewhere, "ada@example.com", "hunter22", "", false); err != ErrUnverifiedLocation {
		t.Fatalf("login from new subnet = %v, want ErrUnverifiedLocation", err)
	}

	approval, err := env.tokens.SignSubject(security.PurposeApproveSubnet, u.ID, time.Hour)
	if err != nil {
		t.Fatalf("sign approval token: %v", err)
	}
	if _, err := env.svc.ApproveSubnet(ctx, elsewhere, approval); err != nil {
		t.Fatalf("ApproveSubnet: %v", err)
	}
	if _, err := env.svc.Login(ctx, elsewhere, "ada@example.com", "hunter22", "", false); err != nil {
		t.Errorf("login after approval: %v", err)
	}
}

func TestRefreshAndLogout(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.addUser(t, 10000001, "ada@example.com", "hunter22")

	resp, err := env.svc.Login(ctx, client, "ada@example.com", "hunter22", "", false)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	refresh := resp.Tokens.RefreshToken

	renewed, err := env.svc.Refresh(ctx, client, refresh)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if renewed.RefreshToken != refresh {
		t.Error("refresh rotated the refresh token")
	}
	if renewed.AccessToken == "" {
		t.Error("refresh produced no access token")
	}

	if _, err := env.svc.Refresh(ctx, client, ""); err != ErrNoToken {
		t.Errorf("empty token = %v, want ErrNoToken", err)
	}
	if _, err := env.svc.Refresh(ctx, client, "unknown"); err != ErrSessionNotFound {
		t.Errorf("unknown token = %v, want ErrSessionNotFound", err)
	}

	if err := env.svc.Logout(ctx, client, refresh); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := env.svc.Refresh(ctx, client, refresh); err != ErrSessionNotFound {
		t.Errorf("refresh after logout = %v, want ErrSessionNotFound", err)
	}
	if err := env.svc.Logout(ctx, client, refresh); err != ErrSessionNotFound {
		t.Errorf("double logout = %v, want ErrSessionNotFound", err)
	}
}

func TestRefreshPicksUpMembershipChanges(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	u := env.addUser(t, 10000001, "ada@example.com", "hunter22")

	resp, err := env.svc.Login(ctx, client, "ada@example.com", "hunter22", "", false)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	before, _ := env.tokens.VerifyAccess(resp.Tokens.AccessToken)

	env.memberships.byUser[u.ID] = []*membershipdomain.Membership{
		{ID: 1, UserID: u.ID, TeamID: 10000007, Role: membershipdomain.RoleOwner},
	}
	renewed, err := env.svc.Refresh(ctx, client, resp.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	after, err := env.tokens.VerifyAccess(renewed.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if len(after.Scopes) <= len(before.Scopes) {
		t.Errorf("scopes did not grow after joining a team: %d -> %d", len(before.Scopes), len(after.Scopes))
	}
}

func TestEnableMfaRevokesSessions(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	u := env.addUser(t, 10000001, "ada@example.com", "hunter22")

	if _, err := env.svc.Login(ctx, client, "ada@example.com", "hunter22", "", false); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if len(env.sessions.sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(env.sessions.sessions))
	}

	url, err := env.svc.GetTotpQrCode(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetTotpQrCode: %v", err)
	}
	if url == "" {
		t.Fatal("no enrollment URL")
	}
	secret := env.users.users[u.ID].MfaSecret
	if secret == "" {
		t.Fatal("enrollment did not stage a secret")
	}

	code, err := mfa.CurrentTotpCode(secret)
	if err != nil {
		t.Fatalf("CurrentTotpCode: %v", err)
	}
	plaintext, err := env.svc.EnableMfaMethod(ctx, u.ID, userdomain.MfaTotp, "", code)
	if err != nil {
		t.Fatalf("EnableMfaMethod: %v", err)
	}
	if len(plaintext) != mfa.BackupCodeCount {
		t.Errorf("backup codes = %d, want %d", len(plaintext), mfa.BackupCodeCount)
	}
	if env.users.users[u.ID].MfaMethod != userdomain.MfaTotp {
		t.Error("MFA method not stored")
	}
	if len(env.sessions.sessions) != 0 {
		t.Error("existing sessions survived MFA enablement")
	}

	if _, err := env.svc.GetTotpQrCode(ctx, u.ID); err != ErrMfaEnabledConflict {
		t.Errorf("re-enrollment = %v, want ErrMfaEnabledConflict", err)
	}
	if _, err := env.svc.EnableMfaMethod(ctx, u.ID, userdomain.MfaTotp, "", code); err != ErrMfaEnabledConflict {
		t.Errorf("double enable = %v, want ErrMfaEnabledConflict", err)
	}
}

func TestEnableMfaRejectsWrongCode(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	u := env.addUser(t, 10000001, "ada@example.com", "hunter22")

	if _, err := env.svc.GetTotpQrCode(ctx, u.ID); err != nil {
		t.Fatalf("GetTotpQrCode: %v", err)
	}
	if _, err := env.svc.EnableMfaMethod(ctx, u.ID, userdomain.MfaTotp, "", "000000"); err != ErrInvalidMfaCode {
		t.Errorf("wrong code = %v, want ErrInvalidMfaCode", err)
	}
	if env.users.users[u.ID].MfaMethod != userdomain.MfaNone {
		t.Error("MFA turned on without code proof")
	}
}

func TestDisableMfaClearsEverything(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	u := env.addUser(t, 10000001, "ada@example.com", "hunter22")
	enrollment, _ := mfa.GenerateTotpSecret("test", u.Email)
	u.MfaMethod = userdomain.MfaTotp
	u.MfaSecret = enrollment.Secret
	batch, _ := mfa.GenerateBackupCodes(env.hasher)
	if err := env.backupCodes.ReplaceForUser(ctx, u.ID, batch.Hashes); err != nil {
		t.Fatalf("seed backup codes: %v", err)
	}

	if err := env.svc.DisableMfa(ctx, u.ID); err != nil {
		t.Fatalf("DisableMfa: %v", err)
	}
	stored := env.users.users[u.ID]
	if stored.MfaMethod != userdomain.MfaNone || stored.MfaSecret != "" {
		t.Error("MFA state not cleared")
	}
	if len(env.backupCodes.codes) != 0 {
		t.Error("backup codes survived MFA disablement")
	}
	if err := env.svc.DisableMfa(ctx, u.ID); err != ErrMfaNotEnabled {
		t.Errorf("double disable = %v, want ErrMfaNotEnabled", err)
	}
}

func TestRegenerateBackupCodesReplacesBatch(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	u := env.addUser(t, 10000001, "ada@example.com", "hunter22")
	enrollment, _ := mfa.GenerateTotpSecret("test", u.Email)
	u.MfaMethod = userdomain.MfaTotp
	u.MfaSecret = enrollment.Secret
	batch, _ := mfa.GenerateBackupCodes(env.hasher)
	if err := env.backupCodes.ReplaceForUser(ctx, u.ID, batch.Hashes); err != nil {
		t.Fatalf("seed backup codes: %v", err)
	}
	old := batch.Plaintext[0]

	fresh, err := env.svc.RegenerateBackupCodes(ctx, u.ID)
	if err != nil {
		t.Fatalf("RegenerateBackupCodes: %v", err)
	}
	if len(fresh) != mfa.BackupCodeCount {
		t.Fatalf("fresh batch = %d codes, want %d", len(fresh), mfa.BackupCodeCount)
	}
	if _, err := env.svc.Login(ctx, client, "ada@example.com", "hunter22", old, false); err != ErrInvalidMfaCode {
		t.Errorf("old code after regeneration = %v, want ErrInvalidMfaCode", err)
	}
}

func TestResetPassword(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	u := env.addUser(t, 10000001, "ada@example.com", "hunter22")

	if err := env.svc.RequestPasswordReset(ctx, "nobody@example.com"); err != ErrUserNotFound {
		t.Errorf("unknown email = %v, want ErrUserNotFound", err)
	}
	if err := env.svc.RequestPasswordReset(ctx, "ada@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}

	token, err := env.tokens.SignSubject(security.PurposePasswordReset, u.ID, time.Hour)
	if err != nil {
		t.Fatalf("sign reset token: %v", err)
	}
	tokens, err := env.svc.ResetPassword(ctx, client, token, "correct horse")
	if err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if tokens.AccessToken == "" {
		t.Error("reset did not log the user in")
	}

	if _, err := env.svc.Login(ctx, client, "ada@example.com", "hunter22", "", false); err != ErrInvalidCredentials {
		t.Errorf("old password = %v, want ErrInvalidCredentials", err)
	}
	if _, err := env.svc.Login(ctx, client, "ada@example.com", "correct horse", "", false); err != nil {
		t.Errorf("new password: %v", err)
	}
}

func TestSendEmailVerificationConflict(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	env.addUser(t, 10000001, "ada@example.com", "hunter22")

	if err := env.svc.SendEmailVerification(ctx, "ada@example.com"); err != ErrEmailVerifiedConflict {
		t.Errorf("verified account = %v, want ErrEmailVerifiedConflict", err)
	}
	if err := env.svc.SendEmailVerification(ctx, "nobody@example.com"); err != ErrUserNotFound {
		t.Errorf("unknown email = %v, want ErrUserNotFound", err)
	}
}

func TestMergeAccounts(t *testing.T) {
	env := newAuthEnv(t)
	ctx := context.Background()
	base := env.addUser(t, 10000001, "ada@example.com", "hunter22")
	merge := env.addUser(t, 10000002, "ada@work.example.com", "hunter22")

	if err := env.svc.RequestMergeAccounts(ctx, base.ID, "nobody@example.com"); err != ErrUserNotFound {
		t.Errorf("unknown merge target = %v, want ErrUserNotFound", err)
	}
	if err := env.svc.RequestMergeAccounts(ctx, base.ID, merge.Email); err != nil {
		t.Fatalf("RequestMergeAccounts: %v", err)
	}

	token, err := env.tokens.SignMerge(base.ID, merge.ID, time.Hour)
	if err != nil {
		t.Fatalf("sign merge token: %v", err)
	}
	if err := env.svc.MergeAccounts(ctx, client, token); err != nil {
		t.Fatalf("MergeAccounts: %v", err)
	}
	if _, ok := env.users.users[merge.ID]; ok {
		t.Error("merged account still exists")
	}
	if _, ok := env.users.users[base.ID]; !ok {
		t.Error("base account lost in the merge")
	}

	if err := env.svc.MergeAccounts(ctx, client, token); err != ErrUserNotFound {
		t.Errorf("replayed merge token = %v, want ErrUserNotFound", err)
	}
	if err := env.svc.MergeAccounts(ctx, client, "garbage"); err != security.ErrInvalidToken {
		t.Errorf("bad merge token = %v, want ErrInvalidToken", err)
	}
}
