package security

import (
	"testing"
	"time"
)

func newTestProvider(t *testing.T) *TokenProvider {
	t.Helper()
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	return p
}

func TestAccessTokenRoundTrip(t *testing.T) {
	p := newTestProvider(t)

	scopes := []string{"user-1042:read-info", "user-1042:write-api-key-*"}
	token, err := p.SignAccess(PrincipalUser, 1042, scopes, 7, "REGULAR", time.Hour)
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}

	claims, err := p.VerifyAccess(token)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.UserID != 1042 {
		t.Errorf("UserID = %d, want 1042", claims.UserID)
	}
	if claims.Type != PrincipalUser {
		t.Errorf("Type = %q, want %q", claims.Type, PrincipalUser)
	}
	if claims.SessionID != 7 {
		t.Errorf("SessionID = %d, want 7", claims.SessionID)
	}
	if claims.Role != "REGULAR" {
		t.Errorf("Role = %q, want REGULAR", claims.Role)
	}
	if len(claims.Scopes) != 2 || claims.Scopes[0] != scopes[0] || claims.Scopes[1] != scopes[1] {
		t.Errorf("Scopes = %v, want %v", claims.Scopes, scopes)
	}
}

func TestAccessTokenExpired(t *testing.T) {
	p := newTestProvider(t)
	token, err := p.SignAccess(PrincipalUser, 1042, nil, 0, "", -time.Minute)
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}
	if _, err := p.VerifyAccess(token); err == nil {
		t.Error("expected expired token to fail verification")
	}
}

func TestAccessTokenGarbage(t *testing.T) {
	p := newTestProvider(t)
	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := p.VerifyAccess(token); err == nil {
			t.Errorf("expected %q to fail verification", token)
		}
	}
}

func TestSubjectTokenPurposeIsolation(t *testing.T) {
	p := newTestProvider(t)

	token, err := p.SignSubject(PurposeEmailVerify, 1042, time.Hour)
	if err != nil {
		t.Fatalf("SignSubject: %v", err)
	}

	userID, err := p.VerifySubject(PurposeEmailVerify, token)
	if err != nil {
		t.Fatalf("VerifySubject(same purpose): %v", err)
	}
	if userID != 1042 {
		t.Errorf("userID = %d, want 1042", userID)
	}

	// A token minted for one flow must never verify in another.
	for _, wrong := range []Purpose{PurposePasswordReset, PurposeApproveSubnet, PurposeEmailMfa, PurposeLoginAccess} {
		if _, err := p.VerifySubject(wrong, token); err == nil {
			t.Errorf("email-verify token accepted for purpose %q", wrong)
		}
	}
}

func TestSubjectTokenNotValidAsAccessToken(t *testing.T) {
	p := newTestProvider(t)
	token, err := p.SignSubject(PurposePasswordReset, 1042, time.Hour)
	if err != nil {
		t.Fatalf("SignSubject: %v", err)
	}
	if _, err := p.VerifyAccess(token); err == nil {
		t.Error("password-reset token accepted as access token")
	}
}

func TestMfaChallengeRoundTrip(t *testing.T) {
	p := newTestProvider(t)
	token, err := p.SignMfaChallenge(1042, "TOTP", 30*time.Minute)
	if err != nil {
		t.Fatalf("SignMfaChallenge: %v", err)
	}
	userID, method, err := p.VerifyMfaChallenge(token)
	if err != nil {
		t.Fatalf("VerifyMfaChallenge: %v", err)
	}
	if userID != 1042 || method != "TOTP" {
		t.Errorf("got (%d, %q), want (1042, TOTP)", userID, method)
	}
}

func TestMergeTokenRoundTrip(t *testing.T) {
	p := newTestProvider(t)
	token, err := p.SignMerge(1001, 1002, 30*time.Minute)
	if err != nil {
		t.Fatalf("SignMerge: %v", err)
	}
	base, merge, err := p.VerifyMerge(token)
	if err != nil {
		t.Fatalf("VerifyMerge: %v", err)
	}
	if base != 1001 || merge != 1002 {
		t.Errorf("got (%d, %d), want (1001, 1002)", base, merge)
	}
	if _, _, err := p.VerifyMfaChallenge(token); err == nil {
		t.Error("merge token accepted as MFA challenge")
	}
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	p := newTestProvider(t)
	signer, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}
	pub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	other := NewTokenProvider(signer, pub, "other-issuer", "other-audience")

	token, err := other.SignAccess(PrincipalUser, 1042, nil, 0, "", time.Hour)
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}
	if _, err := p.VerifyAccess(token); err == nil {
		t.Error("token from a different issuer accepted")
	}
}
