package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, signed
	// with the wrong key, or minted for a different purpose.
	ErrInvalidToken = errors.New("invalid token")
)

// Purpose tags a signed token with the single flow it is valid for. A token
// minted for one purpose never verifies under another, so an email-verify
// link can not be replayed as, say, a password reset.
type Purpose string

const (
	PurposeLoginAccess   Purpose = "login-access"
	PurposeEmailVerify   Purpose = "email-verify"
	PurposePasswordReset Purpose = "password-reset"
	PurposeMfaChallenge  Purpose = "mfa-challenge"
	PurposeEmailMfa      Purpose = "email-mfa"
	PurposeApproveSubnet Purpose = "approve-subnet"
	PurposeMergeAccounts Purpose = "merge-accounts"
)

// PrincipalType distinguishes the two principal kinds an access token can
// represent.
type PrincipalType string

const (
	PrincipalUser   PrincipalType = "user"
	PrincipalAPIKey PrincipalType = "api-key"
)

// AccessTokenClaims is the signed claims bundle of an access token. The scope
// snapshot is fixed at signing time and trusted until expiry; revocation is
// by session deletion, not by re-validating scopes per request.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	Purpose   Purpose       `json:"purpose"`
	UserID    int64         `json:"id"`
	Type      PrincipalType `json:"type"`
	Scopes    []string      `json:"scopes"`
	SessionID int64         `json:"sessionId,omitempty"`
	Role      string        `json:"role,omitempty"`
}

// SubjectClaims is the payload of single-subject purpose tokens
// (email-verify, password-reset, approve-subnet, email-mfa).
type SubjectClaims struct {
	jwt.RegisteredClaims
	Purpose Purpose `json:"purpose"`
	UserID  int64   `json:"id"`
}

// MfaChallengeClaims is the payload of an in-progress MFA exchange.
type MfaChallengeClaims struct {
	jwt.RegisteredClaims
	Purpose Purpose `json:"purpose"`
	UserID  int64   `json:"id"`
	Method  string  `json:"type"`
}

// MergeClaims authorizes merging mergeUserId into baseUserId.
type MergeClaims struct {
	jwt.RegisteredClaims
	Purpose     Purpose `json:"purpose"`
	BaseUserID  int64   `json:"baseUserId"`
	MergeUserID int64   `json:"mergeUserId"`
}

// TokenProvider signs and verifies purpose-tagged JWTs using RS256 or ES256
// (private/public key pair).
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
}

// NewTokenProvider returns a TokenProvider that signs with the given private
// key (RSA or ECDSA). issuer and audience are set on all claims and validated
// on every verify.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
	}
}

// SignAccess signs an access token for the given principal with the given
// scope snapshot. sessionID and role are zero for API-key principals.
func (p *TokenProvider) SignAccess(principalType PrincipalType, id int64, scopes []string, sessionID int64, role string, ttl time.Duration) (string, error) {
	claims := AccessTokenClaims{
		RegisteredClaims: p.registered(ttl),
		Purpose:          PurposeLoginAccess,
		UserID:           id,
		Type:             principalType,
		Scopes:           scopes,
		SessionID:        sessionID,
		Role:             role,
	}
	return p.sign(claims)
}

// VerifyAccess parses and validates an access token.
func (p *TokenProvider) VerifyAccess(tokenString string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if err := p.verify(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.Purpose != PurposeLoginAccess {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// SignSubject signs a purpose token carrying a single user id, e.g. an
// email-verify or password-reset link token.
func (p *TokenProvider) SignSubject(purpose Purpose, userID int64, ttl time.Duration) (string, error) {
	claims := SubjectClaims{
		RegisteredClaims: p.registered(ttl),
		Purpose:          purpose,
		UserID:           userID,
	}
	return p.sign(claims)
}

// VerifySubject validates a subject token minted for exactly the given
// purpose and returns the embedded user id.
func (p *TokenProvider) VerifySubject(purpose Purpose, tokenString string) (int64, error) {
	claims := &SubjectClaims{}
	if err := p.verify(tokenString, claims); err != nil {
		return 0, err
	}
	if claims.Purpose != purpose {
		return 0, ErrInvalidToken
	}
	return claims.UserID, nil
}

// SignMfaChallenge signs the short-lived token handed to a client between the
// password step and the MFA code step.
func (p *TokenProvider) SignMfaChallenge(userID int64, method string, ttl time.Duration) (string, error) {
	claims := MfaChallengeClaims{
		RegisteredClaims: p.registered(ttl),
		Purpose:          PurposeMfaChallenge,
		UserID:           userID,
		Method:           method,
	}
	return p.sign(claims)
}

// VerifyMfaChallenge validates an MFA challenge token and returns the user id
// and challenge method.
func (p *TokenProvider) VerifyMfaChallenge(tokenString string) (int64, string, error) {
	claims := &MfaChallengeClaims{}
	if err := p.verify(tokenString, claims); err != nil {
		return 0, "", err
	}
	if claims.Purpose != PurposeMfaChallenge {
		return 0, "", ErrInvalidToken
	}
	return claims.UserID, claims.Method, nil
}

// SignMerge signs a merge-accounts token.
func (p *TokenProvider) SignMerge(baseUserID, mergeUserID int64, ttl time.Duration) (string, error) {
	claims := MergeClaims{
		RegisteredClaims: p.registered(ttl),
		Purpose:          PurposeMergeAccounts,
		BaseUserID:       baseUserID,
		MergeUserID:      mergeUserID,
	}
	return p.sign(claims)
}

// VerifyMerge validates a merge-accounts token and returns base and merge
// user ids.
func (p *TokenProvider) VerifyMerge(tokenString string) (baseUserID, mergeUserID int64, err error) {
	claims := &MergeClaims{}
	if err := p.verify(tokenString, claims); err != nil {
		return 0, 0, err
	}
	if claims.Purpose != PurposeMergeAccounts {
		return 0, 0, ErrInvalidToken
	}
	return claims.BaseUserID, claims.MergeUserID, nil
}

func (p *TokenProvider) registered(ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now().UTC()
	return jwt.RegisteredClaims{
		Issuer:    p.issuer,
		Audience:  jwt.ClaimStrings{p.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (p *TokenProvider) sign(claims jwt.Claims) (string, error) {
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrInvalidToken
	}
	t := jwt.NewWithClaims(method, claims)
	return t.SignedString(p.privateKey)
}

func (p *TokenProvider) verify(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
			return p.publicKey, nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); ok {
			return p.publicKey, nil
		}
		return nil, ErrInvalidToken
	}, jwt.WithIssuer(p.issuer), jwt.WithAudience(p.audience))
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
