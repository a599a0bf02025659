// Package mfa implements the second factors of the login flow: TOTP
// authenticator apps, one-time codes delivered over SMS or email, and
// single-use backup codes.
package mfa

import (
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TotpEnrollment is what a user needs to register an authenticator app: the
// base32 secret to store and the otpauth:// URL to render as a QR code.
type TotpEnrollment struct {
	Secret string
	URL    string
}

// GenerateTotpSecret creates a new TOTP secret for accountName, labeled with
// issuer in the authenticator app.
func GenerateTotpSecret(issuer, accountName string) (*TotpEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
	})
	if err != nil {
		return nil, err
	}
	return &TotpEnrollment{Secret: key.Secret(), URL: key.URL()}, nil
}

// VerifyTotp checks a 6-digit code against the secret, accepting skew periods
// of 30s clock drift in either direction.
func VerifyTotp(code, secret string, skew uint) bool {
	ok, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// CurrentTotpCode returns the code valid right now for the secret. SMS and
// email MFA deliver this code out of band instead of relying on an
// authenticator app.
func CurrentTotpCode(secret string) (string, error) {
	return totp.GenerateCodeCustom(secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
}

// TotpURL rebuilds the otpauth:// URL for an existing secret, so the QR code
// can be re-rendered without rotating the secret.
func TotpURL(issuer, accountName, secret string) string {
	return "otpauth://totp/" + issuer + ":" + accountName +
		"?algorithm=SHA1&digits=6&issuer=" + issuer + "&period=30&secret=" + secret
}
