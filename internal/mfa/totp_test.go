package mfa

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/worldzhy/newbie.saas/internal/security"
)

func TestGenerateTotpSecret(t *testing.T) {
	enrollment, err := GenerateTotpSecret("staart", "ada@example.com")
	if err != nil {
		t.Fatalf("GenerateTotpSecret: %v", err)
	}
	if enrollment.Secret == "" {
		t.Error("empty secret")
	}
	if !strings.HasPrefix(enrollment.URL, "otpauth://totp/") {
		t.Errorf("URL = %q", enrollment.URL)
	}
}

func TestVerifyTotp(t *testing.T) {
	enrollment, err := GenerateTotpSecret("staart", "ada@example.com")
	if err != nil {
		t.Fatalf("GenerateTotpSecret: %v", err)
	}

	code, err := totp.GenerateCodeCustom(enrollment.Secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		t.Fatalf("GenerateCodeCustom: %v", err)
	}
	if !VerifyTotp(code, enrollment.Secret, 1) {
		t.Error("freshly generated code rejected")
	}
	if VerifyTotp("000000", enrollment.Secret, 1) && code != "000000" {
		t.Error("wrong code accepted")
	}
}

func TestVerifyTotpAcceptsAdjacentPeriod(t *testing.T) {
	enrollment, err := GenerateTotpSecret("staart", "ada@example.com")
	if err != nil {
		t.Fatalf("GenerateTotpSecret: %v", err)
	}
	code, err := totp.GenerateCodeCustom(enrollment.Secret, time.Now().UTC().Add(-30*time.Second), totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		t.Fatalf("GenerateCodeCustom: %v", err)
	}
	if !VerifyTotp(code, enrollment.Secret, 1) {
		t.Error("code from the previous period rejected despite skew window")
	}
}

func TestGenerateBackupCodes(t *testing.T) {
	hasher := security.NewHasher(4)
	batch, err := GenerateBackupCodes(hasher)
	if err != nil {
		t.Fatalf("GenerateBackupCodes: %v", err)
	}
	if len(batch.Plaintext) != BackupCodeCount || len(batch.Hashes) != BackupCodeCount {
		t.Fatalf("got %d/%d codes, want %d", len(batch.Plaintext), len(batch.Hashes), BackupCodeCount)
	}
	seen := make(map[string]bool)
	for i, code := range batch.Plaintext {
		if seen[code] {
			t.Errorf("duplicate code %q", code)
		}
		seen[code] = true
		if !hasher.Matches(batch.Hashes[i], []byte(code)) {
			t.Errorf("hash %d does not match its code", i)
		}
	}
}
