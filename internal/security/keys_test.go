package security

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParsePrivateKeyInlineAndFromFile(t *testing.T) {
	if _, err := ParsePrivateKey(testPrivateKeyPEM); err != nil {
		t.Fatalf("inline PEM: %v", err)
	}

	path := filepath.Join(t.TempDir(), "signing.pem")
	if err := os.WriteFile(path, []byte(testPrivateKeyPEM), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	if _, err := ParsePrivateKey(path); err != nil {
		t.Fatalf("PEM from file: %v", err)
	}
}

func TestParseKeyRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "   ", "-----BEGIN JUNK-----\nAAAA\n-----END JUNK-----"} {
		if _, err := ParsePrivateKey(s); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("ParsePrivateKey(%q) = %v, want ErrInvalidKey", s, err)
		}
		if _, err := ParsePublicKey(s); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("ParsePublicKey(%q) = %v, want ErrInvalidKey", s, err)
		}
	}
}
