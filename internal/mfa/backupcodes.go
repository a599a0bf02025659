package mfa

import (
	"github.com/worldzhy/newbie.saas/internal/security"
)

// BackupCodeCount is how many codes a fresh batch contains.
const BackupCodeCount = 10

const backupCodeDigits = 10

// GeneratedBackupCodes pairs the plaintext codes shown to the user once with
// the hashes that get stored.
type GeneratedBackupCodes struct {
	Plaintext []string
	Hashes    []string
}

// GenerateBackupCodes creates a fresh batch of single-use codes and hashes
// each with the given hasher.
func GenerateBackupCodes(hasher *security.Hasher) (*GeneratedBackupCodes, error) {
	out := &GeneratedBackupCodes{
		Plaintext: make([]string, 0, BackupCodeCount),
		Hashes:    make([]string, 0, BackupCodeCount),
	}
	for i := 0; i < BackupCodeCount; i++ {
		code, err := security.RandomDigits(backupCodeDigits)
		if err != nil {
			return nil, err
		}
		hash, err := hasher.Hash([]byte(code))
		if err != nil {
			return nil, err
		}
		out.Plaintext = append(out.Plaintext, code)
		out.Hashes = append(out.Hashes, hash)
	}
	return out, nil
}
