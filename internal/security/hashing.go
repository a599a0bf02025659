package security

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies passwords, backup codes, and approved subnets
// using bcrypt. Callers must not log or persist plaintext values.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost (4–31). Cost 12 is a
// reasonable default for interactive login.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a bcrypt hash of value, returned as a string suitable for
// storage.
func (h *Hasher) Hash(value []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(value, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare verifies value against the stored hash using constant-time
// comparison. Returns nil if they match.
func (h *Hasher) Compare(hash string, value []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), value)
}

// Matches is Compare as a boolean, for call sites that scan candidate hashes.
func (h *Hasher) Matches(hash string, value []byte) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), value) == nil
}
