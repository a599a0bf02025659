package security

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

// RandomToken returns a hex string backed by n random bytes from crypto/rand.
// Session refresh tokens and API key secrets use n=64.
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// RandomDigits returns a string of n random decimal digits, unbiased.
func RandomDigits(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = '0' + byte(d.Int64())
	}
	return string(out), nil
}

// RandomRecordID returns a random numeric id of the form 10xxxxxx used for
// user and team ids, so that ids are not guessable or sequential.
func RandomRecordID() (int64, error) {
	digits, err := RandomDigits(6)
	if err != nil {
		return 0, err
	}
	var n int64 = 10
	for i := 0; i < len(digits); i++ {
		n = n*10 + int64(digits[i]-'0')
	}
	return n, nil
}
