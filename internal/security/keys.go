package security

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"strings"
)

// ErrInvalidKey is returned when key material can not be decoded as a
// supported PEM key.
var ErrInvalidKey = errors.New("invalid key")

// decodeKeyPEM accepts inline PEM text or a path to a PEM file; the
// JWT_PRIVATE_KEY and JWT_PUBLIC_KEY settings allow both forms.
func decodeKeyPEM(s string) (*pem.Block, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	raw := []byte(s)
	if !strings.HasPrefix(s, "-----BEGIN") {
		b, err := os.ReadFile(s)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, ErrInvalidKey
	}
	return block, nil
}

// ParsePrivateKey loads the token signing key. RSA (PKCS#1 or PKCS#8) and
// ECDSA keys are accepted; the token provider selects RS256 or ES256 from
// the key type.
func ParsePrivateKey(s string) (crypto.Signer, error) {
	block, err := decodeKeyPEM(s)
	if err != nil {
		return nil, err
	}
	var key any
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	default:
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, err
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, ErrInvalidKey
	}
	return signer, nil
}

// ParsePublicKey loads the verification half of the signing key pair.
func ParsePublicKey(s string) (crypto.PublicKey, error) {
	block, err := decodeKeyPEM(s)
	if err != nil {
		return nil, err
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		return x509.ParsePKIXPublicKey(block.Bytes)
	default:
		return nil, ErrInvalidKey
	}
}
