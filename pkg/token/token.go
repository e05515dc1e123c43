package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// NonceLength is the length of a request nonce
const NonceLength = 24

// ErrInvalidLength is returned when asking for an empty token
var ErrInvalidLength = errors.New("token length must be positive")

// Generate returns a crypto-secure random string of length n
// The string only uses the URL-safe base64 alphabet
func Generate(n int) (string, error) {
	if n <= 0 {
		return "", ErrInvalidLength
	}

	// every byte carries 8 bits and every character 6
	b := make([]byte, (n*6+7)/8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b)[0:n], nil
}

// Nonce returns a fresh request nonce
func Nonce() (string, error) {
	return Generate(NonceLength)
}
