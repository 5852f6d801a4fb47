// Package token generates and compares proxy auth tokens.
//
// Generated tokens look like "bzk_" followed by 43 characters of Base64
// RawURL encoded random bytes. The prefix lets the logger recognize and
// mask them.
package token

import (
	"crypto/rand"
	"encoding/base64"
)

// Prefix marks values produced by Generate.
const Prefix = "bzk_"

// DefaultLength is the default number of random bytes in a token.
const DefaultLength = 32

// Generate returns a new random auth token with the default length.
func Generate() (string, error) {
	return GenerateWithLength(DefaultLength)
}

// GenerateWithLength returns a prefixed token carrying length random bytes.
func GenerateWithLength(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return Prefix + base64.RawURLEncoding.EncodeToString(b), nil
}
