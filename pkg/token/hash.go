package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Hash returns the hex encoded SHA-256 digest of token.
func Hash(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// Verify reports whether token hashes to expectedHash, in constant time.
func Verify(token, expectedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(Hash(token)), []byte(expectedHash)) == 1
}

// Equal compares two secrets in constant time. Both sides are hashed first
// so the comparison does not leak their lengths.
func Equal(given, expected []byte) bool {
	a := sha256.Sum256(given)
	b := sha256.Sum256(expected)
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
