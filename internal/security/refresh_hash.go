package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashRefreshToken returns the hex-encoded SHA-256 hash of a refresh token.
// Only this hash is ever persisted; the raw token stays with the client.
// bcrypt is deliberately not used here: it truncates input at 72 bytes,
// shorter than a signed token.
func HashRefreshToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// RefreshTokenHashEqual compares the hash of the presented token with the
// stored hash in constant time. The match doubles as proof of possession.
func RefreshTokenHashEqual(presentedToken, storedHash string) bool {
	presentedHash := HashRefreshToken(presentedToken)
	return subtle.ConstantTimeCompare([]byte(presentedHash), []byte(storedHash)) == 1
}
