package security

import "time"

// NewTestTokenProvider returns a TokenProvider with a fixed secret and short
// TTLs. For unit tests only.
func NewTestTokenProvider() *TokenProvider {
	return NewTokenProvider([]byte("test-secret-0123456789"), "test-issuer", "test-audience", 15*time.Minute, 24*time.Hour)
}
