package domain

import "time"

// Session ties the hash of the currently valid refresh token to a user.
// Rotation overwrites RefreshTokenHash in place, so at most one token can
// match a row at any time; the row itself is never duplicated per rotation.
type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash string
	IPAddress        string // optional
	CreatedAt        time.Time
	ExpiresAt        time.Time
}

// Expired reports whether the session's expiry has passed at now.
// Expiry is advisory in the store; callers must filter.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
