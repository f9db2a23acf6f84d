package repository

import (
	"context"
	"time"

	"user-auth-service/internal/session/domain"
)

// Repository defines persistence for sessions. It is a dumb store: rotation
// logic lives in the auth service, and the row update is last-writer-wins.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// ListByUser returns all sessions for the user, including expired ones.
	// Callers filter by expiry.
	ListByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	// UpdateRefreshToken overwrites the session's token hash and expiry in place.
	UpdateRefreshToken(ctx context.Context, sessionID, refreshTokenHash string, expiresAt time.Time) error
	// DeleteExpired removes sessions whose expiry passed before the cutoff.
	// Returns the number of rows removed.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
