package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"user-auth-service/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository backed by the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, user_id, refresh_token_hash, ip_address, created_at, expires_at`

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM user_sessions WHERE id = $1`, id)
	s, err := scanSession(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// ListByUser returns all sessions for the user, oldest first, including
// expired ones.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM user_sessions WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_sessions (id, user_id, refresh_token_hash, ip_address, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.UserID, s.RefreshTokenHash,
		sql.NullString{String: s.IPAddress, Valid: s.IPAddress != ""},
		s.CreatedAt, s.ExpiresAt,
	)
	return err
}

// UpdateRefreshToken overwrites the session's token hash and expiry in place.
// Last writer wins at the row level.
func (r *PostgresRepository) UpdateRefreshToken(ctx context.Context, sessionID, refreshTokenHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE user_sessions SET refresh_token_hash = $2, expires_at = $3 WHERE id = $1`,
		sessionID, refreshTokenHash, expiresAt,
	)
	return err
}

// DeleteExpired removes sessions whose expiry passed before the cutoff and
// returns the number of rows removed.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanSession(scan func(...any) error) (*domain.Session, error) {
	var s domain.Session
	var ip sql.NullString
	if err := scan(&s.ID, &s.UserID, &s.RefreshTokenHash, &ip, &s.CreatedAt, &s.ExpiresAt); err != nil {
		return nil, err
	}
	s.IPAddress = ip.String
	return &s, nil
}
