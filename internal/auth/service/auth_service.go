package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"user-auth-service/internal/security"
	sessiondomain "user-auth-service/internal/session/domain"
	userdomain "user-auth-service/internal/user/domain"
	userservice "user-auth-service/internal/user/service"
)

// Sentinel errors for the auth service; the handler maps them to HTTP status codes.
var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// callers cannot enumerate registered accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRefreshToken covers bad signatures and tokens whose hash no
	// longer matches any session (rotated, revoked, or never issued). The
	// cases are deliberately indistinguishable.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrExpiredRefreshToken is returned when the token or its session has
	// expired; the caller must sign in again.
	ErrExpiredRefreshToken = errors.New("expired refresh token")

	// ErrEmailAlreadyRegistered mirrors the directory's conflict sentinel so
	// boundary code can match every auth failure against this package.
	ErrEmailAlreadyRegistered = userservice.ErrEmailAlreadyRegistered
)

// TokenPair is the result of every successful authentication: a short-lived
// access token and a long-lived refresh token. The refresh token is persisted
// only as its hash, inside the session row.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// GoogleProfile is the provider profile consumed by GoogleLogin. ID is
// required; the rest is best-effort profile data.
type GoogleProfile struct {
	ID        string
	Email     string
	Name      string
	AvatarURL string
}

// Principal identifies the authenticated caller of a protected request.
type Principal struct {
	UserID    string
	Email     string
	Role      string
	SessionID string
}

// UserDirectory is the minimal user directory needed by the auth service.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*userdomain.User, error)
	FindByEmail(ctx context.Context, email string) (*userdomain.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*userdomain.User, error)
	Create(ctx context.Context, name, email, password string) (*userdomain.User, error)
	CreateFromGoogle(ctx context.Context, googleID, email, name, avatarURL string) (*userdomain.User, error)
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	ListByUser(ctx context.Context, userID string) ([]*sessiondomain.Session, error)
	Create(ctx context.Context, s *sessiondomain.Session) error
	UpdateRefreshToken(ctx context.Context, sessionID, refreshTokenHash string, expiresAt time.Time) error
}

// AuthService implements signup, signin, Google login, and refresh-token
// rotation. A refresh token is valid only while (a) its signature and expiry
// check out and (b) its hash matches a session row for its subject; rotation
// overwrites that hash, so a replayed old token can never match again.
//
// Two concurrent refreshes of the same token can both succeed; the row update
// is last-writer-wins, so only the later write's token remains usable. The
// loser fails on its next refresh.
type AuthService struct {
	directory UserDirectory
	sessions  SessionRepo
	hasher    *security.Hasher
	tokens    *security.TokenProvider
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(directory UserDirectory, sessions SessionRepo, hasher *security.Hasher, tokens *security.TokenProvider) *AuthService {
	return &AuthService{
		directory: directory,
		sessions:  sessions,
		hasher:    hasher,
		tokens:    tokens,
	}
}

// Signup creates a password user and issues its first token pair. The
// directory's ErrEmailAlreadyRegistered passes through when the email is taken.
func (s *AuthService) Signup(ctx context.Context, name, email, password string) (*TokenPair, error) {
	u, err := s.directory.Create(ctx, name, email, password)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, u, clientIP(ctx))
}

// Signin authenticates with email and password and issues a token pair.
// Unknown email and wrong password both return ErrInvalidCredentials.
func (s *AuthService) Signin(ctx context.Context, email, password string) (*TokenPair, error) {
	u, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || u.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, u, clientIP(ctx))
}

// GoogleLogin resolves or creates a user from the Google profile and issues a
// token pair. No password check applies.
func (s *AuthService) GoogleLogin(ctx context.Context, profile GoogleProfile) (*TokenPair, error) {
	if profile.ID == "" {
		return nil, fmt.Errorf("%w: google profile id is required", userservice.ErrInvalidInput)
	}
	u, err := s.directory.FindByGoogleID(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		u, err = s.directory.CreateFromGoogle(ctx, profile.ID, profile.Email, profile.Name, profile.AvatarURL)
		if err != nil {
			return nil, err
		}
	}
	return s.issue(ctx, u, clientIP(ctx))
}

// Refresh validates the presented refresh token, locates the matching session
// by hash, rotates it in place, and returns a new pair. The presented token is
// unusable afterwards.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, security.ErrExpiredToken) {
			return nil, ErrExpiredRefreshToken
		}
		return nil, ErrInvalidRefreshToken
	}

	candidates, err := s.sessions.ListByUser(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	now := time.Now().UTC()
	var match *sessiondomain.Session
	for _, sess := range candidates {
		if sess.Expired(now) {
			continue
		}
		if security.RefreshTokenHashEqual(refreshToken, sess.RefreshTokenHash) {
			match = sess
			break
		}
	}
	if match == nil {
		return nil, ErrInvalidRefreshToken
	}

	newRefresh, _, refreshExp, err := s.tokens.IssueRefresh(match.ID, claims.Subject, claims.Email, claims.Role)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.UpdateRefreshToken(ctx, match.ID, security.HashRefreshToken(newRefresh), refreshExp); err != nil {
		return nil, fmt.Errorf("rotate session: %w", err)
	}
	access, _, _, err := s.tokens.IssueAccess(match.ID, claims.Subject, claims.Email, claims.Role)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: newRefresh}, nil
}

// ValidateAccess validates an access token and confirms that its session is
// still live and its user still exists, so a reaped session or a deleted
// account invalidates outstanding access tokens server-side. Email and role
// come from the live user record, not the claims.
func (s *AuthService) ValidateAccess(ctx context.Context, accessToken string) (*Principal, error) {
	claims, err := s.tokens.ValidateAccess(accessToken)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil || sess.Expired(time.Now().UTC()) {
		return nil, security.ErrInvalidToken
	}
	u, err := s.directory.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, security.ErrInvalidToken
	}
	return &Principal{
		UserID:    u.ID,
		Email:     u.Email,
		Role:      string(u.Role),
		SessionID: claims.SessionID,
	}, nil
}

// issue mints an access/refresh pair for the user and persists exactly one
// new session row holding the refresh token's hash.
func (s *AuthService) issue(ctx context.Context, u *userdomain.User, ip string) (*TokenPair, error) {
	sessionID := uuid.New().String()
	refresh, _, refreshExp, err := s.tokens.IssueRefresh(sessionID, u.ID, u.Email, string(u.Role))
	if err != nil {
		return nil, err
	}
	access, _, _, err := s.tokens.IssueAccess(sessionID, u.ID, u.Email, string(u.Role))
	if err != nil {
		return nil, err
	}
	sess := &sessiondomain.Session{
		ID:               sessionID,
		UserID:           u.ID,
		RefreshTokenHash: security.HashRefreshToken(refresh),
		IPAddress:        ip,
		CreatedAt:        time.Now().UTC(),
		ExpiresAt:        refreshExp,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
