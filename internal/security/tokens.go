package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, has a bad
	// signature, or carries the wrong issuer or audience.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when a token is well-formed and correctly
	// signed but past its expiry. Kept distinct from ErrInvalidToken so
	// callers can prompt re-authentication instead of hard-failing.
	ErrExpiredToken = errors.New("expired token")
)

// Claims is the payload embedded in both access and refresh tokens.
// Subject carries the user id; SessionID ties the token to a server-side
// session row so it can be invalidated before its natural expiry.
type Claims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
}

// TokenProvider issues and validates HS256 JWTs using a process-wide secret.
// The secret is set once at construction and never mutated.
type TokenProvider struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenProvider returns a TokenProvider signing with secret. issuer and
// audience are stamped on claims and checked on validation.
func NewTokenProvider(secret []byte, issuer, audience string, accessTTL, refreshTTL time.Duration) *TokenProvider {
	return &TokenProvider{
		secret:     secret,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssueAccess issues a short-lived access token for the given session and user.
// Returns the signed token, its jti, and the absolute expiry.
func (p *TokenProvider) IssueAccess(sessionID, userID, email, role string) (token, jti string, expiresAt time.Time, err error) {
	return p.issue(sessionID, userID, email, role, p.accessTTL)
}

// IssueRefresh issues a long-lived refresh token for the given session and user.
// Callers must persist only the hash of the returned token.
func (p *TokenProvider) IssueRefresh(sessionID, userID, email, role string) (token, jti string, expiresAt time.Time, err error) {
	return p.issue(sessionID, userID, email, role, p.refreshTTL)
}

func (p *TokenProvider) issue(sessionID, userID, email, role string, ttl time.Duration) (string, string, time.Time, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email:     email,
		Role:      role,
		SessionID: sessionID,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return token, jti, expiresAt, nil
}

// ValidateAccess parses and validates an access token (signature, exp, iss, aud).
func (p *TokenProvider) ValidateAccess(tokenString string) (*Claims, error) {
	return p.validate(tokenString)
}

// ValidateRefresh parses and validates a refresh token (signature, exp, iss, aud).
// Signature and expiry say nothing about rotation; the caller must still match
// the token's hash against a live session.
func (p *TokenProvider) ValidateRefresh(tokenString string) (*Claims, error) {
	return p.validate(tokenString)
}

func (p *TokenProvider) validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != p.issuer {
		return nil, ErrInvalidToken
	}
	audOk := false
	for _, a := range claims.Audience {
		if a == p.audience {
			audOk = true
			break
		}
	}
	if !audOk {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
