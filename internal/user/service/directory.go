package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"user-auth-service/internal/security"
	"user-auth-service/internal/user/domain"
	"user-auth-service/internal/user/repository"
)

// Sentinel errors for the directory; callers map them to conflict or
// bad-request responses.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrGoogleIDAlreadyLinked  = errors.New("google account already linked to a user")
	// ErrInvalidInput wraps every caller-supplied-data rejection so the
	// boundary can distinguish it from store failures.
	ErrInvalidInput = errors.New("invalid user input")
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidEmail reports whether email is plausibly deliverable. Deliberately
// loose; the mailbox is the only real validator.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Repo is the minimal user repository needed by the directory.
type Repo interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
}

// Directory owns creation and lookup of users. It is the only component that
// mutates user records; the token engine reads identities through it.
type Directory struct {
	repo   Repo
	hasher *security.Hasher
}

// NewDirectory returns a Directory using repo for persistence and hasher for
// password storage.
func NewDirectory(repo Repo, hasher *security.Hasher) *Directory {
	return &Directory{repo: repo, hasher: hasher}
}

// FindByID returns the user for id, or nil if absent.
func (d *Directory) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return d.repo.GetByID(ctx, id)
}

// FindByEmail returns the user for the normalized email, or nil if absent.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return d.repo.GetByEmail(ctx, normalizeEmail(email))
}

// FindByGoogleID returns the user linked to the Google subject id, or nil if absent.
func (d *Directory) FindByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	return d.repo.GetByGoogleID(ctx, googleID)
}

// Create registers a password user. The plaintext password is hashed here and
// never stored. Returns ErrEmailAlreadyRegistered when the email is taken.
func (d *Directory) Create(ctx context.Context, name, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	existing, err := d.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hashed, err := d.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		Role:         domain.RoleUser,
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if err := d.repo.Create(ctx, u); err != nil {
		// The pre-check above races with concurrent signups; the unique
		// index is authoritative.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, err
	}
	return u, nil
}

// CreateFromGoogle registers an OAuth-only user from a Google profile.
// No password is involved; the account is keyed by the Google subject id.
func (d *Directory) CreateFromGoogle(ctx context.Context, googleID, email, name, avatarURL string) (*domain.User, error) {
	if googleID == "" {
		return nil, fmt.Errorf("%w: google profile id is required", ErrInvalidInput)
	}
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      strings.TrimSpace(name),
		Role:      domain.RoleUser,
		GoogleID:  googleID,
		AvatarURL: avatarURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if err := d.repo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrGoogleIDAlreadyLinked
		}
		return nil, err
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if !ValidEmail(email) {
		return fmt.Errorf("%w: invalid email format", ErrInvalidInput)
	}
	return nil
}

// validatePassword requires only a non-empty password; strength policy is
// the caller's concern, not the directory's.
func validatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	return nil
}
