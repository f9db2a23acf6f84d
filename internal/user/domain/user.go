package domain

import (
	"errors"
	"time"
)

// User is the core identity record. PasswordHash is empty for accounts
// created from a Google profile; GoogleID is empty for password accounts.
// Email and GoogleID are each unique.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         Role
	PasswordHash string
	GoogleID     string
	AvatarURL    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Validate validates the user for persistence. Returns an error describing
// the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.PasswordHash == "" && u.GoogleID == "" {
		return errors.New("user needs a password hash or an external identity")
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}
