// Package model contains domain models passed between layers.
package model

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// MinPasswordLength is the shortest accepted password, in characters.
const MinPasswordLength = 8

// Role grants access levels.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is a registered account.
type User struct {
	ID           string
	Name         string
	Email        string // normalized, see NormalizeEmail
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether u may act on other users' data.
func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// Clone returns a copy safe to hand out of a store.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// NewUserParams are the inputs of NewUser.
type NewUserParams struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// NewUser validates params and builds a User with a normalized email.
func NewUser(p NewUserParams) (*User, error) {
	if strings.TrimSpace(p.ID) == "" {
		return nil, ErrIDRequired
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	email, err := ParseEmail(p.Email)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.PasswordHash) == "" {
		return nil, ErrPasswordHashMissing
	}
	role := p.Role
	switch role {
	case "":
		role = RoleUser
	case RoleUser, RoleAdmin:
	default:
		return nil, ErrInvalidRole
	}
	now := p.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &User{
		ID:           p.ID,
		Name:         name,
		Email:        email,
		PasswordHash: p.PasswordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeEmail trims and lower-cases an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ParseEmail normalizes email and checks it is a bare address.
func ParseEmail(email string) (string, error) {
	e := NormalizeEmail(email)
	if e == "" {
		return "", ErrEmailRequired
	}
	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e || !strings.Contains(e[strings.LastIndex(e, "@")+1:], ".") {
		return "", ErrEmailInvalid
	}
	return e, nil
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}
