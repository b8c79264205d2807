// Package cache defines the short-lived state the service keeps outside the
// main store: sessions, login attempt counters and password reset codes.
package cache

import (
	"context"
	"errors"
	"time"

	model "github.com/okian/lifespan/internal/domain/model"
)

// ErrNotFound is returned for unknown or expired entries.
var ErrNotFound = errors.New("cache entry not found")

// Sessions stores login sessions until they expire.
type Sessions interface {
	// Create stores s until s.ExpiresAt.
	Create(ctx context.Context, s model.Session) error
	// Get returns ErrNotFound for unknown or expired tokens.
	Get(ctx context.Context, token string) (model.Session, error)
	// Delete removes one session. Deleting an unknown token is not an error.
	Delete(ctx context.Context, token string) error
	// DeleteUser removes every session of userID.
	DeleteUser(ctx context.Context, userID string) error
}

// Limiter counts attempts per key in a fixed window.
type Limiter interface {
	// Allow records an attempt for key and reports whether it is within
	// the limit.
	Allow(ctx context.Context, key string) (bool, error)
	// Reset clears the attempts of key.
	Reset(ctx context.Context, key string) error
}

// ResetCodes holds single-use password reset codes keyed by email.
type ResetCodes interface {
	// Put stores code for email, replacing any earlier code.
	Put(ctx context.Context, email, code string, ttl time.Duration) error
	// Consume reports whether code matches the live code of email and, if
	// so, deletes it. Only one concurrent caller can consume a code.
	Consume(ctx context.Context, email, code string) (bool, error)
}
