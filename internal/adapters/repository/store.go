// Package repository defines the account and prediction store interfaces
// shared by the memory and postgres implementations.
package repository

import (
	"context"
	"time"

	model "github.com/okian/lifespan/internal/domain/model"
)

// Users persists accounts.
type Users interface {
	// CreateUser stores u. Returns ErrConflict if the email is taken.
	CreateUser(ctx context.Context, u *model.User) error
	// UserByID returns ErrNotFound for unknown ids.
	UserByID(ctx context.Context, id string) (*model.User, error)
	// UserByEmail looks up a normalized email. Returns ErrNotFound on a miss.
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	// UpdatePassword replaces the password hash of user id.
	UpdatePassword(ctx context.Context, id, hash string, at time.Time) error
	CountUsers(ctx context.Context) (int, error)
}

// Predictions persists scoring results.
type Predictions interface {
	SavePrediction(ctx context.Context, p *model.Prediction) error
	// PredictionByID returns ErrNotFound for unknown ids.
	PredictionByID(ctx context.Context, id string) (*model.Prediction, error)
	// ListPredictions returns the predictions of userID newest first. A
	// limit of zero or less returns all of them.
	ListPredictions(ctx context.Context, userID string, limit int) ([]*model.Prediction, error)
	CountPredictions(ctx context.Context) (int, error)
}

// Store is the full persistence surface of the service.
type Store interface {
	Users
	Predictions
	Ping(ctx context.Context) error
	Close() error
}
