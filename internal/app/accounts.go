package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/lifespan/internal/adapters/cache"
	"github.com/okian/lifespan/internal/adapters/repository"
	"github.com/okian/lifespan/internal/adapters/security"
	model "github.com/okian/lifespan/internal/domain/model"
	"github.com/okian/lifespan/internal/domain/types"
	"github.com/okian/lifespan/pkg/logger"
	"github.com/okian/lifespan/pkg/metrics"
)

// Register creates a user account and queues a welcome notification.
func (s *Service) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	u, err := s.createUser(ctx, name, email, password, model.RoleUser)
	if err != nil {
		return nil, err
	}
	metrics.RecordRegistration()
	s.logger.Info(ctx, "user registered", logger.String("user_id", u.ID))
	s.notify(ctx, model.Event{
		Type:   model.EventUserRegistered,
		UserID: u.ID,
		Email:  u.Email,
		Name:   u.Name,
	})
	return u, nil
}

// EnsureAdmin creates an admin account unless one already exists under email.
// An existing non-admin account with that email yields ErrEmailTaken.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) (*model.User, error) {
	existing, err := s.store.UserByEmail(ctx, model.NormalizeEmail(email))
	switch {
	case err == nil:
		if existing.IsAdmin() {
			return existing, nil
		}
		return nil, ErrEmailTaken
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	u, err := s.createUser(ctx, name, email, password, model.RoleAdmin)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "admin provisioned", logger.String("user_id", u.ID))
	return u, nil
}

func (s *Service) createUser(ctx context.Context, name, email, password string, role model.Role) (*model.User, error) {
	if err := model.ValidatePassword(password); err != nil {
		return nil, err
	}
	addr, err := model.ParseEmail(email)
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u, err := model.NewUser(model.NewUserParams{
		ID:           s.newID(),
		Name:         name,
		Email:        addr,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

// Login verifies credentials and opens a session. Attempts are counted per
// email and client, and per email across all clients with a larger budget.
// A successful login clears both counts.
func (s *Service) Login(ctx context.Context, email, password, client string) (types.Login, error) {
	addr := model.NormalizeEmail(email)
	key := addr + "|" + client
	accountKey := "login|" + addr

	for _, c := range []struct {
		limiter cache.Limiter
		key     string
	}{{s.limiter, key}, {s.accounts, accountKey}} {
		ok, err := c.limiter.Allow(ctx, c.key)
		if err != nil {
			return types.Login{}, fmt.Errorf("rate limiter: %w", err)
		}
		if !ok {
			metrics.RecordLoginRateLimited()
			metrics.RecordLoginAttempt("rate_limited")
			s.logger.Warn(ctx, "login rate limited", logger.String("client", client))
			return types.Login{}, ErrRateLimited
		}
	}

	u, err := s.store.UserByEmail(ctx, addr)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.RecordLoginAttempt("failure")
		return types.Login{}, ErrInvalidCredentials
	}
	if err != nil {
		return types.Login{}, err
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		if errors.Is(err, security.ErrMismatch) {
			metrics.RecordLoginAttempt("failure")
			return types.Login{}, ErrInvalidCredentials
		}
		return types.Login{}, err
	}

	token, err := s.tokens.NewToken()
	if err != nil {
		return types.Login{}, err
	}
	sess := model.Session{Token: token, UserID: u.ID, ExpiresAt: s.now().Add(s.sessionTTL).UTC()}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return types.Login{}, fmt.Errorf("create session: %w", err)
	}
	if err := s.limiter.Reset(ctx, key); err != nil {
		s.logger.Warn(ctx, "failed to reset login attempts", logger.Error(err))
	}
	if err := s.accounts.Reset(ctx, accountKey); err != nil {
		s.logger.Warn(ctx, "failed to reset account login attempts", logger.Error(err))
	}

	metrics.RecordLoginAttempt("success")
	return types.Login{Token: token, ExpiresAt: sess.ExpiresAt, User: types.NewUser(u)}, nil
}

// Logout ends the session behind token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// Authenticate resolves a session token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	sess, err := s.sessions.Get(ctx, token)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	u, err := s.store.UserByID(ctx, sess.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	return u, err
}

// ForgotPassword issues a reset code for email and queues it for delivery.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.store.UserByEmail(ctx, model.NormalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	code, err := s.codes.NewCode()
	if err != nil {
		return err
	}
	if err := s.resetCodes.Put(ctx, u.Email, code, s.resetCodeTTL); err != nil {
		return fmt.Errorf("store reset code: %w", err)
	}
	metrics.RecordPasswordReset("requested")
	s.notify(ctx, model.Event{
		Type:   model.EventPasswordResetRequest,
		UserID: u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Attributes: map[string]string{
			model.AttrResetCode: code,
			"expires_in":        s.resetCodeTTL.String(),
		},
	})
	return nil
}

// ResetPassword replaces the password when code matches the one issued for
// email. The code is single use and every open session of the user ends.
func (s *Service) ResetPassword(ctx context.Context, email, code, password string) error {
	if err := model.ValidatePassword(password); err != nil {
		return err
	}
	addr := model.NormalizeEmail(email)

	ok, err := s.limiter.Allow(ctx, "reset|"+addr)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	if !ok {
		return ErrRateLimited
	}

	ok, err = s.resetCodes.Consume(ctx, addr, code)
	if err != nil {
		return err
	}
	if !ok {
		metrics.RecordPasswordReset("rejected")
		return ErrInvalidResetCode
	}

	u, err := s.store.UserByEmail(ctx, addr)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidResetCode
	}
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdatePassword(ctx, u.ID, hash, s.now().UTC()); err != nil {
		return err
	}
	if err := s.sessions.DeleteUser(ctx, u.ID); err != nil {
		s.logger.Error(ctx, "failed to revoke sessions after reset",
			logger.String("user_id", u.ID), logger.Error(err))
	}

	metrics.RecordPasswordReset("completed")
	s.logger.Info(ctx, "password reset", logger.String("user_id", u.ID))
	s.notify(ctx, model.Event{
		Type:   model.EventPasswordResetComplete,
		UserID: u.ID,
		Email:  u.Email,
		Name:   u.Name,
	})
	return nil
}
