// Package memory is an in-process repository.Store used for development
// and tests. Data does not survive a restart.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/okian/lifespan/internal/adapters/repository"
	model "github.com/okian/lifespan/internal/domain/model"
)

// Store keeps users and predictions in maps guarded by a single RWMutex.
// Values are cloned on the way in and out.
type Store struct {
	mu sync.RWMutex

	users   map[string]*model.User
	byEmail map[string]string

	predictions map[string]*model.Prediction
	// byUser holds prediction ids in insertion order.
	byUser map[string][]string
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		users:       make(map[string]*model.User),
		byEmail:     make(map[string]string),
		predictions: make(map[string]*model.Prediction),
		byUser:      make(map[string][]string),
	}
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if u == nil || strings.TrimSpace(u.ID) == "" {
		return model.ErrIDRequired
	}
	email := model.NormalizeEmail(u.Email)
	if email == "" {
		return model.ErrEmailRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return repository.ErrConflict
	}
	if _, ok := s.users[u.ID]; ok {
		return repository.ErrConflict
	}
	c := u.Clone()
	c.Email = email
	s.users[c.ID] = c
	s.byEmail[email] = c.ID
	return nil
}

func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		return u.Clone(), nil
	}
	return nil, repository.ErrNotFound
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[model.NormalizeEmail(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s.users[id].Clone(), nil
}

func (s *Store) UpdatePassword(ctx context.Context, id, hash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = at.UTC()
	return nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

func (s *Store) SavePrediction(ctx context.Context, p *model.Prediction) error {
	if p == nil || strings.TrimSpace(p.ID) == "" {
		return model.ErrIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.predictions[p.ID]; ok {
		return repository.ErrConflict
	}
	s.predictions[p.ID] = p.Clone()
	s.byUser[p.UserID] = append(s.byUser[p.UserID], p.ID)
	return nil
}

func (s *Store) PredictionByID(ctx context.Context, id string) (*model.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.predictions[id]; ok {
		return p.Clone(), nil
	}
	return nil, repository.ErrNotFound
}

func (s *Store) ListPredictions(ctx context.Context, userID string, limit int) ([]*model.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byUser[userID]
	n := len(ids)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*model.Prediction, 0, n)
	for i := len(ids) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.predictions[ids[i]].Clone())
	}
	return out, nil
}

func (s *Store) CountPredictions(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.predictions), nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }
