// Package memstore implements the cache interfaces in process memory. It is
// used when no Redis address is configured and in tests.
package memstore

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/okian/lifespan/internal/adapters/cache"
	model "github.com/okian/lifespan/internal/domain/model"
)

// Option applies a configuration option to the in-memory stores.
type Option func(*clock)

type clock struct {
	now func() time.Time
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *clock) {
		if now != nil {
			c.now = now
		}
	}
}

func newClock(opts []Option) clock {
	c := clock{now: time.Now}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Sessions is an in-memory cache.Sessions.
type Sessions struct {
	clock
	mu       sync.Mutex
	sessions map[string]model.Session
}

var _ cache.Sessions = (*Sessions)(nil)

// NewSessions returns an empty session store.
func NewSessions(opts ...Option) *Sessions {
	return &Sessions{clock: newClock(opts), sessions: make(map[string]model.Session)}
}

func (s *Sessions) Create(ctx context.Context, sess model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.sessions[sess.Token] = sess
	return nil
}

func (s *Sessions) Get(ctx context.Context, token string) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return model.Session{}, cache.ErrNotFound
	}
	if sess.Expired(s.now()) {
		delete(s.sessions, token)
		return model.Session{}, cache.ErrNotFound
	}
	return sess, nil
}

func (s *Sessions) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}

func (s *Sessions) DeleteUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tok, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, tok)
		}
	}
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// sweep drops expired sessions. Callers hold mu.
func (s *Sessions) sweep() {
	now := s.now()
	for tok, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, tok)
		}
	}
}

type window struct {
	count int
	reset time.Time
}

// Limiter is an in-memory fixed-window cache.Limiter.
type Limiter struct {
	clock
	mu          sync.Mutex
	maxAttempts int
	period      time.Duration
	windows     map[string]*window
}

var _ cache.Limiter = (*Limiter)(nil)

// NewLimiter allows maxAttempts attempts per key in each period.
func NewLimiter(maxAttempts int, period time.Duration, opts ...Option) *Limiter {
	return &Limiter{
		clock:       newClock(opts),
		maxAttempts: maxAttempts,
		period:      period,
		windows:     make(map[string]*window),
	}
}

func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.reset) {
		w = &window{reset: now.Add(l.period)}
		l.windows[key] = w
	}
	w.count++
	return w.count <= l.maxAttempts, nil
}

func (l *Limiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	delete(l.windows, key)
	l.mu.Unlock()
	return nil
}

type code struct {
	value   string
	expires time.Time
}

// ResetCodes is an in-memory cache.ResetCodes.
type ResetCodes struct {
	clock
	mu    sync.Mutex
	codes map[string]code
}

var _ cache.ResetCodes = (*ResetCodes)(nil)

// NewResetCodes returns an empty code store.
func NewResetCodes(opts ...Option) *ResetCodes {
	return &ResetCodes{clock: newClock(opts), codes: make(map[string]code)}
}

func (r *ResetCodes) Put(ctx context.Context, email, value string, ttl time.Duration) error {
	r.mu.Lock()
	r.codes[email] = code{value: value, expires: r.now().Add(ttl)}
	r.mu.Unlock()
	return nil
}

func (r *ResetCodes) Consume(ctx context.Context, email, value string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[email]
	if !ok {
		return false, nil
	}
	if !r.now().Before(c.expires) {
		delete(r.codes, email)
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(c.value), []byte(value)) != 1 {
		return false, nil
	}
	delete(r.codes, email)
	return true, nil
}
