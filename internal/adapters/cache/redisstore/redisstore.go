// Package redisstore implements the cache interfaces on Redis with
// go-redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/okian/lifespan/internal/adapters/cache"
	model "github.com/okian/lifespan/internal/domain/model"
)

const defaultPrefix = "lifespan:"

// Option applies a configuration option to a Store.
type Option func(*Store)

// WithPrefix namespaces every key written by the store.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithClock overrides time.Now, used for session expiry arithmetic.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is a Redis-backed implementation of cache.Sessions and
// cache.ResetCodes.
type Store struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

var (
	_ cache.Sessions   = (*Store)(nil)
	_ cache.ResetCodes = (*Store)(nil)
)

// NewClient builds a client for addr.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// New wraps rdb.
func New(rdb *redis.Client, opts ...Option) *Store {
	s := &Store{rdb: rdb, prefix: defaultPrefix, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) sessionKey(token string) string  { return s.prefix + "session:" + token }
func (s *Store) userSetKey(userID string) string { return s.prefix + "user_sessions:" + userID }
func (s *Store) resetKey(email string) string    { return s.prefix + "reset:" + email }

type sessionRecord struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Store) Create(ctx context.Context, sess model.Session) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}
	data, err := json.Marshal(sessionRecord{UserID: sess.UserID, ExpiresAt: sess.ExpiresAt.UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	setKey := s.userSetKey(sess.UserID)
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.sessionKey(sess.Token), data, ttl)
	pipe.SAdd(ctx, setKey, sess.Token)
	// The index lives as long as the newest session.
	pipe.Expire(ctx, setKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, token string) (model.Session, error) {
	data, err := s.rdb.Get(ctx, s.sessionKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Session{}, cache.ErrNotFound
		}
		return model.Session{}, fmt.Errorf("failed to get session: %w", err)
	}
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.Session{}, fmt.Errorf("failed to decode session: %w", err)
	}
	sess := model.Session{Token: token, UserID: rec.UserID, ExpiresAt: rec.ExpiresAt}
	if sess.Expired(s.now()) {
		return model.Session{}, cache.ErrNotFound
	}
	return sess, nil
}

func (s *Store) Delete(ctx context.Context, token string) error {
	sess, err := s.Get(ctx, token)
	if err != nil && !errors.Is(err, cache.ErrNotFound) {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.sessionKey(token))
	if sess.UserID != "" {
		pipe.SRem(ctx, s.userSetKey(sess.UserID), token)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	setKey := s.userSetKey(userID)
	tokens, err := s.rdb.SMembers(ctx, setKey).Result()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, s.sessionKey(t))
	}
	keys = append(keys, setKey)
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}

func (s *Store) Put(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, s.resetKey(email), code, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store reset code: %w", err)
	}
	return nil
}

func (s *Store) Consume(ctx context.Context, email, code string) (bool, error) {
	key := s.resetKey(email)
	stored, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get reset code: %w", err)
	}
	if stored != code {
		return false, nil
	}
	n, err := s.rdb.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to consume reset code: %w", err)
	}
	// Another caller deleted it first.
	return n == 1, nil
}
