package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/lifespan/internal/adapters/cache"
	model "github.com/okian/lifespan/internal/domain/model"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client, *Store) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb, New(rdb)
}

func TestSessions_CreateAndGet(t *testing.T) {
	mr, _, store := setupTestRedis(t)
	ctx := context.Background()

	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, store.Create(ctx, model.Session{Token: "tok", UserID: "u1", ExpiresAt: exp}))

	sess, err := store.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UserID)
	assert.True(t, sess.ExpiresAt.Equal(exp))

	assert.True(t, mr.Exists("lifespan:session:tok"))
	assert.True(t, mr.TTL("lifespan:session:tok") > 59*time.Minute)
	members, err := mr.SMembers("lifespan:user_sessions:u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"tok"}, members)
}

func TestSessions_Expire(t *testing.T) {
	mr, _, store := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, model.Session{Token: "tok", UserID: "u1", ExpiresAt: time.Now().Add(time.Minute)}))
	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "tok")
	assert.True(t, errors.Is(err, cache.ErrNotFound))
}

func TestSessions_CreateExpired(t *testing.T) {
	_, _, store := setupTestRedis(t)

	err := store.Create(context.Background(), model.Session{Token: "tok", UserID: "u1", ExpiresAt: time.Now().Add(-time.Second)})
	assert.Error(t, err)
}

func TestSessions_GetUnknown(t *testing.T) {
	_, _, store := setupTestRedis(t)

	_, err := store.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, cache.ErrNotFound))
}

func TestSessions_Delete(t *testing.T) {
	mr, _, store := setupTestRedis(t)
	ctx := context.Background()

	exp := time.Now().Add(time.Hour)
	require.NoError(t, store.Create(ctx, model.Session{Token: "a", UserID: "u1", ExpiresAt: exp}))
	require.NoError(t, store.Create(ctx, model.Session{Token: "b", UserID: "u1", ExpiresAt: exp}))

	require.NoError(t, store.Delete(ctx, "a"))
	_, err := store.Get(ctx, "a")
	assert.True(t, errors.Is(err, cache.ErrNotFound))

	members, err := mr.SMembers("lifespan:user_sessions:u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, members)

	// idempotent
	assert.NoError(t, store.Delete(ctx, "a"))
}

func TestSessions_DeleteUser(t *testing.T) {
	_, _, store := setupTestRedis(t)
	ctx := context.Background()

	exp := time.Now().Add(time.Hour)
	require.NoError(t, store.Create(ctx, model.Session{Token: "a", UserID: "u1", ExpiresAt: exp}))
	require.NoError(t, store.Create(ctx, model.Session{Token: "b", UserID: "u1", ExpiresAt: exp}))
	require.NoError(t, store.Create(ctx, model.Session{Token: "c", UserID: "u2", ExpiresAt: exp}))

	require.NoError(t, store.DeleteUser(ctx, "u1"))

	for _, tok := range []string{"a", "b"} {
		_, err := store.Get(ctx, tok)
		assert.True(t, errors.Is(err, cache.ErrNotFound), tok)
	}
	sess, err := store.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "u2", sess.UserID)
}

func TestResetCodes(t *testing.T) {
	mr, _, store := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "ann@example.com", "123456", 15*time.Minute))

	ok, err := store.Consume(ctx, "ann@example.com", "000000")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Consume(ctx, "ann@example.com", "123456")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Consume(ctx, "ann@example.com", "123456")
	require.NoError(t, err)
	assert.False(t, ok, "codes are single use")

	require.NoError(t, store.Put(ctx, "bob@example.com", "654321", time.Minute))
	mr.FastForward(2 * time.Minute)
	ok, err = store.Consume(ctx, "bob@example.com", "654321")
	require.NoError(t, err)
	assert.False(t, ok, "expired codes do not match")
}

func TestLimiter(t *testing.T) {
	mr, rdb, _ := setupTestRedis(t)
	ctx := context.Background()
	l := NewLimiter(rdb, 3, time.Minute)

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "ann@example.com|1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Allow(ctx, "ann@example.com|1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Allow(ctx, "other@example.com|1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")

	mr.FastForward(61 * time.Second)
	ok, err = l.Allow(ctx, "ann@example.com|1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok, "window elapsed")
}

func TestLimiter_WindowSetWithFirstAttempt(t *testing.T) {
	mr, rdb, _ := setupTestRedis(t)
	ctx := context.Background()
	l := NewLimiter(rdb, 3, time.Minute)

	ok, err := l.Allow(ctx, "ann@example.com|1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)

	k := defaultPrefix + "attempts:ann@example.com|1.2.3.4"
	v, err := mr.Get(k)
	require.NoError(t, err)
	assert.Equal(t, "1", v)
	ttl := mr.TTL(k)
	assert.True(t, ttl > 0 && ttl <= time.Minute, "ttl %v", ttl)

	mr.FastForward(30 * time.Second)
	_, err = l.Allow(ctx, "ann@example.com|1.2.3.4")
	require.NoError(t, err)
	assert.True(t, mr.TTL(k) <= 30*time.Second, "later attempts keep the window")
}

func TestLimiter_Reset(t *testing.T) {
	_, rdb, _ := setupTestRedis(t)
	ctx := context.Background()
	l := NewLimiter(rdb, 1, time.Minute)

	ok, _ := l.Allow(ctx, "k")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, l.Reset(ctx, "k"))
	ok, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	store := New(rdb, WithPrefix("test:"))

	require.NoError(t, store.Put(context.Background(), "a@example.com", "1", time.Minute))
	assert.True(t, mr.Exists("test:reset:a@example.com"))
	assert.NoError(t, store.Ping(context.Background()))
}
