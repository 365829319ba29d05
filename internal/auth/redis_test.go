package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisSessions(t *testing.T) (*RedisSessions, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSessions(client), mr
}

func TestRedisSessionsRoundTrip(t *testing.T) {
	store, mr := newRedisSessions(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	sess := Session{ID: "s1", AccountID: "a1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}

	require.NoError(t, store.Save(ctx, sess))
	assert.True(t, mr.Exists(sessionKey("s1")))
	ttl := mr.TTL(sessionKey("s1"))
	assert.Greater(t, ttl, 59*time.Minute)

	got, err := store.Find(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, sess.ExpiresAt.Equal(got.ExpiresAt))
	assert.Equal(t, "a1", got.AccountID)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Find(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisSessionsExpire(t *testing.T) {
	store, mr := newRedisSessions(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, store.Save(ctx, Session{ID: "s2", AccountID: "a1", CreatedAt: now, ExpiresAt: now.Add(time.Minute)}))

	mr.FastForward(2 * time.Minute)
	_, err := store.Find(ctx, "s2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisSessionsRejectExpiredSave(t *testing.T) {
	store, _ := newRedisSessions(t)
	now := time.Now().UTC()
	err := store.Save(context.Background(), Session{ID: "s3", AccountID: "a1", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRedisSessionsBackServiceSignOut(t *testing.T) {
	store, _ := newRedisSessions(t)
	tokens, err := NewTokens("test-secret")
	require.NoError(t, err)
	svc, err := NewService(NewMemoryAccounts(), store, &countUsage{counts: map[string]int{}}, tokens)
	require.NoError(t, err)
	ctx := context.Background()

	p, err := svc.SignUp(ctx, "Ana", "ana@example.com", "secret1")
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, p.Token)
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx, p.Token))
	_, err = svc.Resolve(ctx, p.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
