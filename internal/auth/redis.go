package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "contratos:session:"

// RedisSessions stores sessions as JSON values whose TTL matches the session
// expiry, so Redis evicts them without a sweeper.
type RedisSessions struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisSessions(client redis.UniversalClient) *RedisSessions {
	return &RedisSessions{client: client, now: time.Now}
}

func sessionKey(id string) string { return sessionKeyPrefix + id }

func (r *RedisSessions) Save(ctx context.Context, s Session) error {
	if s.ID == "" {
		return ErrInvalidInput
	}
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("%w: session already expired", ErrInvalidInput)
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(s.ID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *RedisSessions) Find(ctx context.Context, id string) (Session, error) {
	raw, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}

func (r *RedisSessions) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
