package contract

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func TestInMemoryInsertListCountDelete(t *testing.T) {
	clock := &stepClock{now: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)}
	s := NewInMemory(WithClock(clock.Now))
	ctx := context.Background()

	first, err := s.Insert(ctx, NewRecord{OwnerID: "u1", Title: "one", Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)
	second, err := s.Insert(ctx, NewRecord{OwnerID: "u1", Title: "two", Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)
	_, err = s.Insert(ctx, NewRecord{OwnerID: "u2", Title: "other", Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)

	list, err := s.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.Equal(t, first.ID, list[1].ID)
	assert.Nil(t, list[0].ArtifactRef)

	n, err := s.CountByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.ErrorIs(t, s.DeleteByID(ctx, "u2", first.ID), ErrNotFound, "foreign owner")
	require.NoError(t, s.DeleteByID(ctx, "u1", first.ID))
	assert.ErrorIs(t, s.DeleteByID(ctx, "u1", first.ID), ErrNotFound, "second delete")

	n, err = s.CountByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestInMemoryInsertValidates(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	cases := []NewRecord{
		{Title: "t", Payload: json.RawMessage(`{}`)},
		{OwnerID: "u", Payload: json.RawMessage(`{}`)},
		{OwnerID: "u", Title: "t", Payload: json.RawMessage(`{nope`)},
	}
	for _, rec := range cases {
		_, err := s.Insert(ctx, rec)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestInMemoryHonoursCancelledContext(t *testing.T) {
	s := NewInMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Insert(ctx, NewRecord{OwnerID: "u", Title: "t", Payload: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInMemoryConcurrentInserts(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Insert(ctx, NewRecord{OwnerID: "u", Title: "t", Payload: json.RawMessage(`{}`)})
		}()
	}
	wg.Wait()
	n, err := s.CountByOwner(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 50, n)
}
