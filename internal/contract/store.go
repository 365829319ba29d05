package contract

import (
	"context"
	"sort"
	"sync"
	"time"

	"contratos.app/internal/ids"
)

// Store persists contract records owned by accounts.
type Store interface {
	Insert(ctx context.Context, rec NewRecord) (Record, error)
	// ListByOwner returns the owner's records, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]Record, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	// DeleteByID removes a record; records of other owners report ErrNotFound.
	DeleteByID(ctx context.Context, ownerID, id string) error
}

var _ Store = (*InMemory)(nil)

// InMemory implements Store for development and tests.
type InMemory struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

// MemoryOption configures InMemory.
type MemoryOption func(*InMemory)

// WithClock overrides the time source used for CreatedAt.
func WithClock(fn func() time.Time) MemoryOption {
	return func(s *InMemory) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewInMemory creates an empty store.
func NewInMemory(opts ...MemoryOption) *InMemory {
	s := &InMemory{
		records: make(map[string]Record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemory) Insert(ctx context.Context, rec NewRecord) (Record, error) {
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	created := s.now().UTC()
	out := Record{
		ID:          ids.NewAt(created),
		OwnerID:     rec.OwnerID,
		Title:       rec.Title,
		Payload:     append([]byte(nil), rec.Payload...),
		CreatedAt:   created,
		ArtifactRef: rec.ArtifactRef,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[out.ID] = out
	return out, nil
}

func (s *InMemory) ListByOwner(ctx context.Context, ownerID string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Record
	for _, r := range s.records {
		if r.OwnerID == ownerID {
			res = append(res, r)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID > res[j].ID
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func (s *InMemory) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.records {
		if r.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (s *InMemory) DeleteByID(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok || r.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(s.records, id)
	return nil
}
