package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"contratos.app/internal/plan"
)

// MemoryAccounts is an AccountStore for tests and single-process dev runs.
type MemoryAccounts struct {
	mu      sync.RWMutex
	byID    map[string]Account
	byEmail map[string]string
	subs    map[string]plan.Tier
}

func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{
		byID:    make(map[string]Account),
		byEmail: make(map[string]string),
		subs:    make(map[string]plan.Tier),
	}
}

func (m *MemoryAccounts) Create(ctx context.Context, a *Account, tier plan.Tier) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a == nil || a.ID == "" || a.Email == "" {
		return ErrInvalidInput
	}
	email := strings.ToLower(a.Email)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[email]; ok {
		return ErrAlreadyExists
	}
	if _, ok := m.byID[a.ID]; ok {
		return ErrAlreadyExists
	}
	m.byID[a.ID] = *a
	m.byEmail[email] = a.ID
	if tier != "" {
		m.subs[a.ID] = tier
	}
	return nil
}

func (m *MemoryAccounts) Find(ctx context.Context, id string) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *MemoryAccounts) FindByEmail(ctx context.Context, email string) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	a := m.byID[id]
	return &a, nil
}

func (m *MemoryAccounts) Subscription(ctx context.Context, accountID string) (plan.Tier, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	tier, ok := m.subs[accountID]
	if !ok {
		return "", ErrNotFound
	}
	return tier, nil
}

func (m *MemoryAccounts) SetSubscription(ctx context.Context, accountID string, tier plan.Tier) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[accountID]; !ok {
		return ErrNotFound
	}
	m.subs[accountID] = tier
	return nil
}

// MemorySessions is a SessionStore that drops sessions once they expire.
type MemorySessions struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

func NewMemorySessions(now func() time.Time) *MemorySessions {
	if now == nil {
		now = time.Now
	}
	return &MemorySessions{sessions: make(map[string]Session), now: now}
}

func (m *MemorySessions) Save(ctx context.Context, s Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.ID == "" {
		return ErrInvalidInput
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return nil
}

func (m *MemorySessions) Find(ctx context.Context, id string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	if !m.now().Before(s.ExpiresAt) {
		delete(m.sessions, id)
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemorySessions) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}
