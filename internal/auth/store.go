package auth

import (
	"context"

	"contratos.app/internal/plan"
)

// AccountStore persists accounts and their subscription tier.
type AccountStore interface {
	// Create stores a new account together with its subscription tier in one
	// write; a duplicate email reports ErrAlreadyExists and stores nothing.
	// An empty tier stores the account alone.
	Create(ctx context.Context, a *Account, tier plan.Tier) error
	Find(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	// Subscription returns the stored tier or ErrNotFound when none was recorded.
	Subscription(ctx context.Context, accountID string) (plan.Tier, error)
	SetSubscription(ctx context.Context, accountID string, tier plan.Tier) error
}

// SessionStore keeps server-side sessions until they expire or are deleted.
type SessionStore interface {
	Save(ctx context.Context, s Session) error
	// Find returns ErrNotFound for unknown or expired sessions.
	Find(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

// UsageCounter counts the contracts an account owns.
type UsageCounter interface {
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}
