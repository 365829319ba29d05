package auth

import (
	"time"

	"contratos.app/internal/plan"
)

const (
	StatusActive  = "active"
	StatusPending = "pending"
)

// Account is a registered user as stored by an AccountStore.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Status       string
	CreatedAt    time.Time
}

// Identity is the signed-in user as the rest of the service sees it.
type Identity struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Plan          plan.Tier `json:"plan"`
	ContractsUsed int       `json:"contracts_used"`
}

// CanCreate applies the plan limit to the identity's current usage.
func (i Identity) CanCreate() bool {
	return plan.Allows(i.Plan, i.ContractsUsed)
}

// Session is a server-side sign-in. Signing out deletes it, which invalidates
// every token that references it.
type Session struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Principal is a resolved request identity together with its session.
type Principal struct {
	Identity  Identity
	SessionID string
	Token     string
}
