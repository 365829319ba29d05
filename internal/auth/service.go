package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"contratos.app/internal/ids"
	"contratos.app/internal/plan"
)

const (
	defaultSessionTTL = 24 * time.Hour
	fallbackName      = "Usuário"
)

// Service owns the session lifecycle: sign-up, sign-in, per-request resolve
// and sign-out.
type Service struct {
	accounts AccountStore
	sessions SessionStore
	usage    UsageCounter
	tokens   *Tokens
	now      func() time.Time
	ttl      time.Duration
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithSessionTTL configures how long a session stays valid.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewService constructs Service with optional configuration.
func NewService(accounts AccountStore, sessions SessionStore, usage UsageCounter, tokens *Tokens, opts ...ServiceOption) (*Service, error) {
	if accounts == nil || sessions == nil || usage == nil || tokens == nil {
		return nil, errors.New("auth: accounts, sessions, usage and tokens are required")
	}
	svc := &Service{
		accounts: accounts,
		sessions: sessions,
		usage:    usage,
		tokens:   tokens,
		now:      time.Now,
		ttl:      defaultSessionTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SignUp registers an active account on the free plan and opens a session.
func (s *Service) SignUp(ctx context.Context, name, email, password string) (Principal, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return Principal{}, fmt.Errorf("%w: email is invalid", ErrInvalidInput)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return Principal{}, err
	}
	acct := &Account{
		ID:           ids.New(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hash,
		Status:       StatusActive,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.accounts.Create(ctx, acct, plan.Free); err != nil {
		return Principal{}, err
	}
	return s.open(ctx, acct)
}

// SignIn checks credentials and opens a new session.
func (s *Service) SignIn(ctx context.Context, email, password string) (Principal, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Principal{}, ErrInvalidCredentials
	}
	acct, err := s.accounts.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return Principal{}, ErrInvalidCredentials
	}
	if err != nil {
		return Principal{}, err
	}
	if err := VerifyPassword(acct.PasswordHash, password); err != nil {
		return Principal{}, ErrInvalidCredentials
	}
	if acct.Status != StatusActive {
		return Principal{}, ErrUnconfirmed
	}
	return s.open(ctx, acct)
}

// SignOut deletes the session behind token. Tokens for that session stop
// resolving immediately.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return err
	}
	return s.sessions.Delete(ctx, claims.SessionID())
}

// Resolve restores the principal for a bearer token. Signed-out or expired
// sessions report ErrInvalidToken.
func (s *Service) Resolve(ctx context.Context, token string) (Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return Principal{}, err
	}
	sess, err := s.sessions.Find(ctx, claims.SessionID())
	if errors.Is(err, ErrNotFound) {
		return Principal{}, ErrInvalidToken
	}
	if err != nil {
		return Principal{}, err
	}
	if sess.AccountID != claims.Subject {
		return Principal{}, ErrInvalidToken
	}
	acct, err := s.accounts.Find(ctx, sess.AccountID)
	if errors.Is(err, ErrNotFound) {
		return Principal{}, ErrInvalidToken
	}
	if err != nil {
		return Principal{}, err
	}
	ident, err := s.identity(ctx, acct)
	if err != nil {
		return Principal{}, err
	}
	return Principal{Identity: ident, SessionID: sess.ID, Token: strings.TrimSpace(token)}, nil
}

// RefreshUsage re-counts the contracts the identity owns.
func (s *Service) RefreshUsage(ctx context.Context, ident Identity) (Identity, error) {
	n, err := s.usage.CountByOwner(ctx, ident.ID)
	if err != nil {
		return ident, fmt.Errorf("count contracts: %w", err)
	}
	ident.ContractsUsed = n
	return ident, nil
}

func (s *Service) open(ctx context.Context, acct *Account) (Principal, error) {
	ident, err := s.identity(ctx, acct)
	if err != nil {
		return Principal{}, err
	}
	now := s.now().UTC()
	sess := Session{
		ID:        uuid.NewString(),
		AccountID: acct.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	token, err := s.tokens.Issue(sess)
	if err != nil {
		return Principal{}, err
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return Principal{}, err
	}
	return Principal{Identity: ident, SessionID: sess.ID, Token: token}, nil
}

// identity loads the plan tier and usage for an account. A missing
// subscription row is recorded as free.
func (s *Service) identity(ctx context.Context, acct *Account) (Identity, error) {
	tier, err := s.accounts.Subscription(ctx, acct.ID)
	if errors.Is(err, ErrNotFound) {
		tier = plan.Free
		if err := s.accounts.SetSubscription(ctx, acct.ID, tier); err != nil {
			return Identity{}, fmt.Errorf("create subscription: %w", err)
		}
	} else if err != nil {
		return Identity{}, fmt.Errorf("load subscription: %w", err)
	}
	return s.RefreshUsage(ctx, Identity{
		ID:    acct.ID,
		Name:  DisplayName(acct.Name, acct.Email),
		Email: acct.Email,
		Plan:  tier,
	})
}

// DisplayName picks the stored name, then the email local part, then a
// generic placeholder.
func DisplayName(name, email string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	if local, _, ok := strings.Cut(email, "@"); ok && strings.TrimSpace(local) != "" {
		return strings.TrimSpace(local)
	}
	return fallbackName
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
