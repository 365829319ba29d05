package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"contratos.app/internal/auth"
	"contratos.app/internal/plan"
)

const uniqueViolation = "23505"

var _ auth.AccountStore = (*AccountStore)(nil)

// AccountStore keeps accounts and their subscription tier.
type AccountStore struct {
	db *sql.DB
}

// Create inserts the account and its subscription row in one transaction.
func (s *AccountStore) Create(ctx context.Context, a *auth.Account, tier plan.Tier) (err error) {
	if a == nil || a.ID == "" || a.Email == "" {
		return auth.ErrInvalidInput
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		insert into accounts(id, name, email, password_hash, status, created_at)
		values ($1, $2, lower($3), $4, $5, $6)
	`, a.ID, a.Name, a.Email, a.PasswordHash, a.Status, a.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return auth.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	if tier != "" {
		if _, err = tx.ExecContext(ctx, upsertSubscription, a.ID, string(tier)); err != nil {
			return fmt.Errorf("insert subscription: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const accountColumns = `id, name, email, password_hash, status, created_at`

func (s *AccountStore) Find(ctx context.Context, id string) (*auth.Account, error) {
	row := s.db.QueryRowContext(ctx, `select `+accountColumns+` from accounts where id = $1`, id)
	return scanAccount(row)
}

func (s *AccountStore) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := s.db.QueryRowContext(ctx, `select `+accountColumns+` from accounts where email = lower($1)`, email)
	return scanAccount(row)
}

func scanAccount(row *sql.Row) (*auth.Account, error) {
	var a auth.Account
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Status, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

func (s *AccountStore) Subscription(ctx context.Context, accountID string) (plan.Tier, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `select plano from subscriptions where account_id = $1`, accountID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", auth.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return plan.Parse(raw), nil
}

const upsertSubscription = `
	insert into subscriptions(account_id, plano, updated_at)
	values ($1, $2, now())
	on conflict (account_id) do update
	set plano = excluded.plano, updated_at = excluded.updated_at
`

func (s *AccountStore) SetSubscription(ctx context.Context, accountID string, tier plan.Tier) error {
	_, err := s.db.ExecContext(ctx, upsertSubscription, accountID, string(tier))
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}
