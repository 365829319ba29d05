package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"contratos.app/internal/contract"
	"contratos.app/internal/ids"
)

var _ contract.Store = (*ContractStore)(nil)

// ContractStore keeps records in the contracts table.
type ContractStore struct {
	db *sql.DB
}

func (s *ContractStore) Insert(ctx context.Context, rec contract.NewRecord) (contract.Record, error) {
	if err := rec.Validate(); err != nil {
		return contract.Record{}, err
	}
	id := ids.New()
	var created time.Time
	err := s.db.QueryRowContext(ctx, `
		insert into contracts(id, user_id, titulo, dados_json, pdf_url)
		values ($1, $2, $3, $4, $5)
		returning created_at
	`, id, rec.OwnerID, rec.Title, []byte(rec.Payload), nullString(rec.ArtifactRef)).Scan(&created)
	if err != nil {
		return contract.Record{}, fmt.Errorf("insert contract: %w", err)
	}
	return contract.Record{
		ID:          id,
		OwnerID:     rec.OwnerID,
		Title:       rec.Title,
		Payload:     append([]byte(nil), rec.Payload...),
		CreatedAt:   created.UTC(),
		ArtifactRef: rec.ArtifactRef,
	}, nil
}

func (s *ContractStore) ListByOwner(ctx context.Context, ownerID string) ([]contract.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, titulo, dados_json, pdf_url, created_at
		from contracts
		where user_id = $1
		order by created_at desc, id desc
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	var out []contract.Record
	for rows.Next() {
		var (
			r       contract.Record
			payload []byte
			ref     sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Title, &payload, &ref, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.OwnerID = ownerID
		r.Payload = payload
		r.CreatedAt = r.CreatedAt.UTC()
		if ref.Valid {
			v := ref.String
			r.ArtifactRef = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *ContractStore) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `select count(*) from contracts where user_id = $1`, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count contracts: %w", err)
	}
	return n, nil
}

func (s *ContractStore) DeleteByID(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from contracts where id = $1 and user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete contract: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return contract.ErrNotFound
	}
	return nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
