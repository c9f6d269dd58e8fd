package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"telegram-account-manager/internal/domain"
	"telegram-account-manager/internal/domain/model"
	"telegram-account-manager/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.AccountRepository = (*AccountRepo)(nil)

type AccountRepo struct {
	db querier
}

func NewAccountRepo(db querier) *AccountRepo {
	return &AccountRepo{db: db}
}

// Upsert creates the record or replaces credentials and session of an existing (owner, phone).
func (r *AccountRepo) Upsert(ctx context.Context, acc *model.Account) error {
	if acc == nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO accounts (owner_id, phone, app_id, app_hash, session_string, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (owner_id, phone) DO UPDATE SET
  app_id = EXCLUDED.app_id,
  app_hash = EXCLUDED.app_hash,
  session_string = EXCLUDED.session_string,
  updated_at = EXCLUDED.updated_at;
`
	_, err := r.db.Exec(ctx, q,
		acc.OwnerID, acc.Phone, acc.App.ID, acc.App.Hash, acc.Session, acc.CreatedAt, acc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

// ListPhones returns the owner's phones in the order they were first added.
func (r *AccountRepo) ListPhones(ctx context.Context, ownerID int64) ([]string, error) {
	const q = `
SELECT phone
  FROM accounts
 WHERE owner_id = $1
 ORDER BY created_at, phone;
`
	rows, err := r.db.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list phones: %w", err)
	}
	defer rows.Close()

	phones := make([]string, 0, 4)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan phone: %w", err)
		}
		phones = append(phones, p)
	}
	return phones, rows.Err()
}

func (r *AccountRepo) Get(ctx context.Context, ownerID int64, phone string) (*model.Account, error) {
	const q = `
SELECT owner_id, phone, app_id, app_hash, session_string, created_at, updated_at
  FROM accounts
 WHERE owner_id = $1 AND phone = $2;
`
	var acc model.Account
	err := r.db.QueryRow(ctx, q, ownerID, phone).Scan(
		&acc.OwnerID, &acc.Phone, &acc.App.ID, &acc.App.Hash, &acc.Session, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &acc, nil
}

// Delete removes the record. Deleting a missing record is not an error.
func (r *AccountRepo) Delete(ctx context.Context, ownerID int64, phone string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE owner_id = $1 AND phone = $2;`, ownerID, phone); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}
