package repository

import (
	"context"

	"telegram-account-manager/internal/domain/model"
)

// -----------------------------
// Accounts
// -----------------------------

// AccountRepository persists credential records keyed by (owner, phone).
// Get returns domain.ErrNotFound when no record exists.
type AccountRepository interface {
	Upsert(ctx context.Context, acc *model.Account) error
	ListPhones(ctx context.Context, ownerID int64) ([]string, error)
	Get(ctx context.Context, ownerID int64, phone string) (*model.Account, error)
	Delete(ctx context.Context, ownerID int64, phone string) error
}
