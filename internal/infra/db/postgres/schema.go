package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
)

// querier is satisfied by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS accounts (
  owner_id       BIGINT      NOT NULL,
  phone          TEXT        NOT NULL,
  app_id         INTEGER     NOT NULL,
  app_hash       TEXT        NOT NULL,
  session_string TEXT        NOT NULL,
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (owner_id, phone)
);
`

// EnsureSchema creates the accounts table if it does not exist. Safe to run on every start.
func EnsureSchema(ctx context.Context, db querier) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
