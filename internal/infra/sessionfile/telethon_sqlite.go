// Package sessionfile writes session strings as Telethon-compatible SQLite session files.
package sessionfile

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"telegram-account-manager/internal/domain/ports/adapter"
	"telegram-account-manager/internal/infra/adapters/mtproto"
)

const schemaVersion = 7

var schema = []string{
	`CREATE TABLE version (version INTEGER PRIMARY KEY)`,
	`CREATE TABLE sessions (
		dc_id INTEGER PRIMARY KEY,
		server_address TEXT,
		port INTEGER,
		auth_key BLOB,
		takeout_id INTEGER
	)`,
	`CREATE TABLE entities (
		id INTEGER PRIMARY KEY,
		hash INTEGER NOT NULL,
		username TEXT,
		phone INTEGER,
		name TEXT,
		date INTEGER
	)`,
	`CREATE TABLE sent_files (
		md5_digest BLOB,
		file_size INTEGER,
		type INTEGER,
		id INTEGER,
		hash INTEGER,
		PRIMARY KEY (md5_digest, file_size, type)
	)`,
	`CREATE TABLE update_state (
		id INTEGER PRIMARY KEY,
		pts INTEGER,
		qts INTEGER,
		date INTEGER,
		seq INTEGER
	)`,
}

type Writer struct{}

var _ adapter.SessionFileWriter = Writer{}

func NewWriter() Writer { return Writer{} }

// WriteSessionFile creates path (replacing any existing file) holding the endpoint
// and auth key of session.
func (Writer) WriteSessionFile(ctx context.Context, session, path string) error {
	ep, err := mtproto.DecodeStringSession(session)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale session file: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open session file: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO version VALUES (?)`, schemaVersion); err != nil {
		return fmt.Errorf("write version: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (dc_id, server_address, port, auth_key, takeout_id) VALUES (?, ?, ?, ?, NULL)`,
		ep.DC, ep.Address, ep.Port, ep.AuthKey,
	); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
