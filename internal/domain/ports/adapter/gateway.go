// File: internal/domain/ports/adapter/gateway.go
package adapter

import (
	"context"

	"telegram-account-manager/internal/domain/model"
)

// AuthGateway opens scoped connections to the Telegram MTProto API.
//
// Dial restores the connection from session (empty means a fresh session), runs fn while
// connected and closes the connection before returning, whatever fn returns. The returned
// string is the session as it stood when the connection closed; it is returned even when
// fn fails so callers can carry a provisional session to the next step.
//
// Failures are wrapped with the domain gateway sentinels (domain.ErrPasswordRequired,
// domain.ErrInvalidCode, ...) so they can be classified with model.ClassifyAuth.
type AuthGateway interface {
	Dial(ctx context.Context, app model.AppCredentials, session string, fn func(ctx context.Context, conn GatewayConn) error) (string, error)
}

// GatewayConn is a live connection handed to the Dial callback. It must not be retained.
type GatewayConn interface {
	RequestCode(ctx context.Context, phone string) (token string, err error)
	SignIn(ctx context.Context, phone, code, token string) error
	CheckPassword(ctx context.Context, password string) error
	IsAuthorized(ctx context.Context) (bool, error)
	Self(ctx context.Context) (*model.Profile, error)
	RecentMessages(ctx context.Context, senderID int64, limit int) ([]model.ServiceMessage, error)
}

// SessionFileWriter writes a session string as a file-backed session at path.
type SessionFileWriter interface {
	WriteSessionFile(ctx context.Context, session string, path string) error
}
