// File: internal/infra/adapters/mtproto/gateway.go
package mtproto

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"

	"telegram-account-manager/internal/domain"
	"telegram-account-manager/internal/domain/model"
	"telegram-account-manager/internal/domain/ports/adapter"
	"telegram-account-manager/internal/infra/metrics"
)

// dialogScanLimit bounds the dialog page scanned per folder when the service sender
// cannot be resolved by id.
const dialogScanLimit = 100

// archiveFolderID is the folder Telegram moves archived chats to.
const archiveFolderID = 1

// Gateway opens short-lived MTProto connections backed by an in-memory session storage
// seeded from a session string.
type Gateway struct {
	log *zerolog.Logger
}

var _ adapter.AuthGateway = (*Gateway)(nil)

func NewGateway(logger *zerolog.Logger) *Gateway {
	return &Gateway{log: logger}
}

// Dial runs fn on a connected client and returns the session string captured after fn,
// including when fn fails. The input session is returned when nothing could be captured.
func (g *Gateway) Dial(ctx context.Context, app model.AppCredentials, sess string, fn func(ctx context.Context, conn adapter.GatewayConn) error) (string, error) {
	start := time.Now()
	storage := new(session.StorageMemory)
	loader := session.Loader{Storage: storage}

	if sess != "" {
		data, err := session.TelethonSession(sess)
		if err != nil {
			return sess, fmt.Errorf("decode session: %w", err)
		}
		if err := loader.Save(ctx, data); err != nil {
			return sess, fmt.Errorf("restore session: %w", err)
		}
	}

	client := telegram.NewClient(app.ID, app.Hash, telegram.Options{
		SessionStorage: storage,
		NoUpdates:      true,
	})
	runErr := client.Run(ctx, func(ctx context.Context) error {
		return fn(ctx, &conn{client: client, api: client.API()})
	})

	out := sess
	data, loadErr := loader.Load(ctx)
	switch {
	case loadErr == nil:
		if encoded, err := encodeData(data); err == nil {
			out = encoded
		} else {
			g.log.Warn().Err(err).Msg("gateway: failed to encode session snapshot")
		}
	case errors.Is(loadErr, session.ErrNotFound):
	default:
		g.log.Warn().Err(loadErr).Msg("gateway: failed to load session snapshot")
	}

	metrics.ObserveGatewayDial(time.Since(start), runErr == nil)
	if runErr != nil {
		return out, classify(runErr)
	}
	return out, nil
}

// peerAPI is the part of *tg.Client used to locate and read a peer's history.
type peerAPI interface {
	UsersGetUsers(ctx context.Context, id []tg.InputUserClass) ([]tg.UserClass, error)
	MessagesGetDialogs(ctx context.Context, request *tg.MessagesGetDialogsRequest) (tg.MessagesDialogsClass, error)
	MessagesGetHistory(ctx context.Context, request *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error)
}

type conn struct {
	client *telegram.Client
	api    peerAPI
}

func (c *conn) RequestCode(ctx context.Context, phone string) (string, error) {
	sent, err := c.client.Auth().SendCode(ctx, phone, auth.SendCodeOptions{})
	if err != nil {
		return "", classify(err)
	}
	s, ok := sent.(*tg.AuthSentCode)
	if !ok {
		return "", fmt.Errorf("unexpected sent code %T", sent)
	}
	return s.PhoneCodeHash, nil
}

func (c *conn) SignIn(ctx context.Context, phone, code, token string) error {
	_, err := c.client.Auth().SignIn(ctx, phone, code, token)
	return classify(err)
}

func (c *conn) CheckPassword(ctx context.Context, password string) error {
	_, err := c.client.Auth().Password(ctx, password)
	return classify(err)
}

func (c *conn) IsAuthorized(ctx context.Context) (bool, error) {
	st, err := c.client.Auth().Status(ctx)
	if err != nil {
		return false, classify(err)
	}
	return st.Authorized, nil
}

func (c *conn) Self(ctx context.Context) (*model.Profile, error) {
	u, err := c.client.Self(ctx)
	if err != nil {
		return nil, classify(err)
	}
	if u == nil {
		return nil, domain.ErrNotAuthorized
	}
	return &model.Profile{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Phone:     u.Phone,
		Premium:   u.Premium,
	}, nil
}

// RecentMessages returns up to limit newest messages from senderID, newest first.
// An empty slice is returned when there is no dialog with the sender.
func (c *conn) RecentMessages(ctx context.Context, senderID int64, limit int) ([]model.ServiceMessage, error) {
	peer, err := c.resolveUser(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if peer == nil {
		return []model.ServiceMessage{}, nil
	}

	res, err := c.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:  peer,
		Limit: limit,
	})
	if err != nil {
		return nil, classify(err)
	}
	return historyMessages(res), nil
}

// resolveUser looks the user up by id first, the way a fresh session does without a
// cached access hash, then falls back to scanning the main and archive dialog folders.
func (c *conn) resolveUser(ctx context.Context, id int64) (*tg.InputPeerUser, error) {
	users, err := c.api.UsersGetUsers(ctx, []tg.InputUserClass{&tg.InputUser{UserID: id}})
	if err == nil {
		if peer := findUserPeer(users, id); peer != nil {
			return peer, nil
		}
	}

	for _, folder := range []int{0, archiveFolderID} {
		req := &tg.MessagesGetDialogsRequest{
			OffsetPeer: &tg.InputPeerEmpty{},
			Limit:      dialogScanLimit,
		}
		if folder != 0 {
			req.SetFolderID(folder)
		}
		res, err := c.api.MessagesGetDialogs(ctx, req)
		if err != nil {
			return nil, classify(err)
		}
		if peer := findUserPeer(dialogUsers(res), id); peer != nil {
			return peer, nil
		}
	}
	return nil, nil
}

func dialogUsers(res tg.MessagesDialogsClass) []tg.UserClass {
	switch d := res.(type) {
	case *tg.MessagesDialogs:
		return d.Users
	case *tg.MessagesDialogsSlice:
		return d.Users
	}
	return nil
}
