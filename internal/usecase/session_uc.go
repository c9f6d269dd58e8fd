// File: internal/usecase/session_uc.go
package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"telegram-account-manager/internal/domain"
	"telegram-account-manager/internal/domain/model"
	"telegram-account-manager/internal/domain/ports/adapter"
	"telegram-account-manager/internal/domain/ports/repository"
	"telegram-account-manager/internal/infra/logging"
	"telegram-account-manager/internal/infra/metrics"
)

// Compile-time check
var _ SessionUseCase = (*sessionUC)(nil)

// SessionUseCase operates on stored accounts. Every (owner, phone) operation returns
// domain.ErrNotFound when no record exists.
type SessionUseCase interface {
	// Probe reports whether the account's session is authorized. It never fails.
	Probe(ctx context.Context, acc *model.Account) bool
	ListAccounts(ctx context.Context, ownerID int64) ([]model.AccountStatus, error)
	// ProfileInfo deletes the record and returns domain.ErrSessionRevoked when the
	// session is no longer accepted.
	ProfileInfo(ctx context.Context, ownerID int64, phone string) (*model.Profile, error)
	// ServiceCodes returns domain.ErrSessionRevoked for a dead session but keeps the record.
	ServiceCodes(ctx context.Context, ownerID int64, phone string) (*model.ServiceCodeReport, error)
	// Export writes a session file, passes its path to deliver and removes the file
	// before returning.
	Export(ctx context.Context, ownerID int64, phone string, deliver func(ctx context.Context, path string) error) error
	Delete(ctx context.Context, ownerID int64, phone string) error
}

// SessionOptions tunes code extraction and export.
type SessionOptions struct {
	ExportDir       string
	ServiceSenderID int64
	CodeLimit       int
	CodeMarkers     []string
	Location        *time.Location
	Dev             bool
}

type sessionUC struct {
	accounts repository.AccountRepository
	gateway  adapter.AuthGateway
	files    adapter.SessionFileWriter
	opts     SessionOptions
	log      *zerolog.Logger
}

func NewSessionUseCase(
	accounts repository.AccountRepository,
	gateway adapter.AuthGateway,
	files adapter.SessionFileWriter,
	opts SessionOptions,
	logger *zerolog.Logger,
) *sessionUC {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.ExportDir == "" {
		opts.ExportDir = os.TempDir()
	}
	return &sessionUC{
		accounts: accounts,
		gateway:  gateway,
		files:    files,
		opts:     opts,
		log:      logger,
	}
}

func (u *sessionUC) Probe(ctx context.Context, acc *model.Account) bool {
	defer logging.TraceDuration(u.log, "SessionUC.Probe")()

	var authorized bool
	_, err := u.gateway.Dial(ctx, acc.App, acc.Session, func(ctx context.Context, conn adapter.GatewayConn) error {
		ok, err := conn.IsAuthorized(ctx)
		authorized = ok
		return err
	})
	if err != nil {
		u.log.Debug().Err(err).Str("phone", logging.Redact(acc.Phone, u.opts.Dev)).Msg("validity probe failed")
		return false
	}
	return authorized
}

func (u *sessionUC) ListAccounts(ctx context.Context, ownerID int64) ([]model.AccountStatus, error) {
	defer logging.TraceDuration(u.log, "SessionUC.ListAccounts")()

	phones, err := u.accounts.ListPhones(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]model.AccountStatus, 0, len(phones))
	for _, phone := range phones {
		st := model.AccountStatus{Phone: phone}
		acc, err := u.accounts.Get(ctx, ownerID, phone)
		if err == nil {
			st.Valid = u.Probe(ctx, acc)
		}
		out = append(out, st)
	}
	return out, nil
}

func (u *sessionUC) ProfileInfo(ctx context.Context, ownerID int64, phone string) (*model.Profile, error) {
	defer logging.TraceDuration(u.log, "SessionUC.ProfileInfo")()

	acc, err := u.accounts.Get(ctx, ownerID, phone)
	if err != nil {
		return nil, err
	}

	var profile *model.Profile
	_, err = u.gateway.Dial(ctx, acc.App, acc.Session, func(ctx context.Context, conn adapter.GatewayConn) error {
		if err := requireAuthorized(ctx, conn); err != nil {
			return err
		}
		p, err := conn.Self(ctx)
		profile = p
		return err
	})
	if err != nil {
		if model.ClassifyAuth(err) == model.OutcomeSessionRevoked {
			if derr := u.accounts.Delete(ctx, ownerID, acc.Phone); derr != nil {
				u.log.Error().Err(derr).Str("phone", logging.Redact(acc.Phone, u.opts.Dev)).Msg("failed to delete revoked account")
			} else {
				metrics.IncSessionRevokedDeleted()
			}
			metrics.IncSessionOperation("info", "revoked")
			u.log.Info().Err(err).Str("phone", logging.Redact(acc.Phone, u.opts.Dev)).Msg("session revoked, account removed")
			return nil, domain.ErrSessionRevoked
		}
		metrics.IncSessionOperation("info", "error")
		return nil, fmt.Errorf("profile info: %w", err)
	}

	metrics.IncSessionOperation("info", "ok")
	return profile, nil
}

func (u *sessionUC) ServiceCodes(ctx context.Context, ownerID int64, phone string) (*model.ServiceCodeReport, error) {
	defer logging.TraceDuration(u.log, "SessionUC.ServiceCodes")()

	acc, err := u.accounts.Get(ctx, ownerID, phone)
	if err != nil {
		return nil, err
	}

	var msgs []model.ServiceMessage
	_, err = u.gateway.Dial(ctx, acc.App, acc.Session, func(ctx context.Context, conn adapter.GatewayConn) error {
		if err := requireAuthorized(ctx, conn); err != nil {
			return err
		}
		m, err := conn.RecentMessages(ctx, u.opts.ServiceSenderID, u.opts.CodeLimit)
		msgs = m
		return err
	})
	if err != nil {
		if model.ClassifyAuth(err) == model.OutcomeSessionRevoked {
			metrics.IncSessionOperation("codes", "revoked")
			return nil, domain.ErrSessionRevoked
		}
		metrics.IncSessionOperation("codes", "error")
		return nil, fmt.Errorf("service codes: %w", err)
	}

	if len(msgs) > u.opts.CodeLimit && u.opts.CodeLimit > 0 {
		msgs = msgs[:u.opts.CodeLimit]
	}
	metrics.IncSessionOperation("codes", "ok")
	return BuildCodeReport(msgs, u.opts.CodeMarkers, u.opts.Location), nil
}

func (u *sessionUC) Export(ctx context.Context, ownerID int64, phone string, deliver func(ctx context.Context, path string) error) error {
	defer logging.TraceDuration(u.log, "SessionUC.Export")()

	acc, err := u.accounts.Get(ctx, ownerID, phone)
	if err != nil {
		return err
	}

	name := fmt.Sprintf("%s_%s.session", strings.TrimPrefix(acc.Phone, "+"), ulid.Make())
	path := filepath.Join(u.opts.ExportDir, filepath.Base(name))
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			u.log.Error().Err(err).Str("path", path).Msg("failed to remove exported session file")
		}
	}()

	if err := u.files.WriteSessionFile(ctx, acc.Session, path); err != nil {
		metrics.IncSessionOperation("export", "error")
		return fmt.Errorf("write session file: %w", err)
	}
	if err := deliver(ctx, path); err != nil {
		metrics.IncSessionOperation("export", "error")
		return fmt.Errorf("deliver session file: %w", err)
	}
	metrics.IncSessionOperation("export", "ok")
	return nil
}

func (u *sessionUC) Delete(ctx context.Context, ownerID int64, phone string) error {
	defer logging.TraceDuration(u.log, "SessionUC.Delete")()

	acc, err := u.accounts.Get(ctx, ownerID, phone)
	if err != nil {
		return err
	}
	if err := u.accounts.Delete(ctx, ownerID, acc.Phone); err != nil {
		metrics.IncSessionOperation("delete", "error")
		return err
	}
	metrics.IncSessionOperation("delete", "ok")
	u.log.Info().Int64("owner_id", ownerID).Str("phone", logging.Redact(acc.Phone, u.opts.Dev)).Msg("account deleted")
	return nil
}

func requireAuthorized(ctx context.Context, conn adapter.GatewayConn) error {
	ok, err := conn.IsAuthorized(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotAuthorized
	}
	return nil
}
