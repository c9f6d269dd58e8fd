package mtproto

import (
	"errors"
	"fmt"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tgerr"

	"telegram-account-manager/internal/domain"
)

// RPC error types meaning the authorization key will never work again.
var revokedTypes = []string{
	"AUTH_KEY_UNREGISTERED",
	"AUTH_KEY_INVALID",
	"AUTH_KEY_PERM_EMPTY",
	"SESSION_REVOKED",
	"SESSION_EXPIRED",
	"USER_DEACTIVATED",
	"USER_DEACTIVATED_BAN",
}

var gatewaySentinels = []error{
	domain.ErrPasswordRequired,
	domain.ErrInvalidCode,
	domain.ErrPhoneUnregistered,
	domain.ErrInvalidPassword,
	domain.ErrSessionRevoked,
	domain.ErrNotAuthorized,
}

// classify wraps err with the domain sentinel matching the remote failure.
// Errors that match none are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, s := range gatewaySentinels {
		if errors.Is(err, s) {
			return err
		}
	}

	var signUp *auth.SignUpRequired
	switch {
	case errors.Is(err, auth.ErrPasswordAuthNeeded), tgerr.Is(err, "SESSION_PASSWORD_NEEDED"):
		return fmt.Errorf("%w: %w", domain.ErrPasswordRequired, err)
	case errors.Is(err, auth.ErrPasswordInvalid), tgerr.Is(err, "PASSWORD_HASH_INVALID"):
		return fmt.Errorf("%w: %w", domain.ErrInvalidPassword, err)
	case tgerr.Is(err, "PHONE_CODE_INVALID", "PHONE_CODE_EMPTY"):
		return fmt.Errorf("%w: %w", domain.ErrInvalidCode, err)
	case errors.As(err, &signUp), tgerr.Is(err, "PHONE_NUMBER_UNOCCUPIED"):
		return fmt.Errorf("%w: %w", domain.ErrPhoneUnregistered, err)
	case tgerr.Is(err, revokedTypes...):
		return fmt.Errorf("%w: %w", domain.ErrSessionRevoked, err)
	}
	return err
}
