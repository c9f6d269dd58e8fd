package model

import (
	"errors"

	"telegram-account-manager/internal/domain"
)

// AuthOutcome is the closed set of results a remote auth call can produce.
type AuthOutcome int

const (
	OutcomeSuccess AuthOutcome = iota
	OutcomePasswordRequired
	OutcomeInvalidCode
	OutcomePhoneUnregistered
	OutcomeInvalidPassword
	OutcomeSessionRevoked
	OutcomeUnknown
)

func (o AuthOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomePasswordRequired:
		return "password_required"
	case OutcomeInvalidCode:
		return "invalid_code"
	case OutcomePhoneUnregistered:
		return "phone_unregistered"
	case OutcomeInvalidPassword:
		return "invalid_password"
	case OutcomeSessionRevoked:
		return "session_revoked"
	default:
		return "unknown"
	}
}

// ClassifyAuth maps an error returned by the auth gateway onto an AuthOutcome.
func ClassifyAuth(err error) AuthOutcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, domain.ErrPasswordRequired):
		return OutcomePasswordRequired
	case errors.Is(err, domain.ErrInvalidCode):
		return OutcomeInvalidCode
	case errors.Is(err, domain.ErrPhoneUnregistered):
		return OutcomePhoneUnregistered
	case errors.Is(err, domain.ErrInvalidPassword):
		return OutcomeInvalidPassword
	case errors.Is(err, domain.ErrSessionRevoked), errors.Is(err, domain.ErrNotAuthorized):
		return OutcomeSessionRevoked
	default:
		return OutcomeUnknown
	}
}
