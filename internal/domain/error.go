package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNoActiveOnboarding = errors.New("no onboarding in progress")

	// Remote auth gateway failures. Adapters wrap the remote error with one of these.
	ErrPasswordRequired  = errors.New("two-factor password required")
	ErrInvalidCode       = errors.New("invalid login code")
	ErrPhoneUnregistered = errors.New("phone number is not registered")
	ErrInvalidPassword   = errors.New("invalid two-factor password")
	ErrSessionRevoked    = errors.New("session revoked")
	ErrNotAuthorized     = errors.New("session is not authorized")
)
