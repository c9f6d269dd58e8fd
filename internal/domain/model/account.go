package model

import (
	"regexp"
	"strings"
	"time"

	"telegram-account-manager/internal/domain"
)

// AppCredentials identify the MTProto application a session was created with.
type AppCredentials struct {
	ID   int
	Hash string
}

// Account is a stored Telegram user session owned by a bot user.
// (OwnerID, Phone) is unique.
type Account struct {
	OwnerID   int64
	Phone     string
	App       AppCredentials
	Session   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewAccount(ownerID int64, phone string, app AppCredentials, session string) (*Account, error) {
	phone = NormalizePhone(phone)
	if ownerID == 0 || !ValidPhone(phone) {
		return nil, domain.ErrInvalidArgument
	}
	if app.ID <= 0 || app.Hash == "" {
		return nil, domain.ErrInvalidArgument
	}
	if session == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Account{
		OwnerID:   ownerID,
		Phone:     phone,
		App:       app,
		Session:   session,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AccountStatus pairs a stored phone with the result of a validity probe.
type AccountStatus struct {
	Phone string
	Valid bool
}

var phonePattern = regexp.MustCompile(`^\+?[0-9]+$`)

// ValidPhone reports whether a normalized phone is an optional "+" followed by digits.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// NormalizePhone strips whitespace and common separators users type into phone numbers.
func NormalizePhone(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '-', '(', ')':
			return -1
		}
		return r
	}, s)
}
