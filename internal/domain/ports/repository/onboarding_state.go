package repository

import (
	"context"

	"telegram-account-manager/internal/domain/model"
)

// OnboardingStateRepository is the port for the per-owner transient onboarding context.
// Implementations keep at most one context per owner; Put overwrites.
type OnboardingStateRepository interface {
	Put(ctx context.Context, oc *model.OnboardingContext) error
	Get(ctx context.Context, ownerID int64) (*model.OnboardingContext, error)
	Clear(ctx context.Context, ownerID int64) error
}
