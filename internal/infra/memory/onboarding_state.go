package memory

import (
	"context"
	"sync"

	"telegram-account-manager/internal/domain"
	"telegram-account-manager/internal/domain/model"
	"telegram-account-manager/internal/domain/ports/repository"
)

var _ repository.OnboardingStateRepository = (*OnboardingStateRepo)(nil)

// OnboardingStateRepo keeps onboarding contexts in process memory, keyed by owner.
// Contexts are copied on the way in and out so callers never share a pointer.
// Nothing survives a restart.
type OnboardingStateRepo struct {
	mu    sync.Mutex
	state map[int64]model.OnboardingContext
}

func NewOnboardingStateRepo() *OnboardingStateRepo {
	return &OnboardingStateRepo{state: make(map[int64]model.OnboardingContext)}
}

func (r *OnboardingStateRepo) Put(ctx context.Context, oc *model.OnboardingContext) error {
	if oc == nil || oc.OwnerID == 0 {
		return domain.ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[oc.OwnerID] = *oc
	return nil
}

func (r *OnboardingStateRepo) Get(ctx context.Context, ownerID int64) (*model.OnboardingContext, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	oc, ok := r.state[ownerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &oc, nil
}

func (r *OnboardingStateRepo) Clear(ctx context.Context, ownerID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state, ownerID)
	return nil
}

// Len reports the number of in-flight onboardings.
func (r *OnboardingStateRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.state)
}
