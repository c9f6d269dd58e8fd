// File: internal/usecase/onboarding_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"telegram-account-manager/internal/domain"
	"telegram-account-manager/internal/domain/model"
	"telegram-account-manager/internal/domain/ports/adapter"
	"telegram-account-manager/internal/domain/ports/repository"
	"telegram-account-manager/internal/infra/logging"
	"telegram-account-manager/internal/infra/metrics"
)

// Compile-time check
var _ OnboardingUseCase = (*onboardingUC)(nil)

// OnboardingUseCase drives the add-account conversation:
// awaiting_phone -> awaiting_code -> (awaiting_password) -> completed, or aborted.
type OnboardingUseCase interface {
	// Start discards any context the owner had and waits for a phone number.
	Start(ctx context.Context, ownerID int64) error
	// Active reports whether the owner has an onboarding in progress.
	Active(ctx context.Context, ownerID int64) (bool, error)
	// Step returns the step the owner is at, or domain.ErrNoActiveOnboarding.
	Step(ctx context.Context, ownerID int64) (model.OnboardingStep, error)
	// Handle feeds free text to the step the owner is at.
	Handle(ctx context.Context, ownerID int64, text string) (model.StepResult, error)
	SubmitPhone(ctx context.Context, ownerID int64, phone string) (model.StepResult, error)
	SubmitCode(ctx context.Context, ownerID int64, code string) (model.StepResult, error)
	SubmitPassword(ctx context.Context, ownerID int64, password string) (model.StepResult, error)
	// Cancel drops the owner's context. It reports whether there was one.
	Cancel(ctx context.Context, ownerID int64) (bool, error)
}

type onboardingUC struct {
	gateway  adapter.AuthGateway
	accounts repository.AccountRepository
	states   repository.OnboardingStateRepository
	app      model.AppCredentials
	log      *zerolog.Logger
	dev      bool
}

func NewOnboardingUseCase(
	gateway adapter.AuthGateway,
	accounts repository.AccountRepository,
	states repository.OnboardingStateRepository,
	app model.AppCredentials,
	logger *zerolog.Logger,
	dev bool,
) *onboardingUC {
	return &onboardingUC{
		gateway:  gateway,
		accounts: accounts,
		states:   states,
		app:      app,
		log:      logger,
		dev:      dev,
	}
}

func (u *onboardingUC) Start(ctx context.Context, ownerID int64) error {
	defer logging.TraceDuration(u.log, "OnboardingUC.Start")()

	if err := u.states.Put(ctx, model.NewOnboardingContext(ownerID)); err != nil {
		return err
	}
	metrics.IncOnboardingStarted()
	return nil
}

func (u *onboardingUC) Active(ctx context.Context, ownerID int64) (bool, error) {
	oc, err := u.states.Get(ctx, ownerID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !oc.Step.Terminal(), nil
}

func (u *onboardingUC) Step(ctx context.Context, ownerID int64) (model.OnboardingStep, error) {
	oc, err := u.current(ctx, ownerID)
	if err != nil {
		return "", err
	}
	return oc.Step, nil
}

func (u *onboardingUC) Handle(ctx context.Context, ownerID int64, text string) (model.StepResult, error) {
	oc, err := u.current(ctx, ownerID)
	if err != nil {
		return model.StepResult{}, err
	}
	switch oc.Step {
	case model.StepAwaitingPhone:
		return u.SubmitPhone(ctx, ownerID, text)
	case model.StepAwaitingCode:
		return u.SubmitCode(ctx, ownerID, text)
	case model.StepAwaitingPassword:
		return u.SubmitPassword(ctx, ownerID, text)
	default:
		return model.StepResult{}, domain.ErrNoActiveOnboarding
	}
}

func (u *onboardingUC) SubmitPhone(ctx context.Context, ownerID int64, phone string) (model.StepResult, error) {
	defer logging.TraceDuration(u.log, "OnboardingUC.SubmitPhone")()

	oc, err := u.at(ctx, ownerID, model.StepAwaitingPhone)
	if err != nil {
		return model.StepResult{}, err
	}
	phone = model.NormalizePhone(phone)
	if !model.ValidPhone(phone) {
		return model.StepResult{Step: oc.Step}, fmt.Errorf("%w: malformed phone", domain.ErrInvalidArgument)
	}

	var token string
	sess, err := u.gateway.Dial(ctx, u.app, "", func(ctx context.Context, conn adapter.GatewayConn) error {
		t, err := conn.RequestCode(ctx, phone)
		token = t
		return err
	})
	if err != nil {
		return u.abort(ctx, oc, "phone", model.ClassifyAuth(err), err), nil
	}

	oc.Phone = phone
	oc.CodeToken = token
	oc.Session = sess
	oc.Step = model.StepAwaitingCode
	if err := u.states.Put(ctx, oc); err != nil {
		return model.StepResult{}, err
	}

	metrics.IncOnboardingStep("phone", model.OutcomeSuccess.String())
	u.log.Info().Int64("owner_id", ownerID).Str("phone", logging.Redact(phone, u.dev)).Msg("login code requested")
	return model.StepResult{Step: oc.Step, Outcome: model.OutcomeSuccess, Phone: phone}, nil
}

func (u *onboardingUC) SubmitCode(ctx context.Context, ownerID int64, code string) (model.StepResult, error) {
	defer logging.TraceDuration(u.log, "OnboardingUC.SubmitCode")()

	oc, err := u.at(ctx, ownerID, model.StepAwaitingCode)
	if err != nil {
		return model.StepResult{}, err
	}
	code = strings.TrimSpace(code)

	sess, err := u.gateway.Dial(ctx, u.app, oc.Session, func(ctx context.Context, conn adapter.GatewayConn) error {
		return conn.SignIn(ctx, oc.Phone, code, oc.CodeToken)
	})

	switch outcome := model.ClassifyAuth(err); outcome {
	case model.OutcomeSuccess:
		return u.complete(ctx, oc, "code", sess), nil
	case model.OutcomePasswordRequired:
		oc.Session = sess
		oc.Step = model.StepAwaitingPassword
		if err := u.states.Put(ctx, oc); err != nil {
			return model.StepResult{}, err
		}
		metrics.IncOnboardingStep("code", outcome.String())
		return model.StepResult{Step: oc.Step, Outcome: outcome, Phone: oc.Phone}, nil
	case model.OutcomeInvalidCode, model.OutcomePhoneUnregistered:
		return u.abort(ctx, oc, "code", outcome, err), nil
	default:
		return u.abort(ctx, oc, "code", model.OutcomeUnknown, err), nil
	}
}

func (u *onboardingUC) SubmitPassword(ctx context.Context, ownerID int64, password string) (model.StepResult, error) {
	defer logging.TraceDuration(u.log, "OnboardingUC.SubmitPassword")()

	oc, err := u.at(ctx, ownerID, model.StepAwaitingPassword)
	if err != nil {
		return model.StepResult{}, err
	}

	sess, err := u.gateway.Dial(ctx, u.app, oc.Session, func(ctx context.Context, conn adapter.GatewayConn) error {
		return conn.CheckPassword(ctx, password)
	})

	switch outcome := model.ClassifyAuth(err); outcome {
	case model.OutcomeSuccess:
		return u.complete(ctx, oc, "password", sess), nil
	case model.OutcomeInvalidPassword:
		return u.abort(ctx, oc, "password", outcome, err), nil
	default:
		return u.abort(ctx, oc, "password", model.OutcomeUnknown, err), nil
	}
}

func (u *onboardingUC) Cancel(ctx context.Context, ownerID int64) (bool, error) {
	active, err := u.Active(ctx, ownerID)
	if err != nil {
		return false, err
	}
	if err := u.states.Clear(ctx, ownerID); err != nil {
		return false, err
	}
	if active {
		metrics.IncOnboardingStep("cancel", "aborted")
	}
	return active, nil
}

// complete persists the account with the final session. It is the only store write of the flow.
func (u *onboardingUC) complete(ctx context.Context, oc *model.OnboardingContext, step, sess string) model.StepResult {
	acc, err := model.NewAccount(oc.OwnerID, oc.Phone, u.app, sess)
	if err == nil {
		err = u.accounts.Upsert(ctx, acc)
	}
	if err != nil {
		return u.abort(ctx, oc, step, model.OutcomeUnknown, fmt.Errorf("persist account: %w", err))
	}

	if err := u.states.Clear(ctx, oc.OwnerID); err != nil {
		u.log.Warn().Err(err).Int64("owner_id", oc.OwnerID).Msg("failed to clear onboarding context")
	}
	metrics.IncOnboardingStep(step, model.OutcomeSuccess.String())
	metrics.IncAccountOnboarded()
	u.log.Info().Int64("owner_id", oc.OwnerID).Str("phone", logging.Redact(oc.Phone, u.dev)).Msg("account onboarded")
	return model.StepResult{Step: model.StepCompleted, Outcome: model.OutcomeSuccess, Phone: oc.Phone}
}

func (u *onboardingUC) abort(ctx context.Context, oc *model.OnboardingContext, step string, outcome model.AuthOutcome, cause error) model.StepResult {
	if err := u.states.Clear(ctx, oc.OwnerID); err != nil {
		u.log.Warn().Err(err).Int64("owner_id", oc.OwnerID).Msg("failed to clear onboarding context")
	}
	metrics.IncOnboardingStep(step, outcome.String())

	ev := u.log.Info()
	if outcome == model.OutcomeUnknown {
		ev = u.log.Error()
	}
	ev.Err(cause).
		Int64("owner_id", oc.OwnerID).
		Str("step", step).
		Str("outcome", outcome.String()).
		Msg("onboarding aborted")

	return model.StepResult{Step: model.StepAborted, Outcome: outcome, Phone: oc.Phone, Err: cause}
}

func (u *onboardingUC) current(ctx context.Context, ownerID int64) (*model.OnboardingContext, error) {
	oc, err := u.states.Get(ctx, ownerID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNoActiveOnboarding
	}
	if err != nil {
		return nil, err
	}
	if oc.Step.Terminal() {
		return nil, domain.ErrNoActiveOnboarding
	}
	return oc, nil
}

func (u *onboardingUC) at(ctx context.Context, ownerID int64, step model.OnboardingStep) (*model.OnboardingContext, error) {
	oc, err := u.current(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if oc.Step != step {
		return nil, fmt.Errorf("%w: onboarding is at %s, not %s", domain.ErrInvalidArgument, oc.Step, step)
	}
	return oc, nil
}
