package application

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/rs/zerolog"

	"telegram-account-manager/internal/domain"
	"telegram-account-manager/internal/domain/model"
	"telegram-account-manager/internal/infra/logging"
	"telegram-account-manager/internal/usecase"
)

// BotFacade composes usecases into high-level bot commands.
// Methods return localized HTML so the Telegram adapter just forwards them to the chat.
type BotFacade struct {
	OnboardingUC usecase.OnboardingUseCase
	SessionUC    usecase.SessionUseCase

	t               Translator
	log             *zerolog.Logger
	serviceSenderID int64
}

func NewBotFacade(
	onboardingUC usecase.OnboardingUseCase,
	sessionUC usecase.SessionUseCase,
	translator Translator,
	logger *zerolog.Logger,
	serviceSenderID int64,
) *BotFacade {
	return &BotFacade{
		OnboardingUC:    onboardingUC,
		SessionUC:       sessionUC,
		t:               translator,
		log:             logger,
		serviceSenderID: serviceSenderID,
	}
}

func (b *BotFacade) Welcome() string  { return b.t.T("welcome") }
func (b *BotFacade) MainMenu() string { return b.t.T("main_menu") }
func (b *BotFacade) Help() string     { return b.t.T("help") }

// StartOnboarding resets the owner's add-account flow and returns the phone prompt.
func (b *BotFacade) StartOnboarding(ctx context.Context, ownerID int64) string {
	if err := b.OnboardingUC.Start(ctx, ownerID); err != nil {
		logging.With(ctx, b.log).Error().Err(err).Msg("failed to start onboarding")
		return b.t.T("unknown_error")
	}
	return b.t.T("add_account_prompt")
}

func (b *BotFacade) CancelOnboarding(ctx context.Context, ownerID int64) string {
	cancelled, err := b.OnboardingUC.Cancel(ctx, ownerID)
	if err != nil {
		logging.With(ctx, b.log).Error().Err(err).Msg("failed to cancel onboarding")
		return b.t.T("unknown_error")
	}
	if !cancelled {
		return b.t.T("nothing_to_cancel")
	}
	return b.t.T("onboarding_cancelled")
}

func (b *BotFacade) OnboardingActive(ctx context.Context, ownerID int64) bool {
	active, err := b.OnboardingUC.Active(ctx, ownerID)
	return err == nil && active
}

// OnboardingInterim is shown before a slow step runs. Empty means nothing to show.
func (b *BotFacade) OnboardingInterim(ctx context.Context, ownerID int64) string {
	step, err := b.OnboardingUC.Step(ctx, ownerID)
	if err == nil && step == model.StepAwaitingPhone {
		return b.t.T("sending_code")
	}
	return ""
}

// HandleOnboardingText feeds text to the owner's flow. done reports that the flow ended
// (completed or aborted) so the caller can bring back the main menu.
func (b *BotFacade) HandleOnboardingText(ctx context.Context, ownerID int64, text string) (reply string, done bool) {
	res, err := b.OnboardingUC.Handle(ctx, ownerID, text)
	switch {
	case errors.Is(err, domain.ErrNoActiveOnboarding):
		return b.t.T("unexpected_input"), true
	case errors.Is(err, domain.ErrInvalidArgument):
		return b.t.T("invalid_phone"), false
	case err != nil:
		logging.With(ctx, b.log).Error().Err(err).Msg("onboarding step failed")
		return b.t.T("unknown_error"), true
	}

	switch res.Step {
	case model.StepAwaitingCode:
		return b.t.T("code_sent"), false
	case model.StepAwaitingPassword:
		return b.t.T("password_prompt"), false
	case model.StepCompleted:
		return b.t.T("account_added", html.EscapeString(res.Phone)), true
	}

	switch res.Outcome {
	case model.OutcomeInvalidCode:
		return b.t.T("invalid_code"), true
	case model.OutcomePhoneUnregistered:
		return b.t.T("phone_unregistered"), true
	case model.OutcomeInvalidPassword:
		return b.t.T("invalid_password"), true
	default:
		return b.t.T("onboarding_error", errText(res.Err)), true
	}
}

// ListAccounts probes every stored account. The text is the list prompt, or the
// no-accounts notice when the slice is empty.
func (b *BotFacade) ListAccounts(ctx context.Context, ownerID int64) ([]model.AccountStatus, string) {
	accounts, err := b.SessionUC.ListAccounts(ctx, ownerID)
	if err != nil {
		logging.With(ctx, b.log).Error().Err(err).Msg("failed to list accounts")
		return nil, b.t.T("unknown_error")
	}
	if len(accounts) == 0 {
		return nil, b.t.T("no_accounts")
	}
	return accounts, b.t.T("choose_account")
}

func (b *BotFacade) CheckingAccounts() string { return b.t.T("checking_accounts") }

func (b *BotFacade) AccountActions(phone string) string {
	return b.t.T("account_actions", html.EscapeString(phone))
}

// ProfileInfo returns the profile card. removed reports that the account was dropped
// because its session was revoked.
func (b *BotFacade) ProfileInfo(ctx context.Context, ownerID int64, phone string) (text string, removed bool) {
	p, err := b.SessionUC.ProfileInfo(ctx, ownerID, phone)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return b.t.T("account_not_found"), false
	case errors.Is(err, domain.ErrSessionRevoked):
		return b.t.T("session_revoked_info"), true
	case err != nil:
		logging.With(ctx, b.log).Error().Err(err).Msg("profile info failed")
		return b.t.T("info_error", errText(err)), false
	}

	premium := b.t.T("no")
	if p.Premium {
		premium = b.t.T("yes")
	}
	return b.t.T("info",
		html.EscapeString(p.Phone),
		p.ID,
		b.orNone(p.FirstName),
		b.orNone(p.LastName),
		b.orNone(p.Username),
		premium,
	), false
}

func (b *BotFacade) ServiceCodes(ctx context.Context, ownerID int64, phone string) string {
	report, err := b.SessionUC.ServiceCodes(ctx, ownerID, phone)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return b.t.T("account_not_found")
	case errors.Is(err, domain.ErrSessionRevoked):
		return b.t.T("session_revoked_codes")
	case err != nil:
		logging.With(ctx, b.log).Error().Err(err).Msg("service codes failed")
		return b.t.T("codes_error", errText(err))
	}
	return b.FormatCodeReport(report)
}

// FormatCodeReport renders a report as "<code>HH:MM:SS</code> — line" entries under a count header.
func (b *BotFacade) FormatCodeReport(report *model.ServiceCodeReport) string {
	if report.Empty() {
		return b.t.T("codes_none", b.serviceSenderID)
	}
	lines := make([]string, 0, len(report.Entries))
	for _, e := range report.Entries {
		body := e.HTML
		if !e.Extracted {
			body = b.t.T("code_not_extracted")
		}
		lines = append(lines, fmt.Sprintf("<code>%s</code> — %s", e.Time, body))
	}
	return b.t.T("codes_header", report.Total, b.serviceSenderID) + "\n\n" + strings.Join(lines, "\n")
}

// ExportSession builds the session file and hands it to send with a caption.
// It returns an empty string on success and the failure text otherwise.
func (b *BotFacade) ExportSession(ctx context.Context, ownerID int64, phone string, send func(ctx context.Context, path, caption string) error) string {
	caption := b.t.T("export_caption", html.EscapeString(phone))
	err := b.SessionUC.Export(ctx, ownerID, phone, func(ctx context.Context, path string) error {
		return send(ctx, path, caption)
	})
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrNotFound):
		return b.t.T("account_not_found")
	default:
		logging.With(ctx, b.log).Error().Err(err).Msg("export failed")
		return b.t.T("export_failed", errText(err))
	}
}

func (b *BotFacade) DeleteAccount(ctx context.Context, ownerID int64, phone string) string {
	err := b.SessionUC.Delete(ctx, ownerID, phone)
	switch {
	case err == nil:
		return b.t.T("account_deleted", html.EscapeString(phone))
	case errors.Is(err, domain.ErrNotFound):
		return b.t.T("account_not_found")
	default:
		logging.With(ctx, b.log).Error().Err(err).Msg("delete failed")
		return b.t.T("unknown_error")
	}
}

func (b *BotFacade) RateLimited() string { return b.t.T("rate_limited") }

func (b *BotFacade) orNone(s string) string {
	if s == "" {
		return b.t.T("none")
	}
	return html.EscapeString(s)
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return html.EscapeString(err.Error())
}
