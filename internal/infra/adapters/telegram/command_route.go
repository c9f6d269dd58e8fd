package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-account-manager/internal/infra/logging"
)

type commandHandler func(ctx context.Context, message *tgbotapi.Message) error

// commandRoutes defines all available bot commands and their handlers.
func (r *RealTelegramBotAdapter) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":  r.handleStartCommand,
		"help":   r.handleHelpCommand,
		"cancel": r.handleCancelCommand,
	}
}

// handleStartCommand drops any half-finished onboarding and shows the main menu.
func (r *RealTelegramBotAdapter) handleStartCommand(ctx context.Context, message *tgbotapi.Message) error {
	if r.facade.OnboardingActive(ctx, message.From.ID) {
		r.facade.CancelOnboarding(ctx, message.From.ID)
	}
	return r.SendButtons(ctx, message.Chat.ID, r.facade.Welcome(), r.mainMenuRows())
}

func (r *RealTelegramBotAdapter) handleHelpCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.SendMessage(ctx, message.Chat.ID, r.facade.Help())
}

func (r *RealTelegramBotAdapter) handleCancelCommand(ctx context.Context, message *tgbotapi.Message) error {
	text := r.facade.CancelOnboarding(ctx, message.From.ID)
	return r.SendButtons(ctx, message.Chat.ID, text, r.mainMenuRows())
}

// handleText routes free text to the onboarding flow.
func (r *RealTelegramBotAdapter) handleText(ctx context.Context, message *tgbotapi.Message) error {
	owner, chatID := message.From.ID, message.Chat.ID

	if interim := r.facade.OnboardingInterim(ctx, owner); interim != "" {
		if err := r.SendMessage(ctx, chatID, interim); err != nil {
			logging.With(ctx, r.log).Warn().Err(err).Msg("failed to send interim notice")
		}
	}
	reply, done := r.facade.HandleOnboardingText(ctx, owner, message.Text)
	if done {
		return r.SendButtons(ctx, chatID, reply, r.mainMenuRows())
	}
	return r.SendMessage(ctx, chatID, reply)
}
