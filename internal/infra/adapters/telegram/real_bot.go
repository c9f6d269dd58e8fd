package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-account-manager/internal/application"
	"telegram-account-manager/internal/config"
	"telegram-account-manager/internal/domain/ports/adapter"
	"telegram-account-manager/internal/infra/logging"
	"telegram-account-manager/internal/infra/metrics"
	red "telegram-account-manager/internal/infra/redis"
	"telegram-account-manager/internal/infra/worker"
)

var _ adapter.TelegramBotAdapter = (*RealTelegramBotAdapter)(nil)

// botAPI is the subset of *tgbotapi.BotAPI the adapter uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// limiter is satisfied by *red.RateLimiter. A nil limiter disables rate limiting.
type limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RealTelegramBotAdapter uses tgbotapi to poll updates and delegates to BotFacade.
// Updates of one chat are handled in order on the same pool worker.
type RealTelegramBotAdapter struct {
	bot         botAPI
	facade      *application.BotFacade
	translator  application.Translator
	rateLimiter limiter
	limits      config.RateLimitConfig
	pool        *worker.Pool
	log         *zerolog.Logger
}

func NewRealTelegramBotAdapter(
	cfg *config.BotConfig,
	limits config.RateLimitConfig,
	facade *application.BotFacade,
	translator application.Translator,
	rateLimiter *red.RateLimiter,
	pool *worker.Pool,
	logger *zerolog.Logger,
) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	var rl limiter
	if rateLimiter != nil {
		rl = rateLimiter
	}
	return newAdapter(bot, facade, translator, rl, limits, pool, logger)
}

func newAdapter(
	bot botAPI,
	facade *application.BotFacade,
	translator application.Translator,
	rateLimiter limiter,
	limits config.RateLimitConfig,
	pool *worker.Pool,
	logger *zerolog.Logger,
) (*RealTelegramBotAdapter, error) {
	if facade == nil {
		return nil, errors.New("bot facade is nil")
	}
	if pool == nil {
		return nil, errors.New("worker pool is nil")
	}
	return &RealTelegramBotAdapter{
		bot:         bot,
		facade:      facade,
		translator:  translator,
		rateLimiter: rateLimiter,
		limits:      limits,
		pool:        pool,
		log:         logger,
	}, nil
}

// StartPolling blocks until ctx is done or the update channel closes.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)
	defer r.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			r.dispatch(ctx, up)
		}
	}
}

func (r *RealTelegramBotAdapter) dispatch(ctx context.Context, up tgbotapi.Update) {
	chatID := updateChatID(up)
	if chatID == 0 {
		return
	}
	traceID := uuid.NewString()
	err := r.pool.Submit(ctx, chatID, func(ctx context.Context) error {
		ctx = logging.WithTgID(logging.WithTraceID(ctx, traceID), chatID)
		if err := r.handleUpdate(ctx, up); err != nil {
			logging.With(ctx, r.log).Error().Err(err).Msg("update handling failed")
		}
		return nil
	})
	if err != nil {
		r.log.Warn().Err(err).Int64("chat_id", chatID).Msg("dropping update")
	}
}

func updateChatID(up tgbotapi.Update) int64 {
	switch {
	case up.CallbackQuery != nil:
		if m := up.CallbackQuery.Message; m != nil && m.Chat != nil {
			return m.Chat.ID
		}
		if up.CallbackQuery.From != nil {
			return up.CallbackQuery.From.ID
		}
	case up.Message != nil && up.Message.Chat != nil:
		return up.Message.Chat.ID
	}
	return 0
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	// ----- Inline button callbacks -----
	if update.CallbackQuery != nil {
		return r.handleQuery(ctx, update.CallbackQuery)
	}

	// ----- Regular messages -----
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return nil
	}

	command := "message"
	if msg.IsCommand() {
		command = "/" + msg.Command()
	}
	metrics.IncTelegramCommand(command)
	if !r.allow(ctx, msg.From.ID, command, r.limits.MessagesPerMinute) {
		return r.SendMessage(ctx, msg.Chat.ID, r.facade.RateLimited())
	}

	if msg.IsCommand() {
		if fn, ok := r.commandRoutes()[msg.Command()]; ok {
			return fn(ctx, msg)
		}
	}
	if strings.TrimSpace(msg.Text) == "" {
		return nil
	}
	return r.handleText(ctx, msg)
}

// allow applies the per-user rate limit. Limiter failures let the update through.
func (r *RealTelegramBotAdapter) allow(ctx context.Context, userID int64, command string, perMinute int) bool {
	if r.rateLimiter == nil || perMinute <= 0 {
		return true
	}
	allowed, err := r.rateLimiter.Allow(ctx, red.UserCommandKey(userID, command), perMinute, time.Minute)
	if err != nil {
		logging.With(ctx, r.log).Warn().Err(err).Msg("rate limiter unavailable")
		return true
	}
	if !allowed {
		metrics.IncRateLimitTriggered()
	}
	return allowed
}

// SendMessage sends an HTML message.
func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, tgID int64, text string) error {
	msg := tgbotapi.NewMessage(tgID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := r.bot.Send(msg)
	return err
}

// SendButtons sends an HTML message with inline buttons.
// - If btn.URL is set, the button opens a link
// - Else if btn.Data is set, the button sends callback data
// - Else a safe fallback uses btn.Text as callback data
func (r *RealTelegramBotAdapter) SendButtons(ctx context.Context, telegramID int64, text string, rows [][]adapter.InlineButton) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	msg := tgbotapi.NewMessage(telegramID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if len(rows) > 0 {
		msg.ReplyMarkup = inlineKeyboard(rows)
	}
	_, err := r.bot.Send(msg)
	return err
}

// SendDocument uploads the file at path with an HTML caption.
func (r *RealTelegramBotAdapter) SendDocument(ctx context.Context, telegramID int64, path, caption string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	doc := tgbotapi.NewDocument(telegramID, tgbotapi.FilePath(path))
	doc.Caption = caption
	doc.ParseMode = tgbotapi.ModeHTML
	_, err := r.bot.Send(doc)
	return err
}

// editButtons replaces the text and keyboard of a message the bot sent earlier.
func (r *RealTelegramBotAdapter) editButtons(ctx context.Context, chatID int64, messageID int, text string, rows [][]adapter.InlineButton) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var edit tgbotapi.EditMessageTextConfig
	if len(rows) > 0 {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, inlineKeyboard(rows))
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}
	edit.ParseMode = tgbotapi.ModeHTML
	_, err := r.bot.Send(edit)
	return err
}

func inlineKeyboard(rows [][]adapter.InlineButton) tgbotapi.InlineKeyboardMarkup {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			switch {
			case btn.URL != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL))
			case btn.Data != "":
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
			default:
				r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, label))
			}
		}
		kbRows = append(kbRows, r)
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...)
}
