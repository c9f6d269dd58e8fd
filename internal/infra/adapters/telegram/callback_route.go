package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-account-manager/internal/domain/ports/adapter"
	"telegram-account-manager/internal/infra/metrics"
)

// callback is one button press being handled.
type callback struct {
	id        string
	ownerID   int64
	chatID    int64
	messageID int
	answered  bool
}

type cbHandler func(ctx context.Context, cb *callback, arg string) error

type prefixCB struct {
	Prefix string
	Fn     cbHandler
}

// Exact-match callbacks
func (r *RealTelegramBotAdapter) cbRoutes() map[string]cbHandler {
	return map[string]cbHandler{
		cbAddAccount: r.addAccountCBRoute,
		cbMyAccounts: r.myAccountsCBRoute,
		cbMainMenu:   r.mainMenuCBRoute,
	}
}

// Prefix-match callbacks; the remainder of the data is the phone number.
func (r *RealTelegramBotAdapter) cbPrefixRoutes() []prefixCB {
	return []prefixCB{
		{Prefix: cbSelectAccount, Fn: r.selectAccountCBRoute},
		{Prefix: cbInfo, Fn: r.infoCBRoute},
		{Prefix: cbShowCodes, Fn: r.showCodesCBRoute},
		{Prefix: cbExport, Fn: r.exportCBRoute},
		{Prefix: cbDelete, Fn: r.deleteCBRoute},
	}
}

func (r *RealTelegramBotAdapter) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query == nil || query.From == nil {
		return fmt.Errorf("invalid callback query")
	}

	cb := &callback{id: query.ID, ownerID: query.From.ID, chatID: query.From.ID}
	if query.Message != nil && query.Message.Chat != nil {
		cb.chatID = query.Message.Chat.ID
		cb.messageID = query.Message.MessageID
	}
	// Stop telegram spinner when we return
	defer func() {
		if !cb.answered {
			r.answer(cb, "", false)
		}
	}()

	data := strings.TrimSpace(query.Data)
	route := data
	if i := strings.IndexByte(data, ':'); i >= 0 {
		route = data[:i+1]
	}
	metrics.IncTelegramCommand("cb:" + route)
	if !r.allow(ctx, cb.ownerID, "cb:"+route, r.limits.CallbacksPerMinute) {
		r.answer(cb, r.facade.RateLimited(), true)
		return nil
	}

	// Exact matches
	if fn, ok := r.cbRoutes()[data]; ok {
		return fn(ctx, cb, "")
	}
	// Prefix matches
	for _, pr := range r.cbPrefixRoutes() {
		if strings.HasPrefix(data, pr.Prefix) {
			return pr.Fn(ctx, cb, strings.TrimPrefix(data, pr.Prefix))
		}
	}
	return fmt.Errorf("unknown callback data %q", data)
}

func (r *RealTelegramBotAdapter) answer(cb *callback, text string, alert bool) {
	cfg := tgbotapi.NewCallback(cb.id, text)
	cfg.ShowAlert = alert
	if _, err := r.bot.Request(cfg); err != nil {
		r.log.Debug().Err(err).Msg("failed to answer callback")
	}
	cb.answered = true
}

// show edits the message holding the pressed button, or sends a new one.
func (r *RealTelegramBotAdapter) show(ctx context.Context, cb *callback, text string, rows [][]adapter.InlineButton) error {
	if cb.messageID != 0 {
		if err := r.editButtons(ctx, cb.chatID, cb.messageID, text, rows); err == nil {
			return nil
		}
	}
	return r.SendButtons(ctx, cb.chatID, text, rows)
}

func (r *RealTelegramBotAdapter) addAccountCBRoute(ctx context.Context, cb *callback, _ string) error {
	return r.show(ctx, cb, r.facade.StartOnboarding(ctx, cb.ownerID), nil)
}

func (r *RealTelegramBotAdapter) mainMenuCBRoute(ctx context.Context, cb *callback, _ string) error {
	return r.show(ctx, cb, r.facade.MainMenu(), r.mainMenuRows())
}

func (r *RealTelegramBotAdapter) myAccountsCBRoute(ctx context.Context, cb *callback, _ string) error {
	return r.showAccounts(ctx, cb, "")
}

// showAccounts probes and lists the owner's accounts. A non-empty notice heads the reply.
func (r *RealTelegramBotAdapter) showAccounts(ctx context.Context, cb *callback, notice string) error {
	_ = r.show(ctx, cb, r.facade.CheckingAccounts(), nil)

	accounts, text := r.facade.ListAccounts(ctx, cb.ownerID)
	if len(accounts) == 0 {
		r.answer(cb, text, true)
		return r.show(ctx, cb, withNotice(notice, r.facade.MainMenu()), r.mainMenuRows())
	}
	return r.show(ctx, cb, withNotice(notice, text), r.accountsRows(accounts))
}

func withNotice(notice, text string) string {
	if notice == "" {
		return text
	}
	return notice + "\n\n" + text
}

func (r *RealTelegramBotAdapter) selectAccountCBRoute(ctx context.Context, cb *callback, phone string) error {
	return r.show(ctx, cb, r.facade.AccountActions(phone), r.accountActionsRows(phone))
}

func (r *RealTelegramBotAdapter) infoCBRoute(ctx context.Context, cb *callback, phone string) error {
	text, removed := r.facade.ProfileInfo(ctx, cb.ownerID, phone)
	back := cbSelectAccount + phone
	if removed {
		back = cbMyAccounts
	}
	return r.show(ctx, cb, text, r.backRows(back))
}

func (r *RealTelegramBotAdapter) showCodesCBRoute(ctx context.Context, cb *callback, phone string) error {
	text := r.facade.ServiceCodes(ctx, cb.ownerID, phone)
	return r.show(ctx, cb, text, r.backRows(cbSelectAccount+phone))
}

func (r *RealTelegramBotAdapter) exportCBRoute(ctx context.Context, cb *callback, phone string) error {
	failure := r.facade.ExportSession(ctx, cb.ownerID, phone, func(ctx context.Context, path, caption string) error {
		return r.SendDocument(ctx, cb.chatID, path, caption)
	})
	if failure != "" {
		return r.SendMessage(ctx, cb.chatID, failure)
	}
	return nil
}

func (r *RealTelegramBotAdapter) deleteCBRoute(ctx context.Context, cb *callback, phone string) error {
	return r.showAccounts(ctx, cb, r.facade.DeleteAccount(ctx, cb.ownerID, phone))
}
