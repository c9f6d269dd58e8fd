//go:build !integration

package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-account-manager/internal/application"
	"telegram-account-manager/internal/config"
	"telegram-account-manager/internal/domain"
	"telegram-account-manager/internal/domain/model"
	"telegram-account-manager/internal/infra/i18n"
	"telegram-account-manager/internal/infra/logging"
	"telegram-account-manager/internal/infra/worker"
)

// --- fakes ---

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
	stopped  bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel { return f.updates }

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

// texts returns the text of every message sent or edited, in order.
func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) last() tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

type fakeLimiter struct{ allowed bool }

func (l fakeLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return l.allowed, nil
}

type stubOnboarding struct {
	step   model.OnboardingStep
	active bool
	result model.StepResult
	texts  []string
}

func (s *stubOnboarding) Start(context.Context, int64) error {
	s.active, s.step = true, model.StepAwaitingPhone
	return nil
}
func (s *stubOnboarding) Active(context.Context, int64) (bool, error) { return s.active, nil }
func (s *stubOnboarding) Step(context.Context, int64) (model.OnboardingStep, error) {
	if !s.active {
		return "", domain.ErrNoActiveOnboarding
	}
	return s.step, nil
}
func (s *stubOnboarding) Handle(_ context.Context, _ int64, text string) (model.StepResult, error) {
	s.texts = append(s.texts, text)
	if !s.active {
		return model.StepResult{}, domain.ErrNoActiveOnboarding
	}
	return s.result, nil
}
func (s *stubOnboarding) SubmitPhone(context.Context, int64, string) (model.StepResult, error) {
	return s.result, nil
}
func (s *stubOnboarding) SubmitCode(context.Context, int64, string) (model.StepResult, error) {
	return s.result, nil
}
func (s *stubOnboarding) SubmitPassword(context.Context, int64, string) (model.StepResult, error) {
	return s.result, nil
}
func (s *stubOnboarding) Cancel(context.Context, int64) (bool, error) {
	was := s.active
	s.active = false
	return was, nil
}

type stubSessions struct {
	accounts []model.AccountStatus
	deleted  []string
	exported string
}

func (s *stubSessions) Probe(context.Context, *model.Account) bool { return true }
func (s *stubSessions) ListAccounts(context.Context, int64) ([]model.AccountStatus, error) {
	return s.accounts, nil
}
func (s *stubSessions) ProfileInfo(_ context.Context, _ int64, phone string) (*model.Profile, error) {
	return &model.Profile{ID: 1, Phone: phone}, nil
}
func (s *stubSessions) ServiceCodes(context.Context, int64, string) (*model.ServiceCodeReport, error) {
	return &model.ServiceCodeReport{}, nil
}
func (s *stubSessions) Export(ctx context.Context, _ int64, phone string, deliver func(context.Context, string) error) error {
	s.exported = phone
	return deliver(ctx, "/tmp/"+phone+".session")
}
func (s *stubSessions) Delete(_ context.Context, _ int64, phone string) error {
	s.deleted = append(s.deleted, phone)
	kept := s.accounts[:0]
	for _, a := range s.accounts {
		if a.Phone != phone {
			kept = append(kept, a)
		}
	}
	s.accounts = kept
	return nil
}

type harness struct {
	api      *fakeAPI
	onboard  *stubOnboarding
	sessions *stubSessions
	bot      *RealTelegramBotAdapter
}

func newHarness(t *testing.T, rl limiter) *harness {
	t.Helper()
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		t.Fatalf("translator: %v", err)
	}
	h := &harness{
		api:      &fakeAPI{updates: make(chan tgbotapi.Update)},
		onboard:  &stubOnboarding{},
		sessions: &stubSessions{},
	}
	facade := application.NewBotFacade(h.onboard, h.sessions, tr, logging.Nop(), 777000)
	pool := worker.NewPool(2, 4, logging.Nop())
	limits := config.RateLimitConfig{MessagesPerMinute: 20, CallbacksPerMinute: 30}
	h.bot, err = newAdapter(h.api, facade, tr, rl, limits, pool, logging.Nop())
	if err != nil {
		t.Fatalf("newAdapter: %v", err)
	}
	return h
}

func textUpdate(from int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from},
		Chat:      &tgbotapi.Chat{ID: from},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(strings.Fields(text)[0])}}
	}
	return tgbotapi.Update{Message: msg}
}

func callbackUpdate(from int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: from},
		Message: &tgbotapi.Message{MessageID: 10, Chat: &tgbotapi.Chat{ID: from}},
		Data:    data,
	}}
}

func buttonData(c tgbotapi.Chattable) []string {
	var markup *tgbotapi.InlineKeyboardMarkup
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		if kb, ok := m.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); ok {
			markup = &kb
		}
	case tgbotapi.EditMessageTextConfig:
		markup = m.ReplyMarkup
	}
	if markup == nil {
		return nil
	}
	var out []string
	for _, row := range markup.InlineKeyboard {
		for _, b := range row {
			if b.CallbackData != nil {
				out = append(out, *b.CallbackData)
			}
		}
	}
	return out
}

// --- tests ---

func TestCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("should greet with the main menu on /start", func(t *testing.T) {
		h := newHarness(t, nil)
		if err := h.bot.handleUpdate(ctx, textUpdate(1001, "/start")); err != nil {
			t.Fatalf("handleUpdate failed: %v", err)
		}
		msg, ok := h.api.last().(tgbotapi.MessageConfig)
		if !ok || !strings.Contains(msg.Text, "manages your Telegram accounts") {
			t.Fatalf("unexpected reply %#v", h.api.last())
		}
		if msg.ParseMode != tgbotapi.ModeHTML {
			t.Error("expected HTML parse mode")
		}
		got := buttonData(msg)
		if len(got) != 2 || got[0] != "add_account" || got[1] != "my_accounts" {
			t.Errorf("unexpected main menu %v", got)
		}
	})

	t.Run("should cancel an onboarding on /cancel", func(t *testing.T) {
		h := newHarness(t, nil)
		h.onboard.active = true
		_ = h.bot.handleUpdate(ctx, textUpdate(1001, "/cancel"))
		if h.onboard.active {
			t.Error("expected onboarding to be cancelled")
		}
		if texts := h.api.texts(); texts[len(texts)-1] != "Adding the account was cancelled." {
			t.Errorf("unexpected reply %q", texts[len(texts)-1])
		}
	})

	t.Run("should rate limit messages", func(t *testing.T) {
		h := newHarness(t, fakeLimiter{allowed: false})
		_ = h.bot.handleUpdate(ctx, textUpdate(1001, "/start"))
		if texts := h.api.texts(); len(texts) != 1 || !strings.Contains(texts[0], "Too many requests") {
			t.Errorf("expected a rate limit notice, got %v", texts)
		}
	})
}

func TestOnboardingText(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	if err := h.bot.handleUpdate(ctx, callbackUpdate(1001, "add_account")); err != nil {
		t.Fatalf("add_account failed: %v", err)
	}
	if !h.onboard.active {
		t.Fatal("expected onboarding to start")
	}

	h.onboard.result = model.StepResult{Step: model.StepAwaitingCode, Phone: "+15550001"}
	_ = h.bot.handleUpdate(ctx, textUpdate(1001, "+15550001"))
	texts := h.api.texts()
	if len(texts) < 2 || !strings.Contains(texts[len(texts)-2], "Sending the code") || !strings.Contains(texts[len(texts)-1], "code was sent") {
		t.Fatalf("expected interim notice then code prompt, got %v", texts)
	}

	h.onboard.step = model.StepAwaitingCode
	h.onboard.result = model.StepResult{Step: model.StepCompleted, Phone: "+15550001"}
	_ = h.bot.handleUpdate(ctx, textUpdate(1001, "12345"))
	last, _ := h.api.last().(tgbotapi.MessageConfig)
	if !strings.Contains(last.Text, "added") || len(buttonData(last)) != 2 {
		t.Errorf("expected completion with main menu, got %q %v", last.Text, buttonData(last))
	}
	if got := h.onboard.texts; len(got) != 2 || got[1] != "12345" {
		t.Errorf("unexpected texts routed to onboarding: %v", got)
	}
}

func TestCallbacks(t *testing.T) {
	ctx := context.Background()

	t.Run("should list accounts with validity icons", func(t *testing.T) {
		h := newHarness(t, nil)
		h.sessions.accounts = []model.AccountStatus{{Phone: "+1", Valid: true}, {Phone: "+2"}}
		if err := h.bot.handleUpdate(ctx, callbackUpdate(1001, "my_accounts")); err != nil {
			t.Fatalf("my_accounts failed: %v", err)
		}
		edit, ok := h.api.last().(tgbotapi.EditMessageTextConfig)
		if !ok {
			t.Fatalf("expected an edit, got %#v", h.api.last())
		}
		got := buttonData(edit)
		want := []string{"select_account:+1", "select_account:+2", "main_menu"}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("buttons = %v, want %v", got, want)
		}
		labels := edit.ReplyMarkup.InlineKeyboard
		if labels[0][0].Text != "✅ +1" || labels[1][0].Text != "❌ +2" {
			t.Errorf("unexpected labels %q %q", labels[0][0].Text, labels[1][0].Text)
		}
		if len(h.api.requests) != 1 {
			t.Errorf("expected the callback to be answered once, got %d", len(h.api.requests))
		}
	})

	t.Run("should show the action menu for an account", func(t *testing.T) {
		h := newHarness(t, nil)
		_ = h.bot.handleUpdate(ctx, callbackUpdate(1001, "select_account:+15550001"))
		got := buttonData(h.api.last())
		want := []string{"info:+15550001", "show_codes:+15550001", "export:+15550001", "delete:+15550001", "my_accounts"}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("buttons = %v, want %v", got, want)
		}
	})

	t.Run("should upload the exported session", func(t *testing.T) {
		h := newHarness(t, nil)
		_ = h.bot.handleUpdate(ctx, callbackUpdate(1001, "export:+15550001"))
		doc, ok := h.api.last().(tgbotapi.DocumentConfig)
		if !ok {
			t.Fatalf("expected a document, got %#v", h.api.last())
		}
		if doc.File != tgbotapi.FilePath("/tmp/+15550001.session") {
			t.Errorf("unexpected file %v", doc.File)
		}
		if !strings.Contains(doc.Caption, "+15550001") {
			t.Errorf("unexpected caption %q", doc.Caption)
		}
	})

	t.Run("should refresh the list after delete", func(t *testing.T) {
		h := newHarness(t, nil)
		h.sessions.accounts = []model.AccountStatus{{Phone: "+1", Valid: true}, {Phone: "+2", Valid: true}}
		_ = h.bot.handleUpdate(ctx, callbackUpdate(1001, "delete:+1"))
		if len(h.sessions.deleted) != 1 || h.sessions.deleted[0] != "+1" {
			t.Fatalf("expected +1 to be deleted, got %v", h.sessions.deleted)
		}
		edit, _ := h.api.last().(tgbotapi.EditMessageTextConfig)
		if !strings.HasPrefix(edit.Text, "Account <code>+1</code> deleted!") {
			t.Errorf("unexpected text %q", edit.Text)
		}
		if got := buttonData(edit); len(got) != 2 || got[0] != "select_account:+2" {
			t.Errorf("unexpected buttons %v", got)
		}
	})

	t.Run("should reject unknown callback data", func(t *testing.T) {
		h := newHarness(t, nil)
		if err := h.bot.handleUpdate(ctx, callbackUpdate(1001, "bogus")); err == nil {
			t.Fatal("expected an error")
		}
	})
}

func TestStartPolling(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.bot.pool.Start(ctx)
	defer h.bot.pool.Stop()

	done := make(chan error, 1)
	go func() { done <- h.bot.StartPolling(ctx) }()

	h.api.updates <- textUpdate(1001, "/help")
	deadline := time.After(2 * time.Second)
	for len(h.api.texts()) == 0 {
		select {
		case <-deadline:
			t.Fatal("update was not handled")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	h.api.mu.Lock()
	stopped := h.api.stopped
	h.api.mu.Unlock()
	if !stopped {
		t.Error("expected polling to stop receiving updates")
	}
}
