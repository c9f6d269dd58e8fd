//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"os"
	"sync"

	"telegram-account-manager/internal/domain"
	"telegram-account-manager/internal/domain/model"
	"telegram-account-manager/internal/domain/ports/adapter"
)

var testApp = model.AppCredentials{ID: 2040, Hash: "b18441a1ff607e10a989891a5462e627"}

// --- Gateway ---

// fakeGateway hands out "session-N" for the N-th Dial so tests can tell sessions apart.
type fakeGateway struct {
	mu         sync.Mutex
	conn       *fakeConn
	dialErr    error
	dials      int
	open       int
	sessionsIn []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{conn: &fakeConn{token: "hash-1", authorized: true}}
}

func (g *fakeGateway) Dial(ctx context.Context, app model.AppCredentials, session string, fn func(ctx context.Context, conn adapter.GatewayConn) error) (string, error) {
	g.mu.Lock()
	g.dials++
	out := fmt.Sprintf("session-%d", g.dials)
	g.sessionsIn = append(g.sessionsIn, session)
	if g.dialErr != nil {
		g.mu.Unlock()
		return session, g.dialErr
	}
	g.open++
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.open--
		g.mu.Unlock()
	}()
	return out, fn(ctx, g.conn)
}

func (g *fakeGateway) openConns() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

type fakeConn struct {
	token       string
	requestErr  error
	signInErr   error
	passwordErr error
	authorized  bool
	authErr     error
	profile     *model.Profile
	selfErr     error
	messages    []model.ServiceMessage
	messagesErr error

	gotCode     string
	gotToken    string
	gotPassword string
	gotSender   int64
	gotLimit    int
}

func (c *fakeConn) RequestCode(ctx context.Context, phone string) (string, error) {
	if c.requestErr != nil {
		return "", c.requestErr
	}
	return c.token, nil
}

func (c *fakeConn) SignIn(ctx context.Context, phone, code, token string) error {
	c.gotCode, c.gotToken = code, token
	return c.signInErr
}

func (c *fakeConn) CheckPassword(ctx context.Context, password string) error {
	c.gotPassword = password
	return c.passwordErr
}

func (c *fakeConn) IsAuthorized(ctx context.Context) (bool, error) {
	return c.authorized, c.authErr
}

func (c *fakeConn) Self(ctx context.Context) (*model.Profile, error) {
	return c.profile, c.selfErr
}

func (c *fakeConn) RecentMessages(ctx context.Context, senderID int64, limit int) ([]model.ServiceMessage, error) {
	c.gotSender, c.gotLimit = senderID, limit
	return c.messages, c.messagesErr
}

// --- Account store ---

type memAccountRepo struct {
	mu        sync.Mutex
	store     map[string]model.Account
	order     []string
	upserts   int
	upsertErr error
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{store: make(map[string]model.Account)}
}

func accountKey(owner int64, phone string) string { return fmt.Sprintf("%d|%s", owner, phone) }

func (m *memAccountRepo) Upsert(ctx context.Context, acc *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts++
	k := accountKey(acc.OwnerID, acc.Phone)
	if _, ok := m.store[k]; !ok {
		m.order = append(m.order, k)
	}
	m.store[k] = *acc
	return nil
}

func (m *memAccountRepo) ListPhones(ctx context.Context, ownerID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, k := range m.order {
		if acc, ok := m.store[k]; ok && acc.OwnerID == ownerID {
			out = append(out, acc.Phone)
		}
	}
	return out, nil
}

func (m *memAccountRepo) Get(ctx context.Context, ownerID int64, phone string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.store[accountKey(ownerID, phone)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &acc, nil
}

func (m *memAccountRepo) Delete(ctx context.Context, ownerID int64, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, accountKey(ownerID, phone))
	return nil
}

func (m *memAccountRepo) seed(owner int64, phone, session string) {
	acc, err := model.NewAccount(owner, phone, testApp, session)
	if err != nil {
		panic(err)
	}
	_ = m.Upsert(context.Background(), acc)
	m.upserts = 0
}

func (m *memAccountRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store)
}

// --- Session files ---

type fakeFileWriter struct {
	err      error
	path     string
	sessions []string
}

func (w *fakeFileWriter) WriteSessionFile(ctx context.Context, session, path string) error {
	w.path = path
	w.sessions = append(w.sessions, session)
	if w.err != nil {
		// leave a partial file behind to prove cleanup
		_ = os.WriteFile(path, []byte("partial"), 0o600)
		return w.err
	}
	return os.WriteFile(path, []byte("SQLite format 3"), 0o600)
}
