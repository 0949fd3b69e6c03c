package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/leapcrm/internal/api"
	"github.com/leapstack-labs/leapcrm/pkg/core"
)

// Fixed storage keys.
const (
	TokenKey = "auth_token"
	UserKey  = "auth_user"
)

// ErrNoSession is returned by Restore when no token is stored.
var ErrNoSession = errors.New("not signed in")

// Manager owns the persisted session. It is the api.Client's token store,
// so a 401 on any request clears both the token and the cached user.
type Manager struct {
	store  Store
	logger *slog.Logger
	client *api.Client

	mu         sync.Mutex
	user       *core.User
	reconciled chan struct{}
	reconErr   error
}

// NewManager creates a manager over store (nil logger uses discard logger).
func NewManager(store Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{store: store, logger: logger}
}

// Client builds the API client bound to this session and remembers it for
// Login, Register and Restore.
func (m *Manager) Client(baseURL string, opts ...api.Option) *api.Client {
	opts = append([]api.Option{api.WithLogger(m.logger)}, opts...)
	opts = append(opts, api.WithTokenStore(m))
	m.client = api.New(baseURL, opts...)
	return m.client
}

// Token implements api.TokenStore.
func (m *Manager) Token() (string, error) {
	tok, _, err := m.store.Get(context.Background(), TokenKey)
	return tok, err
}

// SetToken implements api.TokenStore.
func (m *Manager) SetToken(token string) error {
	return m.store.Set(context.Background(), TokenKey, token)
}

// ClearToken implements api.TokenStore. The cached user goes with the token.
func (m *Manager) ClearToken() error {
	ctx := context.Background()
	m.mu.Lock()
	m.user = nil
	m.mu.Unlock()
	return errors.Join(m.store.Delete(ctx, TokenKey), m.store.Delete(ctx, UserKey))
}

// User returns the current user, or nil when signed out.
func (m *Manager) User() *core.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// Login signs in and persists the token and user profile.
func (m *Manager) Login(ctx context.Context, email, password string) (*core.User, error) {
	if err := m.requireClient(); err != nil {
		return nil, err
	}
	resp, err := m.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return m.remember(ctx, resp.User)
}

// Register creates an account, signs in and persists the session.
func (m *Manager) Register(ctx context.Context, req core.RegisterRequest) (*core.User, error) {
	if err := m.requireClient(); err != nil {
		return nil, err
	}
	resp, err := m.client.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	return m.remember(ctx, resp.User)
}

// Logout forgets the token and cached user.
func (m *Manager) Logout(_ context.Context) error {
	return m.ClearToken()
}

// Restore resumes a stored session. When a cached profile exists it is
// returned immediately as a hint while the token is validated against
// /users/me in the background; see Reconciled. Without a cached profile the
// validation runs inline. Any validation failure clears the session.
func (m *Manager) Restore(ctx context.Context) (*core.User, error) {
	if err := m.requireClient(); err != nil {
		return nil, err
	}
	token, err := m.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if token == "" {
		return nil, ErrNoSession
	}

	done := make(chan struct{})
	m.mu.Lock()
	m.reconciled = done
	m.reconErr = nil
	m.mu.Unlock()

	hint := m.cachedUser(ctx)
	if hint == nil {
		m.validate(ctx, done)
		return m.Reconciled(ctx)
	}

	m.mu.Lock()
	m.user = hint
	m.mu.Unlock()
	go m.validate(ctx, done)
	u := *hint
	return &u, nil
}

// Reconciled waits for the validation started by Restore and returns the
// confirmed user.
func (m *Manager) Reconciled(ctx context.Context) (*core.User, error) {
	m.mu.Lock()
	done := m.reconciled
	m.mu.Unlock()
	if done == nil {
		return m.User(), nil
	}
	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	m.mu.Lock()
	err := m.reconErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.User(), nil
}

func (m *Manager) validate(ctx context.Context, done chan struct{}) {
	defer close(done)
	me, err := m.client.Me(ctx)
	if err != nil {
		m.logger.Info("stored session rejected, signing out", "error", err)
		if cerr := m.ClearToken(); cerr != nil {
			m.logger.Warn("failed to clear session", "error", cerr)
		}
		m.mu.Lock()
		m.reconErr = err
		m.mu.Unlock()
		return
	}
	if _, err := m.remember(ctx, *me); err != nil {
		m.logger.Warn("failed to cache user profile", "error", err)
	}
}

func (m *Manager) remember(ctx context.Context, u core.User) (*core.User, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return nil, err
	}
	if err := m.store.Set(ctx, UserKey, string(data)); err != nil {
		return nil, fmt.Errorf("failed to cache user profile: %w", err)
	}
	m.mu.Lock()
	m.user = &u
	m.mu.Unlock()
	out := u
	return &out, nil
}

func (m *Manager) cachedUser(ctx context.Context) *core.User {
	raw, ok, err := m.store.Get(ctx, UserKey)
	if err != nil || !ok {
		return nil
	}
	var u core.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		m.logger.Debug("ignoring unreadable cached user", "error", err)
		return nil
	}
	return &u
}

func (m *Manager) requireClient() error {
	if m.client == nil {
		return errors.New("session manager has no API client")
	}
	return nil
}
