package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"cafepanel/internal/resource"
)

// DefaultKey is the storage key the session record lives under.
const DefaultKey = "cafepanel.session"

var (
	ErrNoAuthenticator = errors.New("session: no authenticator configured")
	ErrExpired         = errors.New("session: token already expired")
)

// Manager is the only writer of the session. Lifecycle: Hydrate once at
// startup, Login/Logout on user action, Resume whenever the app comes back
// to the foreground.
type Manager struct {
	storage Storage
	auth    Authenticator
	key     string
	now     func() time.Time

	mu      sync.RWMutex
	current Session
	active  bool
}

type Option func(*Manager)

func WithAuthenticator(auth Authenticator) Option {
	return func(m *Manager) {
		m.auth = auth
	}
}

func WithKey(key string) Option {
	return func(m *Manager) {
		if key != "" {
			m.key = key
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewManager(storage Storage, opts ...Option) *Manager {
	m := &Manager{storage: storage, key: DefaultKey, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Hydrate loads the persisted session. A record that is missing, unreadable
// or expired yields ok=false; the latter two are deleted from storage.
func (m *Manager) Hydrate(ctx context.Context) (Session, bool, error) {
	raw, err := m.storage.Get(ctx, m.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			m.clear()
			return Session{}, false, nil
		}
		return Session{}, false, err
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil || s.Expired(m.now()) {
		m.clear()
		if delErr := m.storage.Delete(ctx, m.key); delErr != nil {
			return Session{}, false, delErr
		}
		return Session{}, false, nil
	}

	m.mu.Lock()
	m.current = s
	m.active = true
	m.mu.Unlock()
	return s, true, nil
}

func (m *Manager) Login(ctx context.Context, creds Credentials) (Session, error) {
	if m.auth == nil {
		return Session{}, ErrNoAuthenticator
	}
	s, err := m.auth.Authenticate(ctx, creds)
	if err != nil {
		return Session{}, err
	}
	if err := m.Start(ctx, s); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Start persists s and makes it current.
func (m *Manager) Start(ctx context.Context, s Session) error {
	if s.Expired(m.now()) {
		return ErrExpired
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := m.storage.Set(ctx, m.key, raw); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	m.mu.Lock()
	m.current = s
	m.active = true
	m.mu.Unlock()
	return nil
}

func (m *Manager) Logout(ctx context.Context) error {
	m.clear()
	return m.storage.Delete(ctx, m.key)
}

// Resume re-validates the session when the app returns to the foreground.
// An expired session is dropped and deleted from storage.
func (m *Manager) Resume(ctx context.Context) (bool, error) {
	m.mu.RLock()
	s, active := m.current, m.active
	m.mu.RUnlock()
	if !active {
		return false, nil
	}
	if !s.Expired(m.now()) {
		return true, nil
	}
	m.clear()
	if err := m.storage.Delete(ctx, m.key); err != nil {
		return false, err
	}
	return false, nil
}

// Current returns the active session. It does not touch storage; an
// expired session reports ok=false until Resume removes it.
func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.active || m.current.Expired(m.now()) {
		return Session{}, false
	}
	return m.current, true
}

// RequestEditor decorates resource requests with the bearer token and the
// tenant/branch scoping headers of the current session.
func (m *Manager) RequestEditor() resource.RequestEditor {
	return func(r *http.Request) {
		s, ok := m.Current()
		if !ok {
			return
		}
		r.Header.Set("Authorization", "Bearer "+s.Token)
		if s.TenantID > 0 {
			r.Header.Set("X-Tenant-ID", strconv.FormatInt(s.TenantID, 10))
		}
		if s.BranchID > 0 {
			r.Header.Set("X-Branch-ID", strconv.FormatInt(s.BranchID, 10))
		}
	}
}

func (m *Manager) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = Session{}
	m.active = false
}
