package session

import (
	"log/slog"
	"sync"

	"github.com/Thekirgo/calcwatch/internal/domain"
)

// Context is the explicit session handle injected into every component that
// needs authorization. It caches the store contents and notifies subscribers
// of login/logout transitions: the store is written first, then listeners run
// synchronously in registration order, so a listener always observes the new
// state.
type Context struct {
	store *Store

	mu        sync.Mutex
	creds     domain.Credentials
	active    bool
	listeners []domain.SessionListener
}

// NewContext creates a session context backed by store, resuming any session
// persisted by an earlier run.
func NewContext(store *Store) (*Context, error) {
	creds, active, err := store.Load()
	if err != nil {
		return nil, err
	}
	if active {
		slog.Info("Resumed persisted session", "user_login", creds.Username)
	}
	return &Context{store: store, creds: creds, active: active}, nil
}

// Subscribe registers a listener for login/logout transitions. Registration
// order is delivery order.
func (c *Context) Subscribe(l domain.SessionListener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

// Token returns the current bearer token, or "" when logged out.
func (c *Context) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return ""
	}
	return c.creds.Token
}

// Active reports whether a session exists.
func (c *Context) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Current returns the cached credentials and whether a session exists.
func (c *Context) Current() (domain.Credentials, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds, c.active
}

// Login persists the credentials as one atomic group and notifies listeners.
func (c *Context) Login(creds domain.Credentials) error {
	if err := c.store.Save(creds); err != nil {
		return err
	}

	c.mu.Lock()
	c.creds = creds
	c.active = true
	listeners := append([]domain.SessionListener(nil), c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		l.OnLogin(creds)
	}
	return nil
}

// Logout clears all session fields as one atomic group and notifies
// listeners. Safe to call when already logged out.
func (c *Context) Logout() error {
	if err := c.store.Clear(); err != nil {
		return err
	}

	c.mu.Lock()
	c.creds = domain.Credentials{}
	c.active = false
	listeners := append([]domain.SessionListener(nil), c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		l.OnLogout()
	}
	return nil
}
