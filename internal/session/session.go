// Package session holds the process-wide authentication state: the current user, the
// bearer token and whether an auth transition is in flight. Views read it through
// Snapshot and Subscribe and never touch storage themselves.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/balkashynov/defectctl/internal/db"
	"github.com/balkashynov/defectctl/internal/httpclient"
	"github.com/balkashynov/defectctl/internal/models"
)

var (
	ErrNotAuthenticated = errors.New("not logged in")
	ErrForbidden        = errors.New("permission denied")
)

// Role requirements of the gated views.
var (
	ManageUsers = []models.Role{models.RoleManager}
	ViewReports = []models.Role{models.RoleManager, models.RoleObserver}
)

// State is the position in the auth lifecycle.
type State int

const (
	StateInitializing State = iota
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session is a point-in-time copy of the auth state. User is set only when Token is.
type Session struct {
	State   State
	User    *models.User
	Token   string
	Loading bool
}

// Authenticator is the subset of the API the session drives.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*models.Token, error)
	Register(ctx context.Context, in models.RegisterInput) (*models.User, error)
	CurrentUser(ctx context.Context) (*models.User, error)
}

// Storage persists string values across runs.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Navigator receives the route a transition wants the user to see next.
type Navigator interface {
	Navigate(route Route)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(Route)

func (f NavigatorFunc) Navigate(route Route) { f(route) }

// Manager owns the session. Create one per process with NewManager.
type Manager struct {
	auth   Authenticator
	store  Storage
	nav    Navigator
	logger *log.Logger

	mu          sync.Mutex
	session     Session
	initStarted bool
	subs        map[int]func(Session)
	nextSub     int
}

// NewManager returns a manager in the initializing state.
func NewManager(auth Authenticator, store Storage, nav Navigator, logger *log.Logger) *Manager {
	if nav == nil {
		nav = NavigatorFunc(func(Route) {})
	}
	return &Manager{
		auth:    auth,
		store:   store,
		nav:     nav,
		logger:  logger,
		session: Session{State: StateInitializing},
		subs:    map[int]func(Session){},
	}
}

// Initialize restores the session from storage and re-validates the stored token.
// Only the first call does any work; later calls return the current state.
func (m *Manager) Initialize(ctx context.Context) State {
	m.mu.Lock()
	if m.initStarted {
		state := m.session.State
		m.mu.Unlock()
		return state
	}
	m.initStarted = true
	m.session.Loading = true
	m.mu.Unlock()
	m.notify()

	token, ok, err := m.store.Get(db.KeyAccessToken)
	if err != nil {
		m.logger.Warn("could not read stored token", "err", err)
		ok = false
	}
	if !ok || token == "" {
		m.update(func(s *Session) {
			s.State = StateAnonymous
			s.Loading = false
		})
		return StateAnonymous
	}

	cached := m.cachedUser()
	m.update(func(s *Session) {
		s.Token = token
		s.User = cached
	})

	user, err := m.auth.CurrentUser(httpclient.WithToken(ctx, token))

	m.mu.Lock()
	if m.session.Token != token {
		// logged out or replaced while validating; that transition owns the session now
		m.session.Loading = false
		state := m.session.State
		m.mu.Unlock()
		m.notify()
		return state
	}
	if err != nil {
		m.mu.Unlock()
		m.logger.Info("stored token rejected, logging out", "err", httpclient.Describe(err))
		m.Logout()
		m.update(func(s *Session) { s.Loading = false })
		return StateAnonymous
	}
	// cached under the lock: a Logout that already ran stays in effect
	m.cacheUser(user)
	m.session.User = user
	m.session.State = StateAuthenticated
	m.session.Loading = false
	m.mu.Unlock()
	m.notify()
	return StateAuthenticated
}

// Login authenticates, fetches the user the token belongs to and only then commits
// both to memory and storage. On failure the session is left as it was.
func (m *Manager) Login(ctx context.Context, username, password string) (*models.User, error) {
	m.setLoading(true)
	defer m.setLoading(false)

	token, err := m.auth.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	user, err := m.auth.CurrentUser(httpclient.WithToken(ctx, token.AccessToken))
	if err != nil {
		return nil, err
	}

	// the token goes last so a failed write never leaves a token without its user
	previous := m.Snapshot().User
	if err := m.cacheUser(user); err != nil {
		return nil, fmt.Errorf("saving user: %w", err)
	}
	if err := m.store.Set(db.KeyAccessToken, token.AccessToken); err != nil {
		m.restoreCachedUser(previous)
		return nil, fmt.Errorf("saving token: %w", err)
	}

	m.update(func(s *Session) {
		s.Token = token.AccessToken
		s.User = user
		s.State = StateAuthenticated
	})
	m.nav.Navigate(RouteHome)
	return user, nil
}

// Register creates an account. Any requested role is dropped; the server decides.
func (m *Manager) Register(ctx context.Context, in models.RegisterInput) (*models.User, error) {
	m.setLoading(true)
	defer m.setLoading(false)

	in.Role = ""
	user, err := m.auth.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	m.nav.Navigate(RouteLogin)
	return user, nil
}

// Logout clears the session and storage and sends the user to the login view. Safe to
// call when already logged out.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.session.Token = ""
	m.session.User = nil
	m.session.State = StateAnonymous
	m.mu.Unlock()

	for _, key := range []string{db.KeyAccessToken, db.KeyUser} {
		if err := m.store.Delete(key); err != nil {
			m.logger.Warn("could not clear stored value", "key", key, "err", err)
		}
	}
	m.notify()
	m.nav.Navigate(RouteLogin)
}

// Refresh re-fetches the current user. A 401 or 403 means the token went stale and
// forces a logout; other failures leave the session alone.
func (m *Manager) Refresh(ctx context.Context) error {
	token := m.Snapshot().Token
	if token == "" {
		return nil
	}

	user, err := m.auth.CurrentUser(httpclient.WithToken(ctx, token))
	if err != nil {
		if httpclient.IsStatus(err, http.StatusUnauthorized, http.StatusForbidden) {
			m.Logout()
		}
		return err
	}

	m.mu.Lock()
	current := m.session.Token == token
	if current {
		m.session.User = user
	}
	m.mu.Unlock()
	if !current {
		// logged out or replaced while the request was in flight
		return nil
	}
	m.cacheUser(user)
	m.notify()
	return nil
}

// Snapshot returns a copy of the current session.
func (m *Manager) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Session {
	s := m.session
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.State
}

// Subscribe calls fn with a snapshot after every transition until cancel is called.
func (m *Manager) Subscribe(fn func(Session)) (cancel func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// RequireRole fails unless a user is logged in and holds one of roles. Admins pass
// every gate. No roles means any logged in user.
func (m *Manager) RequireRole(roles ...models.Role) error {
	s := m.Snapshot()
	if s.User == nil {
		return ErrNotAuthenticated
	}
	if len(roles) == 0 || s.User.HasRole(roles...) || s.User.Role == models.RoleAdmin {
		return nil
	}

	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return fmt.Errorf("%w: %s role required, you are %s", ErrForbidden, strings.Join(names, " or "), s.User.Role)
}

func (m *Manager) setLoading(loading bool) {
	m.update(func(s *Session) { s.Loading = loading })
}

func (m *Manager) update(fn func(*Session)) {
	m.mu.Lock()
	fn(&m.session)
	m.mu.Unlock()
	m.notify()
}

// notify runs outside the lock so subscribers may call back into the manager.
func (m *Manager) notify() {
	m.mu.Lock()
	snap := m.snapshotLocked()
	subs := make([]func(Session), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (m *Manager) cachedUser() *models.User {
	raw, ok, err := m.store.Get(db.KeyUser)
	if err != nil || !ok {
		return nil
	}
	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil || user.Validate() != nil {
		m.logger.Debug("ignoring unreadable cached user")
		return nil
	}
	return &user
}

// restoreCachedUser puts back the user cached before a failed login.
func (m *Manager) restoreCachedUser(previous *models.User) {
	if previous != nil {
		m.cacheUser(previous)
		return
	}
	if err := m.store.Delete(db.KeyUser); err != nil {
		m.logger.Warn("could not clear cached user", "err", err)
	}
}

func (m *Manager) cacheUser(user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := m.store.Set(db.KeyUser, string(data)); err != nil {
		m.logger.Warn("could not cache user", "err", err)
		return err
	}
	return nil
}
