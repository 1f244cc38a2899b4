// Package session keeps the client's authenticated state: the current user,
// the token pair, their persistence in the local database, and the
// single-flight refresh cycle that keeps the access token usable.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/linkdeck/internal/client/models"
	"github.com/dmitrijs2005/linkdeck/internal/common"
	"github.com/dmitrijs2005/linkdeck/internal/logging"
)

// API is the subset of the backend client the session layer depends on.
// Implemented by api.Client; declared here so the session package does not
// import the transport wiring that itself depends on the session.
type API interface {
	Login(ctx context.Context, email, password string) (*models.Authenticated, error)
	Register(ctx context.Context, email, password, name string) (*models.Authenticated, error)
	Refresh(ctx context.Context, refreshToken string) (*models.Authenticated, error)
	Me(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, name, avatar *string) (*models.User, error)
	ChangePassword(ctx context.Context, currentPassword, newPassword string) error
}

// Manager owns the in-memory session and keeps it in sync with the local
// database. All state transitions (login, logout, refresh) go through it,
// and the whole session changes atomically: user and tokens are swapped
// together under one lock.
type Manager struct {
	mu    sync.RWMutex
	user  *models.User
	pair  *models.TokenPair
	store *Store
	api   API
	coord *Coordinator
	log   logging.Logger
}

func NewManager(store *Store, refreshTimeout time.Duration, log logging.Logger) *Manager {
	m := &Manager{store: store, log: log}
	m.coord = newCoordinator(m, refreshTimeout)
	return m
}

// Bind attaches the API client. Done after construction because the client's
// transport needs the manager first.
func (m *Manager) Bind(api API) {
	m.api = api
}

// Restore loads a previously persisted session, if a complete one exists.
func (m *Manager) Restore(ctx context.Context) error {
	user, pair, err := m.store.Load(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.user, m.pair = user, pair
	m.mu.Unlock()
	return nil
}

func (m *Manager) IsLoggedIn() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pair != nil
}

// AccessToken returns the current access token, reporting false when no
// session is active.
func (m *Manager) AccessToken() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pair == nil {
		return "", false
	}
	return m.pair.AccessToken, true
}

func (m *Manager) refreshToken() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pair == nil {
		return "", false
	}
	return m.pair.RefreshToken, true
}

// User returns the cached profile without a network round trip.
func (m *Manager) User() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

// Login authenticates and installs the resulting session.
func (m *Manager) Login(ctx context.Context, email, password string) (*models.User, error) {
	auth, err := m.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := m.install(ctx, auth); err != nil {
		return nil, err
	}
	return auth.User, nil
}

// Register creates an account and logs straight into it.
func (m *Manager) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	auth, err := m.api.Register(ctx, email, password, name)
	if err != nil {
		return nil, err
	}
	if err := m.install(ctx, auth); err != nil {
		return nil, err
	}
	return auth.User, nil
}

// Logout drops the session. It never fails: a persistence error is logged
// and the in-memory session is cleared regardless.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.user, m.pair = nil, nil
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		m.log.Warn(ctx, "failed to clear persisted session", "error", err)
	}
}

// CurrentUser fetches the profile from the server and refreshes the local
// cache. An authentication failure that survives the transport's refresh
// cycle means the session is gone, so it is cleared.
func (m *Manager) CurrentUser(ctx context.Context) (*models.User, error) {
	if !m.IsLoggedIn() {
		return nil, common.ErrNotAuthenticated
	}

	user, err := m.api.Me(ctx)
	if err != nil {
		if isAuthFailure(err) {
			m.Logout(ctx)
			return nil, common.ErrNotAuthenticated
		}
		return nil, err
	}

	m.setUser(ctx, user)
	return user, nil
}

// UpdateProfile changes name and/or avatar on the server and in the cache.
func (m *Manager) UpdateProfile(ctx context.Context, name, avatar *string) (*models.User, error) {
	if !m.IsLoggedIn() {
		return nil, common.ErrNotAuthenticated
	}

	user, err := m.api.UpdateProfile(ctx, name, avatar)
	if err != nil {
		if isAuthFailure(err) {
			m.Logout(ctx)
			return nil, common.ErrNotAuthenticated
		}
		return nil, err
	}

	m.setUser(ctx, user)
	return user, nil
}

// ChangePassword re-authenticates with the current password and replaces it.
func (m *Manager) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	if !m.IsLoggedIn() {
		return common.ErrNotAuthenticated
	}
	err := m.api.ChangePassword(ctx, currentPassword, newPassword)
	if err != nil && isAuthFailure(err) {
		m.Logout(ctx)
		return common.ErrNotAuthenticated
	}
	return err
}

// Refresh exchanges the refresh token for a new pair. Concurrent callers
// share a single attempt; see Coordinator.
func (m *Manager) Refresh(ctx context.Context) error {
	return m.coord.Refresh(ctx)
}

// doRefresh performs one actual refresh round trip. Called only from the
// coordinator, which guarantees a single flight.
func (m *Manager) doRefresh(ctx context.Context) error {
	token, ok := m.refreshToken()
	if !ok {
		return common.ErrNotAuthenticated
	}

	auth, err := m.api.Refresh(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrRefreshTokenExpired) {
			// The server no longer accepts this session. Transient
			// failures (network, 5xx, timeout) fall through and keep
			// the session so a later attempt can succeed.
			m.Logout(context.WithoutCancel(ctx))
			return common.ErrRefreshTokenExpired
		}
		return err
	}

	return m.install(ctx, auth)
}

// install swaps the whole session in one step and persists it.
func (m *Manager) install(ctx context.Context, auth *models.Authenticated) error {
	if err := m.store.Save(ctx, auth.User, auth.Tokens); err != nil {
		return err
	}
	m.mu.Lock()
	m.user, m.pair = auth.User, auth.Tokens
	m.mu.Unlock()
	return nil
}

func (m *Manager) setUser(ctx context.Context, user *models.User) {
	m.mu.Lock()
	m.user = user
	m.mu.Unlock()

	if err := m.store.SaveUser(ctx, user); err != nil {
		m.log.Warn(ctx, "failed to persist user profile", "error", err)
	}
}

func isAuthFailure(err error) bool {
	return errors.Is(err, common.ErrorUnauthorized) ||
		errors.Is(err, common.ErrRefreshTokenExpired) ||
		errors.Is(err, common.ErrNotAuthenticated)
}
