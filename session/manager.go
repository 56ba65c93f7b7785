// Package session owns the client's authentication state: login, register,
// logout and session check, the persisted session record, and the hooks the
// HTTP transport calls when it refreshes or loses the tokens.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/resume-client/api"
	"github.com/jrsteele09/resume-client/guard"
	apperrors "github.com/jrsteele09/resume-client/internal/errors"
	"github.com/jrsteele09/resume-client/store"
	"github.com/jrsteele09/resume-client/token"
	"github.com/jrsteele09/resume-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// API endpoints, relative to the API base URL.
const (
	LoginPath    = "/auth/login"
	RegisterPath = "/auth/register"
	ProfilePath  = "/profile"
)

// Messages published on the notifier.
const (
	MsgLoginSuccess    = "Login successful!"
	MsgLoginFailed     = "Login failed"
	MsgRegisterSuccess = "Registration successful! Please login."
	MsgRegisterFailed  = "Registration failed"
	MsgLogoutSuccess   = "Logged out successfully"
	MsgSessionExpired  = "Session expired. Please login again."
)

// Doer is the part of *api.Client the manager calls.
type Doer interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, in, out any) error
}

// Notifier shows short messages to the user. *notify.Bus implements it.
// Failure announces a failed call; the notifier may drop it when err was
// already announced with the same message.
type Notifier interface {
	Success(message string)
	Error(message string)
	Failure(err error, message string)
}

// Navigator moves the front end to route.
type Navigator func(route string)

type loginResponse struct {
	token.AuthTokens
	User *users.User `json:"user"`
}

var _ api.TokenObserver = (*Manager)(nil)

// Manager is the single owner of the Session. All methods are safe for
// concurrent use; subscribers are called outside the lock.
type Manager struct {
	api      Doer
	store    store.Store
	notifier Notifier
	navigate Navigator

	mu      sync.RWMutex
	state   Session
	nextSub int
	subs    map[int]func(Session)
}

type Option func(*Manager)

func WithNotifier(n Notifier) Option {
	return func(m *Manager) {
		m.notifier = n
	}
}

func WithNavigator(nav Navigator) Option {
	return func(m *Manager) {
		m.navigate = nav
	}
}

// New builds a manager over client and st and rehydrates the persisted
// session. An unreadable record is logged and ignored.
func New(client Doer, st store.Store, options ...Option) *Manager {
	m := &Manager{
		api:      client,
		store:    st,
		notifier: discard{},
		navigate: func(string) {},
		subs:     make(map[int]func(Session)),
	}
	for _, opt := range options {
		opt(m)
	}

	restored, err := restore(st)
	if err != nil {
		log.Warn().Err(err).Msg("ignoring unreadable session record")
	}
	m.state = restored
	return m
}

// State returns a snapshot of the session.
func (m *Manager) State() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.clone()
}

func (m *Manager) Status() Status {
	return m.State().Status()
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.IsAuthenticated
}

// Subscribe calls fn with the new session after every transition and returns
// the function that stops it.
func (m *Manager) Subscribe(fn func(Session)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// Login validates creds, exchanges them for tokens and a user, and stores
// both. Returns apperrors.ErrBusy if a login or register is in progress.
func (m *Manager) Login(ctx context.Context, creds users.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	if !m.begin() {
		return apperrors.ErrBusy
	}
	return m.login(ctx, creds)
}

// Register creates the account and, on success, logs in with the same email
// and password. The result is the login's result.
func (m *Manager) Register(ctx context.Context, reg users.Registration) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	if !m.begin() {
		return apperrors.ErrBusy
	}

	if err := m.api.Post(ctx, RegisterPath, reg, nil); err != nil {
		m.finish()
		m.notifier.Failure(err, api.MessageOr(err, MsgRegisterFailed))
		return errors.Wrap(err, "[Manager.Register] register")
	}
	m.notifier.Success(MsgRegisterSuccess)

	return m.login(ctx, reg.Credentials())
}

// login runs with IsLoading already set.
func (m *Manager) login(ctx context.Context, creds users.Credentials) error {
	var resp loginResponse
	if err := m.api.Post(ctx, LoginPath, creds, &resp); err != nil {
		m.finish()
		m.notifier.Failure(err, api.MessageOr(err, MsgLoginFailed))
		return errors.Wrap(err, "[Manager.Login] login")
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" || resp.User == nil {
		m.finish()
		m.notifier.Error(MsgLoginFailed)
		return errors.Wrap(apperrors.ErrMalformedResponse, "[Manager.Login] tokens or user missing")
	}

	if err := m.storeTokens(resp.AccessToken, resp.RefreshToken); err != nil {
		m.finish()
		m.notifier.Error(MsgLoginFailed)
		return errors.Wrap(err, "[Manager.Login] storeTokens")
	}

	m.transition(func(s *Session) {
		*s = Session{
			User:            resp.User,
			AccessToken:     resp.AccessToken,
			RefreshToken:    resp.RefreshToken,
			IsAuthenticated: true,
		}
	})
	log.Info().Str("user_id", resp.User.ID).Msg("logged in")
	m.notifier.Success(MsgLoginSuccess)
	return nil
}

// Logout removes the tokens and clears the session. It never fails; store
// errors are logged.
func (m *Manager) Logout() {
	m.clear()
	log.Info().Msg("logged out")
	m.notifier.Success(MsgLogoutSuccess)
}

// CheckSession confirms a stored access token against the profile endpoint.
// Without a stored token it makes no call and leaves the session
// unauthenticated. Any failure of the profile fetch logs out, as does a
// missing refresh token.
func (m *Manager) CheckSession(ctx context.Context) error {
	accessToken, err := m.store.Get(store.KeyAccessToken)
	if err != nil || accessToken == "" {
		m.transition(func(s *Session) {
			s.IsAuthenticated = false
		})
		return nil
	}

	var u users.User
	if err := m.api.Get(ctx, ProfilePath, &u); err != nil {
		log.Warn().Err(err).Msg("session check failed, logging out")
		m.clear()
		return errors.Wrap(err, "[Manager.CheckSession] fetch profile")
	}

	// the transport may have refreshed while the profile was fetched
	accessToken, _ = m.store.Get(store.KeyAccessToken)
	refreshToken, _ := m.store.Get(store.KeyRefreshToken)
	if accessToken == "" {
		m.clear()
		return errors.Wrap(apperrors.ErrNotAuthenticated, "[Manager.CheckSession] token removed during check")
	}
	if refreshToken == "" {
		log.Warn().Msg("no refresh token stored, logging out")
		m.clear()
		return errors.Wrap(apperrors.ErrNoRefreshToken, "[Manager.CheckSession] refresh token missing")
	}

	m.transition(func(s *Session) {
		s.User = &u
		s.AccessToken = accessToken
		s.RefreshToken = refreshToken
		s.IsAuthenticated = true
	})
	return nil
}

// UpdateUser replaces the cached user. Tokens are untouched.
func (m *Manager) UpdateUser(u users.User) {
	m.transition(func(s *Session) {
		s.User = &u
	})
}

// ConsumeCredit takes one generation credit off the cached user. Premium
// users and users without a cached record are left alone.
func (m *Manager) ConsumeCredit() {
	m.transition(func(s *Session) {
		if s.User == nil || s.User.IsPremium || s.User.CreditsRemaining <= 0 {
			return
		}
		u := *s.User
		u.CreditsRemaining--
		s.User = &u
	})
}

// TokensRefreshed keeps the session in step with the store after the
// transport refreshed the access token.
func (m *Manager) TokensRefreshed(tokens token.AuthTokens) {
	m.transition(func(s *Session) {
		s.AccessToken = tokens.AccessToken
		if tokens.RefreshToken != "" {
			s.RefreshToken = tokens.RefreshToken
		}
	})
}

// SessionExpired is the forced logout after the transport could not refresh:
// the session is cleared and the front end is sent to the login screen.
func (m *Manager) SessionExpired() {
	m.clear()
	log.Warn().Msg("session expired")
	m.notifier.Error(MsgSessionExpired)
	m.navigate(guard.RouteLogin)
}

// AccessTokenExpiry returns the exp claim of the current access token. It is
// read without verification and only meant for display.
func (m *Manager) AccessTokenExpiry() (time.Time, bool) {
	m.mu.RLock()
	raw := m.state.AccessToken
	m.mu.RUnlock()

	if raw == "" {
		return time.Time{}, false
	}
	exp, err := token.ExpiresAt(raw)
	if err != nil {
		log.Debug().Err(err).Msg("access token has no readable expiry")
		return time.Time{}, false
	}
	return exp, true
}

// begin sets IsLoading unless it is already set.
func (m *Manager) begin() bool {
	started := false
	m.transition(func(s *Session) {
		if s.IsLoading {
			return
		}
		s.IsLoading = true
		started = true
	})
	return started
}

func (m *Manager) finish() {
	m.transition(func(s *Session) {
		s.IsLoading = false
	})
}

func (m *Manager) clear() {
	for _, key := range []string{store.KeyAccessToken, store.KeyRefreshToken} {
		if err := m.store.Remove(key); err != nil {
			log.Err(err).Str("key", key).Msg("failed to remove token")
		}
	}
	m.transition(func(s *Session) {
		*s = Session{}
	})
}

func (m *Manager) storeTokens(accessToken, refreshToken string) error {
	if err := m.store.Set(store.KeyAccessToken, accessToken); err != nil {
		return err
	}
	if err := m.store.Set(store.KeyRefreshToken, refreshToken); err != nil {
		_ = m.store.Remove(store.KeyAccessToken)
		return err
	}
	return nil
}

// transition applies fn under the lock, persists the result when the
// persisted subset changed, and tells subscribers about any change.
func (m *Manager) transition(fn func(*Session)) {
	m.mu.Lock()
	before := m.state.clone()
	fn(&m.state)
	after := m.state.clone()
	changed := !equal(before, after)
	if changed && !equalPersisted(before, after) {
		m.persist(after)
	}
	subs := make([]func(Session), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range subs {
		fn(after.clone())
	}
}

func equal(a, b Session) bool {
	return equalPersisted(a, b) && a.IsLoading == b.IsLoading
}

func equalPersisted(a, b Session) bool {
	if a.AccessToken != b.AccessToken || a.RefreshToken != b.RefreshToken || a.IsAuthenticated != b.IsAuthenticated {
		return false
	}
	if (a.User == nil) != (b.User == nil) {
		return false
	}
	return a.User == nil || *a.User == *b.User
}

type discard struct{}

func (discard) Success(string)        {}
func (discard) Error(string)          {}
func (discard) Failure(error, string) {}
