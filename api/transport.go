package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	apperrors "github.com/jrsteele09/resume-client/internal/errors"
	"github.com/jrsteele09/resume-client/store"
	"github.com/jrsteele09/resume-client/token"
	"github.com/rs/zerolog/log"
)

// maxAuthRetries is how many times one request may be re-sent after a refresh.
const maxAuthRetries = 1

// TokenRefresher exchanges a refresh token for new tokens. *token.Refresher implements it.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (token.AuthTokens, error)
}

// TokenObserver hears about token changes made by the transport so in-memory
// session state can follow the store.
type TokenObserver interface {
	TokensRefreshed(tokens token.AuthTokens)
	SessionExpired()
}

// AuthTransport attaches the stored access token to every request and, when a
// request that carried a token gets a 401, refreshes the token and re-sends the
// request once. When the refresh is impossible both tokens are removed from the
// store, the observer is told the session expired, and the call fails with
// apperrors.ErrSessionExpired.
type AuthTransport struct {
	base      http.RoundTripper
	store     store.Store
	refresher TokenRefresher

	// refreshMu serializes refresh-and-store so a request that failed with a
	// token someone else already replaced retries instead of refreshing again.
	refreshMu sync.Mutex

	mu       sync.RWMutex
	observer TokenObserver
}

type AuthTransportOption func(*AuthTransport)

// WithBase sets the underlying round tripper (http.DefaultTransport otherwise).
func WithBase(base http.RoundTripper) AuthTransportOption {
	return func(t *AuthTransport) {
		t.base = base
	}
}

// WithTokenObserver sets the observer at construction time.
func WithTokenObserver(observer TokenObserver) AuthTransportOption {
	return func(t *AuthTransport) {
		t.observer = observer
	}
}

func NewAuthTransport(st store.Store, refresher TokenRefresher, options ...AuthTransportOption) *AuthTransport {
	t := &AuthTransport{
		base:      http.DefaultTransport,
		store:     st,
		refresher: refresher,
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

// SetObserver replaces the token observer. The session manager is usually
// built after the client it depends on, so it registers itself here.
func (t *AuthTransport) SetObserver(observer TokenObserver) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observer = observer
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	accessToken, _ := t.store.Get(store.KeyAccessToken)
	return t.send(req, accessToken, 0)
}

// send issues one attempt. attempt counts the re-sends already made for req.
func (t *AuthTransport) send(req *http.Request, accessToken string, attempt int) (*http.Response, error) {
	out, err := prepare(req, accessToken, attempt)
	if err != nil {
		return nil, err
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || accessToken == "" || attempt >= maxAuthRetries {
		return resp, nil
	}
	if !rewindable(req) {
		log.Warn().Str("path", req.URL.Path).Msg("401 on a request whose body cannot be re-sent")
		return resp, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	fresh, err := t.refresh(req.Context(), accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrSessionExpired, err)
	}

	log.Debug().Str("path", req.URL.Path).Msg("retrying request with refreshed token")
	return t.send(req, fresh, attempt+1)
}

// errTokensCleared means the tokens were removed while the request was in
// flight. Whoever removed them already ended the session.
var errTokensCleared = errors.New("tokens cleared by another request")

// refresh returns an access token newer than rejected, refreshing only when
// the store still holds the rejected one. A failed refresh expires the session
// while the lock is held.
func (t *AuthTransport) refresh(ctx context.Context, rejected string) (string, error) {
	t.refreshMu.Lock()
	defer t.refreshMu.Unlock()

	current, _ := t.store.Get(store.KeyAccessToken)
	if current != rejected {
		if current == "" {
			return "", errTokensCleared
		}
		return current, nil
	}

	tokens, err := t.refreshAndStore(ctx)
	if err != nil {
		t.expire(err)
		return "", err
	}

	if observer := t.tokenObserver(); observer != nil {
		observer.TokensRefreshed(tokens)
	}
	return tokens.AccessToken, nil
}

func (t *AuthTransport) refreshAndStore(ctx context.Context) (token.AuthTokens, error) {
	refreshToken, err := t.store.Get(store.KeyRefreshToken)
	if err != nil || refreshToken == "" {
		return token.AuthTokens{}, apperrors.ErrNoRefreshToken
	}

	tokens, err := t.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return token.AuthTokens{}, err
	}

	if err := t.store.Set(store.KeyAccessToken, tokens.AccessToken); err != nil {
		return token.AuthTokens{}, apperrors.Wrapf(err, "store access token")
	}
	if tokens.RefreshToken != "" {
		if err := t.store.Set(store.KeyRefreshToken, tokens.RefreshToken); err != nil {
			return token.AuthTokens{}, apperrors.Wrapf(err, "store refresh token")
		}
	}
	return tokens, nil
}

func (t *AuthTransport) expire(cause error) {
	log.Warn().Err(cause).Msg("token refresh failed, clearing stored tokens")
	for _, key := range []string{store.KeyAccessToken, store.KeyRefreshToken} {
		if err := t.store.Remove(key); err != nil {
			log.Err(err).Str("key", key).Msg("failed to remove token")
		}
	}
	if observer := t.tokenObserver(); observer != nil {
		observer.SessionExpired()
	}
}

func (t *AuthTransport) tokenObserver() TokenObserver {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.observer
}

// prepare clones req with the bearer header set. Re-sends take a fresh body
// from GetBody since the first attempt consumed the original.
func prepare(req *http.Request, accessToken string, attempt int) (*http.Request, error) {
	out := req.Clone(req.Context())
	if attempt > 0 && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		out.Body = body
	}
	if accessToken != "" {
		token.Bearer(accessToken).SetAuthHeader(out)
	}
	return out, nil
}

func rewindable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}
