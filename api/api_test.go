package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/resume-client/api"
	apperrors "github.com/jrsteele09/resume-client/internal/errors"
	"github.com/jrsteele09/resume-client/internal/fakeapi"
	"github.com/jrsteele09/resume-client/store"
	"github.com/jrsteele09/resume-client/token"
	"github.com/jrsteele09/resume-client/users"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "ada@example.com"
	testPassword = "Secret123"
)

type recordingObserver struct {
	mu        sync.Mutex
	refreshed []token.AuthTokens
	expired   int
}

func (o *recordingObserver) TokensRefreshed(tokens token.AuthTokens) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.refreshed = append(o.refreshed, tokens)
}

func (o *recordingObserver) SessionExpired() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.expired++
}

func (o *recordingObserver) counts() (int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.refreshed), o.expired
}

type fixture struct {
	srv      *fakeapi.Server
	store    *store.MemoryStore
	observer *recordingObserver
	client   *api.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := fakeapi.New()
	t.Cleanup(srv.Close)
	srv.AddUser(testEmail, testPassword, "Ada Lovelace")

	st := store.NewMemoryStore()
	observer := &recordingObserver{}
	transport := api.NewAuthTransport(st, token.NewRefresher(srv.BaseURL(), time.Second), api.WithTokenObserver(observer))

	return &fixture{
		srv:      srv,
		store:    st,
		observer: observer,
		client:   api.New(srv.BaseURL(), api.WithTransport(transport), api.WithTimeout(5*time.Second)),
	}
}

// login stores a fresh token pair as the session manager would.
func (f *fixture) login(t *testing.T) (string, string) {
	t.Helper()
	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	err := api.New(f.srv.BaseURL()).Post(context.Background(), "/auth/login",
		users.Credentials{Email: testEmail, Password: testPassword}, &resp)
	require.NoError(t, err)
	require.NoError(t, f.store.Set(store.KeyAccessToken, resp.AccessToken))
	require.NoError(t, f.store.Set(store.KeyRefreshToken, resp.RefreshToken))
	return resp.AccessToken, resp.RefreshToken
}

func (f *fixture) stored(t *testing.T, key string) string {
	t.Helper()
	v, err := f.store.Get(key)
	require.NoError(t, err)
	return v
}

func TestClient_AttachesBearerToken(t *testing.T) {
	f := newFixture(t)
	at, _ := f.login(t)

	var u users.User
	require.NoError(t, f.client.Get(context.Background(), "/profile", &u))
	require.Equal(t, testEmail, u.Email)

	reqs := f.srv.Requests(http.MethodGet, "/profile")
	require.Len(t, reqs, 1)
	require.Equal(t, "Bearer "+at, reqs[0].Authorization)
	require.NotEmpty(t, reqs[0].RequestID)
	require.Zero(t, f.srv.Count(http.MethodPost, token.RefreshPath))
}

func TestClient_RefreshesOnceAndRetries(t *testing.T) {
	f := newFixture(t)
	at1, rt1 := f.login(t)
	f.srv.ExpireAccessTokens()

	var u users.User
	require.NoError(t, f.client.Get(context.Background(), "/profile", &u))
	require.Equal(t, testEmail, u.Email)

	require.Equal(t, 1, f.srv.Count(http.MethodPost, token.RefreshPath))
	refreshReqs := f.srv.Requests(http.MethodPost, token.RefreshPath)
	require.JSONEq(t, `{"refresh_token":"`+rt1+`"}`, string(refreshReqs[0].Body))

	at2 := f.stored(t, store.KeyAccessToken)
	require.NotEqual(t, at1, at2)
	require.NotEqual(t, rt1, f.stored(t, store.KeyRefreshToken), "rotated refresh token is stored")

	reqs := f.srv.Requests(http.MethodGet, "/profile")
	require.Len(t, reqs, 2)
	require.Equal(t, "Bearer "+at1, reqs[0].Authorization)
	require.Equal(t, "Bearer "+at2, reqs[1].Authorization)

	refreshed, expired := f.observer.counts()
	require.Equal(t, 1, refreshed)
	require.Zero(t, expired)
}

func TestClient_KeepsRefreshTokenWhenNotRotated(t *testing.T) {
	f := newFixture(t)
	_, rt1 := f.login(t)
	f.srv.RotateRefreshTokens(false)
	f.srv.ExpireAccessTokens()

	require.NoError(t, f.client.Get(context.Background(), "/profile", nil))
	require.Equal(t, rt1, f.stored(t, store.KeyRefreshToken))
}

func TestClient_RetryResendsBody(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.srv.ExpireAccessTokens()

	name := "Ada King"
	var u users.User
	require.NoError(t, f.client.Put(context.Background(), "/profile", users.ProfileUpdate{FullName: &name}, &u))
	require.Equal(t, name, u.FullName)

	reqs := f.srv.Requests(http.MethodPut, "/profile")
	require.Len(t, reqs, 2)
	require.JSONEq(t, `{"full_name":"Ada King"}`, string(reqs[0].Body))
	require.Equal(t, reqs[0].Body, reqs[1].Body)
}

func TestClient_RetriesAtMostOnce(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.srv.FailNext(http.MethodGet, "/profile", http.StatusUnauthorized, "first")
	f.srv.FailNext(http.MethodGet, "/profile", http.StatusUnauthorized, "second")

	err := f.client.Get(context.Background(), "/profile", nil)
	var re *api.ResponseError
	require.ErrorAs(t, err, &re)
	require.Equal(t, http.StatusUnauthorized, re.StatusCode)
	require.Equal(t, "second", re.Message)

	require.Equal(t, 2, f.srv.Count(http.MethodGet, "/profile"))
	require.Equal(t, 1, f.srv.Count(http.MethodPost, token.RefreshPath))
	_, expired := f.observer.counts()
	require.Zero(t, expired, "a 401 on the retry is not a refresh failure")
}

func TestClient_RefreshFailureExpiresSession(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.srv.ExpireAccessTokens()
	f.srv.FailRefresh(true)

	err := f.client.Get(context.Background(), "/profile", nil)
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	require.ErrorIs(t, err, apperrors.ErrRefreshFailed)

	_, err = f.store.Get(store.KeyAccessToken)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = f.store.Get(store.KeyRefreshToken)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	require.Equal(t, 1, f.srv.Count(http.MethodGet, "/profile"), "no retry after a failed refresh")
	refreshed, expired := f.observer.counts()
	require.Zero(t, refreshed)
	require.Equal(t, 1, expired)
}

func TestClient_MissingRefreshTokenExpiresSession(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	require.NoError(t, f.store.Remove(store.KeyRefreshToken))
	f.srv.ExpireAccessTokens()

	err := f.client.Get(context.Background(), "/profile", nil)
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	require.ErrorIs(t, err, apperrors.ErrNoRefreshToken)
	require.Zero(t, f.srv.Count(http.MethodPost, token.RefreshPath))
	require.Empty(t, f.store.Keys())
}

func TestClient_UnauthenticatedRequestIsNotRefreshed(t *testing.T) {
	f := newFixture(t)

	err := f.client.Post(context.Background(), "/auth/login",
		users.Credentials{Email: testEmail, Password: "WrongPass1"}, nil)
	var re *api.ResponseError
	require.ErrorAs(t, err, &re)
	require.Equal(t, http.StatusUnauthorized, re.StatusCode)
	require.Equal(t, "INVALID_CREDENTIALS", re.Code)
	require.Equal(t, "Invalid email or password", api.MessageOr(err, "Login failed"))

	require.Zero(t, f.srv.Count(http.MethodPost, token.RefreshPath))
	_, expired := f.observer.counts()
	require.Zero(t, expired)
}

func TestClient_ConcurrentExpiredRequestsShareOneRefresh(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.srv.ExpireAccessTokens()

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.client.Get(context.Background(), "/profile", nil)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 1, f.srv.Count(http.MethodPost, token.RefreshPath))
	_, expired := f.observer.counts()
	require.Zero(t, expired)
}

func TestClient_ConcurrentRefreshFailureExpiresOnce(t *testing.T) {
	f := newFixture(t)
	f.login(t)
	f.srv.ExpireAccessTokens()
	f.srv.FailRefresh(true)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.client.Get(context.Background(), "/profile", nil)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.Error(t, err)
	}
	require.Equal(t, 1, f.srv.Count(http.MethodPost, token.RefreshPath))
	_, expired := f.observer.counts()
	require.Equal(t, 1, expired)
}

func TestClient_ResponseErrors(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	var observed []error
	client := api.New(f.srv.BaseURL(),
		api.WithTransport(api.NewAuthTransport(f.store, token.NewRefresher(f.srv.BaseURL(), time.Second))),
		api.WithErrorObserver(func(err error) { observed = append(observed, err) }),
	)

	f.srv.FailNext(http.MethodGet, "/documents", http.StatusInternalServerError, "boom")
	err := client.Get(context.Background(), "/documents", nil)

	var re *api.ResponseError
	require.ErrorAs(t, err, &re)
	require.Equal(t, http.StatusInternalServerError, re.StatusCode)
	require.Equal(t, "INJECTED", re.Code)
	require.Equal(t, 500, api.StatusCode(err))
	msg, ok := api.ServerMessage(err)
	require.True(t, ok)
	require.Equal(t, "boom", msg)
	require.Len(t, observed, 1)
	require.Same(t, err, observed[0])
}

func TestClient_ErrorPayloadShapes(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
		wantMsg  string
	}{
		{name: "nested", body: `{"error":{"code":"NOPE","message":"nested message"}}`, wantCode: "NOPE", wantMsg: "nested message"},
		{name: "string", body: `{"error":"flat message"}`, wantMsg: "flat message"},
		{name: "top level message", body: `{"message":"top message"}`, wantMsg: "top message"},
		{name: "not json", body: `<html>bad gateway</html>`},
		{name: "empty", body: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := api.New(srv.URL).Get(context.Background(), "/x", nil)
			var re *api.ResponseError
			require.ErrorAs(t, err, &re)
			require.Equal(t, http.StatusBadRequest, re.StatusCode)
			require.Equal(t, tt.wantCode, re.Code)
			require.Equal(t, tt.wantMsg, re.Message)

			_, ok := api.ServerMessage(err)
			require.Equal(t, tt.wantMsg != "", ok)
		})
	}
}

func TestClient_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	var out map[string]any
	err := api.New(srv.URL).Get(context.Background(), "/x", &out)
	require.ErrorIs(t, err, apperrors.ErrMalformedResponse)
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	err := api.New(baseURL).Get(context.Background(), "/profile", nil)
	var ne *api.NetworkError
	require.ErrorAs(t, err, &ne)
	require.Zero(t, api.StatusCode(err))
}

func TestClient_TimeoutIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	err := api.New(srv.URL, api.WithTimeout(20*time.Millisecond)).Get(context.Background(), "/slow", nil)
	var ne *api.NetworkError
	require.ErrorAs(t, err, &ne)
}

func TestClient_RequestError(t *testing.T) {
	t.Run("bad url", func(t *testing.T) {
		err := api.New("://no-scheme").Get(context.Background(), "/profile", nil)
		var re *api.RequestError
		require.ErrorAs(t, err, &re)
	})

	t.Run("unencodable body", func(t *testing.T) {
		err := api.New("http://127.0.0.1:1").Post(context.Background(), "/x", make(chan int), nil)
		var re *api.RequestError
		require.ErrorAs(t, err, &re)
		require.False(t, errors.As(err, new(*api.NetworkError)))
	})
}
