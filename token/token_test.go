package token_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/resume-client/internal/errors"
	"github.com/jrsteele09/resume-client/token"
	"github.com/stretchr/testify/require"
)

func refreshServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestRefresher_Refresh(t *testing.T) {
	srv := refreshServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != token.RefreshPath {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["refresh_token"] != "RT1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "AT2", "refresh_token": "RT2", "expires_in": 900})
	})

	r := token.NewRefresher(srv.URL+"/", time.Second)
	tokens, err := r.Refresh(context.Background(), "RT1")
	require.NoError(t, err)
	require.Equal(t, token.AuthTokens{AccessToken: "AT2", RefreshToken: "RT2", ExpiresIn: 900}, tokens)

	_, err = r.Refresh(context.Background(), "RT-unknown")
	require.ErrorIs(t, err, apperrors.ErrRefreshFailed)
}

func TestRefresher_NoRefreshToken(t *testing.T) {
	var calls atomic.Int32
	srv := refreshServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := token.NewRefresher(srv.URL, time.Second).Refresh(context.Background(), "")
	require.ErrorIs(t, err, apperrors.ErrNoRefreshToken)
	require.Zero(t, calls.Load())
}

func TestRefresher_MalformedResponse(t *testing.T) {
	tests := map[string]string{
		"not json":        "<html>",
		"no access token": `{"refresh_token":"RT2"}`,
	}
	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			srv := refreshServer(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(payload))
			})
			_, err := token.NewRefresher(srv.URL, time.Second).Refresh(context.Background(), "RT1")
			require.ErrorIs(t, err, apperrors.ErrRefreshFailed)
			require.ErrorIs(t, err, apperrors.ErrMalformedResponse)
		})
	}
}

func TestRefresher_SharesInFlightRefresh(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := refreshServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "AT2"})
	})
	r := token.NewRefresher(srv.URL, 5*time.Second)

	const callers = 5
	var wg sync.WaitGroup
	results := make(chan token.AuthTokens, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens, err := r.Refresh(context.Background(), "RT1")
			if err == nil {
				results <- tokens
			}
		}()
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	// Give the remaining callers time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	require.Equal(t, int32(1), calls.Load())
	require.Len(t, results, callers)
	for tokens := range results {
		require.Equal(t, "AT2", tokens.AccessToken)
	}
}

func TestRefresher_CancelledCallerDoesNotFailOthers(t *testing.T) {
	release := make(chan struct{})
	srv := refreshServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "AT2"})
	})
	r := token.NewRefresher(srv.URL, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan error, 1)
	go func() {
		_, err := r.Refresh(ctx, "RT1")
		done <- err
	}()
	close(release)
	require.NoError(t, <-done)
}

func TestRefresher_WithHTTPClient(t *testing.T) {
	srv := refreshServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "AT2"})
	})
	var used atomic.Bool
	client := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		used.Store(true)
		return http.DefaultTransport.RoundTrip(req)
	})}

	_, err := token.NewRefresher(srv.URL, time.Second, token.WithHTTPClient(client)).Refresh(context.Background(), "RT1")
	require.NoError(t, err)
	require.True(t, used.Load())
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func TestExpiresAt(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	got, err := token.ExpiresAt(raw)
	require.NoError(t, err)
	require.True(t, exp.Equal(got))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u1"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = token.ExpiresAt(noExp)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)

	_, err = token.ExpiresAt("AT1")
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestBearer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	token.Bearer("AT1").SetAuthHeader(req)
	require.Equal(t, "Bearer AT1", req.Header.Get("Authorization"))
}
