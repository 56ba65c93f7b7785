package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/resume-client/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// RefreshPath is the refresh endpoint, relative to the API base URL.
const RefreshPath = "/auth/refresh"

// Refresher exchanges a refresh token for a new access token. It talks to the
// API through its own http.Client so the call never passes through the
// authenticating transport. Concurrent refreshes of the same refresh token
// share one request.
type Refresher struct {
	endpoint string
	client   *http.Client
	group    singleflight.Group
}

type RefresherOption func(*Refresher)

// WithHTTPClient replaces the plain client used for the refresh call.
func WithHTTPClient(client *http.Client) RefresherOption {
	return func(r *Refresher) {
		r.client = client
	}
}

func NewRefresher(baseURL string, timeout time.Duration, options ...RefresherOption) *Refresher {
	r := &Refresher{
		endpoint: strings.TrimRight(baseURL, "/") + RefreshPath,
		client:   &http.Client{Timeout: timeout},
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Refresh posts the refresh token and returns the new tokens. Callers that
// arrive while a refresh for the same token is in flight get its result.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (AuthTokens, error) {
	if refreshToken == "" {
		return AuthTokens{}, apperrors.ErrNoRefreshToken
	}

	v, err, shared := r.group.Do(refreshToken, func() (any, error) {
		// The first caller cancelling must not fail the callers sharing the result.
		return r.refresh(context.WithoutCancel(ctx), refreshToken)
	})
	if shared {
		log.Debug().Msg("joined in-flight token refresh")
	}
	if err != nil {
		return AuthTokens{}, err
	}
	return v.(AuthTokens), nil
}

func (r *Refresher) refresh(ctx context.Context, refreshToken string) (AuthTokens, error) {
	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return AuthTokens{}, apperrors.Wrapf(apperrors.ErrRefreshFailed, "encode: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return AuthTokens{}, apperrors.Wrapf(apperrors.ErrRefreshFailed, "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return AuthTokens{}, apperrors.Wrapf(apperrors.ErrRefreshFailed, "send: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return AuthTokens{}, fmt.Errorf("%w: status %d", apperrors.ErrRefreshFailed, resp.StatusCode)
	}

	var tokens AuthTokens
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return AuthTokens{}, fmt.Errorf("%w: %w: %v", apperrors.ErrRefreshFailed, apperrors.ErrMalformedResponse, err)
	}
	if tokens.AccessToken == "" {
		return AuthTokens{}, fmt.Errorf("%w: %w: no access_token", apperrors.ErrRefreshFailed, apperrors.ErrMalformedResponse)
	}

	log.Debug().Bool("rotated", tokens.RefreshToken != "").Msg("access token refreshed")
	return tokens, nil
}
