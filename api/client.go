// Package api is the HTTP transport to the résumé API: JSON request helpers,
// bearer token attachment and one-shot token refresh on 401.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/resume-client/internal/errors"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a whole call, refresh and retry included.
const DefaultTimeout = 30 * time.Second

// ErrorObserver is told about every error a call returns, before it is returned.
type ErrorObserver func(err error)

// Client issues JSON requests against the API base URL.
type Client struct {
	baseURL   string
	http      *http.Client
	observers []ErrorObserver
}

type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = timeout
	}
}

// WithTransport sets the round tripper, normally an *AuthTransport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport = rt
	}
}

// WithErrorObserver registers an observer; the notification layer subscribes here.
func WithErrorObserver(observer ErrorObserver) Option {
	return func(c *Client) {
		c.observers = append(c.observers, observer)
	}
}

func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPost, path, in, out)
}

func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPut, path, in, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do sends in as the JSON body (when non-nil) and decodes a 2xx JSON response
// into out (when non-nil). Errors are *ResponseError, *NetworkError,
// *RequestError or wrap apperrors.ErrSessionExpired.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	req, err := c.newRequest(ctx, method, path, in)
	if err != nil {
		return c.fail(&RequestError{Err: err})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(classifyTransportError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(newResponseError(resp))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return c.fail(fmt.Errorf("%w: %s %s: %v", apperrors.ErrMalformedResponse, method, path, err))
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, in any) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		// bytes.Reader gives the request a GetBody, which the retry needs
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.New().String())
	return req, nil
}

func (c *Client) fail(err error) error {
	log.Debug().Err(err).Msg("api call failed")
	for _, observe := range c.observers {
		observe(err)
	}
	return err
}
