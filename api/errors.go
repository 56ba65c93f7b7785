package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	apperrors "github.com/jrsteele09/resume-client/internal/errors"
)

const maxErrorBodyBytes = 64 << 10

// ResponseError is returned when the API answered with a non-2xx status.
type ResponseError struct {
	StatusCode int
	Code       string // machine readable code, when the payload carries one
	Message    string // server provided message, may be empty
}

func (e *ResponseError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
	}
	return fmt.Sprintf("api: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// NetworkError is returned when the request was sent but no response arrived:
// refused connections, resets, DNS failures and timeouts.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "api: network error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// RequestError is returned when the request could not be built or sent at all.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string { return "api: request failed: " + e.Err.Error() }
func (e *RequestError) Unwrap() error { return e.Err }

// ServerMessage returns the server supplied message carried by err, if any.
func ServerMessage(err error) (string, bool) {
	var re *ResponseError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message, true
	}
	return "", false
}

// MessageOr returns the server supplied message carried by err, or fallback.
func MessageOr(err error, fallback string) string {
	if msg, ok := ServerMessage(err); ok {
		return msg
	}
	return fallback
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var re *ResponseError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}

// newResponseError reads the error payload. The API sends either
// {"error":"message"} or {"error":{"code":"...","message":"..."}}.
func newResponseError(resp *http.Response) *ResponseError {
	re := &ResponseError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil || len(body) == 0 {
		return re
	}

	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return re
	}

	var msg string
	if err := json.Unmarshal(payload.Error, &msg); err == nil {
		re.Message = msg
		return re
	}

	var detail struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Error, &detail); err == nil {
		re.Code = detail.Code
		re.Message = detail.Message
	}
	if re.Message == "" {
		re.Message = payload.Message
	}
	return re
}

// classifyTransportError sorts an http.Client.Do error into the network or
// request class. Session expiry raised by the transport passes through as is.
func classifyTransportError(err error) error {
	if errors.Is(err, apperrors.ErrSessionExpired) {
		return err
	}

	var ue *url.Error
	if !errors.As(err, &ue) {
		return &RequestError{Err: err}
	}
	if ue.Timeout() {
		return &NetworkError{Err: err}
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.As(ue.Err, &opErr),
		errors.As(ue.Err, &dnsErr),
		errors.Is(ue.Err, io.EOF),
		errors.Is(ue.Err, io.ErrUnexpectedEOF),
		errors.Is(ue.Err, context.Canceled),
		errors.Is(ue.Err, context.DeadlineExceeded):
		return &NetworkError{Err: err}
	}
	return &RequestError{Err: err}
}
