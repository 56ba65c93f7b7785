package notify

import (
	"context"
	"errors"

	"github.com/jrsteele09/resume-client/api"
	apperrors "github.com/jrsteele09/resume-client/internal/errors"
)

// Fallback messages for API failures that carry no server message.
const (
	MsgServerError     = "Something went wrong"
	MsgNetworkError    = "Network error. Please check your connection."
	MsgUnexpectedError = "An unexpected error occurred"
)

// MessageFor turns an API call error into the message shown to the user.
// It reports false for errors that are announced elsewhere (session expiry)
// or not worth announcing (cancellation by the caller).
func MessageFor(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	if errors.Is(err, apperrors.ErrSessionExpired) || errors.Is(err, context.Canceled) {
		return "", false
	}

	var re *api.ResponseError
	if errors.As(err, &re) {
		return api.MessageOr(err, MsgServerError), true
	}
	var ne *api.NetworkError
	if errors.As(err, &ne) {
		return MsgNetworkError, true
	}
	return MsgUnexpectedError, true
}

// ErrorObserver publishes every failed API call on the bus. Register it with
// api.WithErrorObserver.
func (b *Bus) ErrorObserver() api.ErrorObserver {
	return func(err error) {
		if msg, ok := MessageFor(err); ok {
			b.report(err, msg)
		}
	}
}
