package errors

import (
	"errors"
	"fmt"
)

// Common error types for the résumé API client
var (
	// Input errors, raised before anything is sent
	ErrValidation = errors.New("validation failed")

	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionExpired   = errors.New("session expired")
	ErrBusy             = errors.New("operation already in progress")

	// Token errors
	ErrInvalidToken   = errors.New("invalid token")
	ErrNoRefreshToken = errors.New("no refresh token")
	ErrRefreshFailed  = errors.New("token refresh failed")

	// Store errors
	ErrNotFound = errors.New("not found")

	// General errors
	ErrMalformedResponse = errors.New("malformed response")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
