package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/resume-client/internal/errors"
)

// ExpiresAt reads the exp claim of an access token without verifying its
// signature. The client cannot verify tokens; the value is informational.
func ExpiresAt(rawToken string) (time.Time, error) {
	claims, err := parseUnverified(rawToken)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, apperrors.Wrapf(apperrors.ErrInvalidToken, "no exp claim")
	}
	return claims.ExpiresAt.Time, nil
}

func parseUnverified(rawToken string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(rawToken, claims); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "parse: %v", err)
	}
	return claims, nil
}
