package fakeapi

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// hmacSigner mints and verifies HS256 access tokens the way the résumé API does.
type hmacSigner struct {
	secret []byte
}

func newHMACSigner(secret string) *hmacSigner {
	return &hmacSigner{
		secret: []byte(secret),
	}
}

// accessClaims mirrors the API's token claims. Generation lets the fake revoke
// every token issued before a given point.
type accessClaims struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	IsPremium  bool   `json:"is_premium"`
	Generation int    `json:"gen"`
	jwt.RegisteredClaims
}

func (h *hmacSigner) sign(userID, email string, premium bool, generation int, now time.Time, ttl time.Duration) (string, error) {
	claims := &accessClaims{
		UserID:     userID,
		Email:      email,
		IsPremium:  premium,
		Generation: generation,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.New().String(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token with HMAC")
	}
	return signed, nil
}

func (h *hmacSigner) verify(raw string, now time.Time) (*accessClaims, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, h.verificationKey, jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		return nil, errors.Wrap(err, "invalid access token")
	}
	return claims, nil
}

func (h *hmacSigner) verificationKey(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return h.secret, nil
}
