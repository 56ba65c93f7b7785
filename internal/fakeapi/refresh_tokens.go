package fakeapi

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const refreshTokenLength = 32

type storedRefreshToken struct {
	Token  string
	UserID string
	Iat    time.Time
}

// refreshTokens keeps one live refresh token per user, like the API does.
type refreshTokens struct {
	tokens  map[string]*storedRefreshToken
	userIDs map[string]string // user ID to token
	ttl     time.Duration
	lock    sync.Mutex
}

func newRefreshTokens(ttl time.Duration) *refreshTokens {
	return &refreshTokens{
		tokens:  make(map[string]*storedRefreshToken),
		userIDs: make(map[string]string),
		ttl:     ttl,
	}
}

// create issues a new refresh token for the user, replacing any existing one.
func (rt *refreshTokens) create(userID string, now time.Time) (string, error) {
	rt.lock.Lock()
	defer rt.lock.Unlock()

	if existing, ok := rt.userIDs[userID]; ok {
		delete(rt.tokens, existing)
	}

	tokenBytes := make([]byte, refreshTokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	rt.tokens[token] = &storedRefreshToken{Token: token, UserID: userID, Iat: now}
	rt.userIDs[userID] = token
	return token, nil
}

// lookup returns the owner of a live refresh token.
func (rt *refreshTokens) lookup(token string, now time.Time) (string, error) {
	rt.lock.Lock()
	defer rt.lock.Unlock()

	stored, ok := rt.tokens[token]
	if !ok {
		return "", errors.New("not found")
	}
	if now.Sub(stored.Iat) > rt.ttl {
		delete(rt.tokens, token)
		delete(rt.userIDs, stored.UserID)
		return "", errors.New("refresh token expired")
	}
	return stored.UserID, nil
}

func (rt *refreshTokens) revokeAll() {
	rt.lock.Lock()
	defer rt.lock.Unlock()

	rt.tokens = make(map[string]*storedRefreshToken)
	rt.userIDs = make(map[string]string)
}
