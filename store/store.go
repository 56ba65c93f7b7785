// Package store is the persistent key-value port the session layer writes
// tokens and the session record through.
package store

// Keys written by the session manager and the API transport.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeySession      = "auth-storage"
)

// Store is a durable string key-value store. Get returns apperrors.ErrNotFound
// for a missing key; Remove of a missing key is not an error.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}
