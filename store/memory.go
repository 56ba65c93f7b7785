package store

import (
	"sync"

	apperrors "github.com/jrsteele09/resume-client/internal/errors"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps values for the life of the process.
type MemoryStore struct {
	values map[string]string
	lock   sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]string),
	}
}

func (ms *MemoryStore) Get(key string) (string, error) {
	ms.lock.RLock()
	defer ms.lock.RUnlock()

	v, ok := ms.values[key]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return v, nil
}

func (ms *MemoryStore) Set(key, value string) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	ms.values[key] = value
	return nil
}

func (ms *MemoryStore) Remove(key string) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	delete(ms.values, key)
	return nil
}

// Keys returns a snapshot of the stored keys.
func (ms *MemoryStore) Keys() []string {
	ms.lock.RLock()
	defer ms.lock.RUnlock()

	keys := make([]string, 0, len(ms.values))
	for k := range ms.values {
		keys = append(keys, k)
	}
	return keys
}
