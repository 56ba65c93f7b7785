package store

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	apperrors "github.com/jrsteele09/resume-client/internal/errors"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	saltLength  = 16
	nonceLength = 24
	keyLength   = 32

	// scrypt parameters recommended for interactive logins
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

var _ Store = (*FileStore)(nil)

// fileEnvelope is the on-disk format. Values is used for plain files; Salt and
// Sealed (nonce followed by the secretbox output) for passphrase protected files.
type fileEnvelope struct {
	Salt   []byte            `json:"salt,omitempty"`
	Sealed []byte            `json:"sealed,omitempty"`
	Values map[string]string `json:"values,omitempty"`
}

// FileStore persists values as a JSON file, rewriting it on every change.
// With a passphrase the values are sealed with NaCl secretbox under a key
// derived by scrypt.
type FileStore struct {
	path       string
	passphrase string
	salt       []byte
	key        *[keyLength]byte
	values     map[string]string
	lock       sync.RWMutex
}

type FileStoreOption func(*FileStore)

// WithPassphrase encrypts the file contents at rest.
func WithPassphrase(passphrase string) FileStoreOption {
	return func(fs *FileStore) {
		fs.passphrase = passphrase
	}
}

// OpenFileStore loads the store at path, creating an empty one if the file does not exist.
func OpenFileStore(path string, options ...FileStoreOption) (*FileStore, error) {
	fs := &FileStore{
		path:   path,
		values: make(map[string]string),
	}
	for _, opt := range options {
		opt(fs)
	}

	if err := fs.load(); err != nil {
		return nil, apperrors.Wrapf(err, "[OpenFileStore] %s", path)
	}
	return fs, nil
}

func (fs *FileStore) Get(key string) (string, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	v, ok := fs.values[key]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return v, nil
}

func (fs *FileStore) Set(key, value string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	prev, existed := fs.values[key]
	fs.values[key] = value
	if err := fs.save(); err != nil {
		if existed {
			fs.values[key] = prev
		} else {
			delete(fs.values, key)
		}
		return apperrors.Wrapf(err, "[FileStore.Set] %s", key)
	}
	return nil
}

func (fs *FileStore) Remove(key string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	prev, existed := fs.values[key]
	if !existed {
		return nil
	}
	delete(fs.values, key)
	if err := fs.save(); err != nil {
		fs.values[key] = prev
		return apperrors.Wrapf(err, "[FileStore.Remove] %s", key)
	}
	return nil
}

func (fs *FileStore) load() error {
	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var env fileEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode store: %w", err)
	}

	if env.Sealed == nil {
		if fs.passphrase != "" && len(env.Values) > 0 {
			return fmt.Errorf("store is not encrypted but a passphrase was given")
		}
		for k, v := range env.Values {
			fs.values[k] = v
		}
		return nil
	}

	if fs.passphrase == "" {
		return fmt.Errorf("store is encrypted and no passphrase was given")
	}
	if len(env.Sealed) < nonceLength {
		return fmt.Errorf("sealed payload too short")
	}

	key, err := deriveKey(fs.passphrase, env.Salt)
	if err != nil {
		return err
	}
	var nonce [nonceLength]byte
	copy(nonce[:], env.Sealed[:nonceLength])
	plain, ok := secretbox.Open(nil, env.Sealed[nonceLength:], &nonce, key)
	if !ok {
		return fmt.Errorf("wrong passphrase or corrupt store")
	}
	if err := json.Unmarshal(plain, &fs.values); err != nil {
		return fmt.Errorf("decode sealed values: %w", err)
	}
	if fs.values == nil {
		fs.values = make(map[string]string)
	}
	fs.salt = env.Salt
	fs.key = key
	return nil
}

func (fs *FileStore) save() error {
	var env fileEnvelope
	if fs.passphrase == "" {
		env.Values = fs.values
	} else {
		sealed, err := fs.seal()
		if err != nil {
			return err
		}
		env.Salt = fs.salt
		env.Sealed = sealed
	}

	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(fs.path), ".store-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), fs.path)
}

func (fs *FileStore) seal() ([]byte, error) {
	if fs.key == nil {
		salt := make([]byte, saltLength)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
		key, err := deriveKey(fs.passphrase, salt)
		if err != nil {
			return nil, err
		}
		fs.salt, fs.key = salt, key
	}

	plain, err := json.Marshal(fs.values)
	if err != nil {
		return nil, err
	}

	var nonce [nonceLength]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plain, &nonce, fs.key), nil
}

func deriveKey(passphrase string, salt []byte) (*[keyLength]byte, error) {
	raw, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	var key [keyLength]byte
	copy(key[:], raw)
	return &key, nil
}
