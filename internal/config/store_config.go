package config

import (
	"os"
	"path/filepath"
)

const (
	storePathVar       = "RESUME_STORE_PATH"
	storePassphraseVar = "RESUME_STORE_PASSPHRASE"

	storeFileName = "session.json"
)

type Store struct {
	file *File
}

var _ StoreConfig = Store{}

func (s Store) GetStorePath() string {
	return GetEnv(storePathVar, firstNonEmpty(s.file.fields().StorePath, filepath.Join(configDir(), storeFileName)))
}

// GetStorePassphrase is only read from the environment so it never lands in the config file.
func (Store) GetStorePassphrase() string {
	return os.Getenv(storePassphraseVar)
}
