package config

import "time"

type Config interface {
	EnvConfig
	APIConfig
	StoreConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type APIConfig interface {
	GetBaseURL() string
	GetRequestTimeout() time.Duration
}

type StoreConfig interface {
	GetStorePath() string
	GetStorePassphrase() string
}

type mainConfig struct {
	EnvVars
	API
	Store
}

// New builds the configuration from environment variables layered over the
// optional config file at DefaultFilePath. A missing file is not an error.
func New() (Config, error) {
	file, err := LoadFile(DefaultFilePath())
	if err != nil {
		return nil, err
	}
	return NewWithFile(file), nil
}

// NewWithFile builds the configuration over an already loaded file. Environment
// variables still take precedence over file values.
func NewWithFile(file *File) Config {
	if file == nil {
		file = &File{}
	}
	return mainConfig{
		EnvVars: EnvVars{file: file},
		API:     API{file: file},
		Store:   Store{file: file},
	}
}
