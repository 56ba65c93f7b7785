package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	configDirName  = "resumectl"
	configFileName = "config.yaml"
)

// File is the optional YAML config file. Every field can be overridden by its
// environment variable.
type File struct {
	BaseURL        string `yaml:"base_url"`
	RequestTimeout string `yaml:"request_timeout"`
	StorePath      string `yaml:"store_path"`
	LogLevel       string `yaml:"log_level"`
	Env            string `yaml:"env"`
}

// fields returns f, or an empty File when the config was built without one.
func (f *File) fields() *File {
	if f == nil {
		return &File{}
	}
	return f
}

// DefaultFilePath returns $XDG_CONFIG_HOME/resumectl/config.yaml (or the OS equivalent).
func DefaultFilePath() string {
	return filepath.Join(configDir(), configFileName)
}

// LoadFile reads a config file. A file that does not exist yields an empty File.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &File{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &f, nil
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "." + configDirName
	}
	return filepath.Join(dir, configDirName)
}
