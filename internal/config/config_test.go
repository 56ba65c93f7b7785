package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/resume-client/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNewWithFile_Defaults(t *testing.T) {
	t.Setenv("RESUME_API_BASE_URL", "")
	t.Setenv("RESUME_API_TIMEOUT", "")
	t.Setenv("RESUME_ENV", "")

	c := config.NewWithFile(nil)
	require.Equal(t, config.DefaultBaseURL, c.GetBaseURL())
	require.Equal(t, config.DefaultRequestTimeout, c.GetRequestTimeout())
	require.Equal(t, "DEV", c.GetEnv())
	require.NotEmpty(t, c.GetStorePath())
}

func TestZeroValueGetters(t *testing.T) {
	t.Setenv("RESUME_API_BASE_URL", "")
	t.Setenv("RESUME_API_TIMEOUT", "")
	t.Setenv("RESUME_ENV", "")
	t.Setenv("RESUME_LOG_LEVEL", "")
	t.Setenv("RESUME_STORE_PATH", "")

	require.Equal(t, config.DefaultBaseURL, config.API{}.GetBaseURL())
	require.Equal(t, config.DefaultRequestTimeout, config.API{}.GetRequestTimeout())
	require.Equal(t, "DEV", config.EnvVars{}.GetEnv())
	require.Equal(t, "warn", config.EnvVars{}.GetLogLevel())
	require.NotEmpty(t, config.Store{}.GetStorePath())
}

func TestNewWithFile_FileThenEnv(t *testing.T) {
	t.Setenv("RESUME_API_BASE_URL", "")
	t.Setenv("RESUME_API_TIMEOUT", "")

	file := &config.File{BaseURL: "https://api.example.com/v1/", RequestTimeout: "5s", StorePath: "/tmp/s.json"}
	c := config.NewWithFile(file)
	require.Equal(t, "https://api.example.com/v1", c.GetBaseURL())
	require.Equal(t, 5*time.Second, c.GetRequestTimeout())
	require.Equal(t, "/tmp/s.json", c.GetStorePath())

	t.Setenv("RESUME_API_BASE_URL", "http://override:9000/api/v1")
	t.Setenv("RESUME_API_TIMEOUT", "not-a-duration")
	require.Equal(t, "http://override:9000/api/v1", c.GetBaseURL())
	require.Equal(t, config.DefaultRequestTimeout, c.GetRequestTimeout())
}

func TestLoadFile(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		f, err := config.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		require.Equal(t, &config.File{}, f)
	})

	t.Run("yaml values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("base_url: http://localhost:9999\nlog_level: debug\n"), 0o600))
		f, err := config.LoadFile(path)
		require.NoError(t, err)
		require.Equal(t, "http://localhost:9999", f.BaseURL)
		require.Equal(t, "debug", f.LogLevel)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("base_url: [unterminated"), 0o600))
		_, err := config.LoadFile(path)
		require.Error(t, err)
	})
}
