package config

import (
	"strings"
	"time"
)

const (
	baseURLVar        = "RESUME_API_BASE_URL"
	requestTimeoutVar = "RESUME_API_TIMEOUT"

	DefaultBaseURL        = "http://localhost:8080/api/v1"
	DefaultRequestTimeout = 30 * time.Second
)

type API struct {
	file *File
}

var _ APIConfig = API{}

// GetBaseURL returns the API root every endpoint path is appended to, without a trailing slash.
func (a API) GetBaseURL() string {
	return strings.TrimRight(GetEnv(baseURLVar, firstNonEmpty(a.file.fields().BaseURL, DefaultBaseURL)), "/")
}

// GetRequestTimeout is the overall timeout applied to a single API call,
// refresh-and-retry included. Unparseable values fall back to the default.
func (a API) GetRequestTimeout() time.Duration {
	raw := GetEnv(requestTimeoutVar, a.file.fields().RequestTimeout)
	if raw == "" {
		return DefaultRequestTimeout
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return DefaultRequestTimeout
	}
	return d
}
