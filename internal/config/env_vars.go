package config

import (
	"os"
	"strings"
)

const (
	appNameVar  = "RESUME_APP_NAME"
	envVar      = "RESUME_ENV"
	logLevelVar = "RESUME_LOG_LEVEL"
)

type EnvVars struct {
	file *File
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Resume Builder")
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(GetEnv(envVar, firstNonEmpty(e.file.fields().Env, "DEV")))
}

func (e EnvVars) GetLogLevel() string {
	return strings.ToLower(GetEnv(logLevelVar, firstNonEmpty(e.file.fields().LogLevel, "warn")))
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
