package notify

import (
	"github.com/rs/zerolog"
)

// LogHandler writes each notification to logger, errors at warn level.
func LogHandler(logger zerolog.Logger) Handler {
	return func(n Notification) {
		event := logger.Info()
		if n.Level == LevelError {
			event = logger.Warn()
		}
		event.Str("level_name", n.Level.String()).
			Str("notification_id", n.ID.String()).
			Msg(n.Message)
	}
}
