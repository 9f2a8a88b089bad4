package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSender writes notifications to the application log. It is the default
// channel when no external sender is configured.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (l *LogSender) Name() string {
	return "log"
}

func (l *LogSender) Send(_ context.Context, title, message string) error {
	l.logger.Info().Str("title", title).Msg(message)
	return nil
}
