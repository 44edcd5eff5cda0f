package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes notifications to the log instead of delivering them.
// Used in local development and tests.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier { return &LogNotifier{log: log} }

func (l *LogNotifier) Send(ctx context.Context, n StatusNotification) error {
	l.log.Info().
		Str("to", n.Email).
		Str("dog_name", n.DogName).
		Str("status", n.Status).
		Str("subject", n.Subject()).
		Msg("notification (log mode)")
	return nil
}
