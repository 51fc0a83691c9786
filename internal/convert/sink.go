package convert

import (
	"log/slog"

	"cadence/internal/logging"
)

// ProgressSink observes a conversion. It never influences control flow.
type ProgressSink interface {
	AddMessage(text string)
	AddCommand(text string)
}

type nopSink struct{}

func (nopSink) AddMessage(string) {}
func (nopSink) AddCommand(string) {}

// LogSink forwards progress notices to a logger at debug level.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) AddMessage(text string) {
	if s.Logger != nil {
		s.Logger.Debug(text)
	}
}

func (s LogSink) AddCommand(text string) {
	if s.Logger != nil {
		s.Logger.Debug("command", logging.String("command", text))
	}
}
