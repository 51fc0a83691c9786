package history

import (
	"context"
	"log/slog"
	"time"

	"cadence/internal/convert"
	"cadence/internal/logging"
)

// Reporter returns a convert reporter that records every attempt. Failures
// to record are logged and never affect the conversion.
func (s *Store) Reporter(logger *slog.Logger) func(convert.Report) {
	if logger == nil {
		logger = logging.NewNop()
	}
	return func(report convert.Report) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Record(ctx, report); err != nil {
			logging.WarnWithContext(logger, "recording conversion history failed", "history_write_failed",
				logging.String(logging.FieldAttemptID, report.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on the state directory"),
				logging.String(logging.FieldImpact, "the attempt is missing from cadence history"),
			)
		}
	}
}
