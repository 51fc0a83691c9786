package convert

import (
	"time"

	"cadence/internal/pipe"
)

// Outcome summarizes how a conversion attempt ended.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeSimulated Outcome = "simulated"
)

// Report describes one finished conversion attempt. Busy rejections produce
// no report.
type Report struct {
	ID           string
	Request      Request
	Outcome      Outcome
	PipeStatus   pipe.ExitStatus
	DecoderExit  int
	EncoderExit  int
	BytesRelayed int64
	Started      time.Time
	Duration     time.Duration
	// Err is the cause of a failed attempt; nil on success and cancellation.
	Err error
}

// Succeeded reports whether the destination was fully produced.
func (r Report) Succeeded() bool {
	return r.Outcome == OutcomeSucceeded || r.Outcome == OutcomeSimulated
}
