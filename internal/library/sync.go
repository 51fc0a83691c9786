package library

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cadence/internal/config"
	"cadence/internal/convert"
	"cadence/internal/logging"
	"cadence/internal/metadata"
)

// Summary totals a sync run.
type Summary struct {
	Planned   int
	UpToDate  int
	Converted int
	Simulated int
	Failed    int
	Cancelled bool
	Bytes     int64
	Elapsed   time.Duration
	Failures  []Failure
}

// Failure pairs a job with the reason it did not convert.
type Failure struct {
	Job Job
	Err error
}

// Observer is told about each job as the sync progresses.
type Observer interface {
	JobStarted(index, total int, job Job)
	JobFinished(index, total int, job Job, report convert.Report)
}

// Syncer converts planned jobs sequentially through one coordinator.
type Syncer struct {
	coord    *convert.Coordinator
	template convert.Request
	logger   *slog.Logger
	observer Observer
	last     convert.Report
}

// SyncerOption customizes a Syncer.
type SyncerOption func(*Syncer)

// WithObserver reports per-job progress to o.
func WithObserver(o Observer) SyncerOption {
	return func(s *Syncer) {
		s.observer = o
	}
}

// WithSyncLogger sets the logger used for run-level events.
func WithSyncLogger(logger *slog.Logger) SyncerOption {
	return func(s *Syncer) {
		if logger != nil {
			s.logger = logging.NewComponentLogger(logger, "sync")
		}
	}
}

// NewSyncer builds a syncer whose coordinator uses store and coordOpts.
// template carries the programs, tag style and simulate flag; its paths are
// replaced per job.
func NewSyncer(store metadata.Store, template convert.Request, coordOpts []convert.Option, opts ...SyncerOption) (*Syncer, error) {
	s := &Syncer{template: template, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	coordOpts = append(coordOpts, convert.WithReporter(func(r convert.Report) {
		s.last = r
	}))
	coord, err := convert.New(store, coordOpts...)
	if err != nil {
		return nil, err
	}
	s.coord = coord
	return s, nil
}

// Coordinator exposes the underlying coordinator so callers can Cancel it.
func (s *Syncer) Coordinator() *convert.Coordinator {
	return s.coord
}

// Run converts every job in plan. It stops early when ctx is cancelled or an
// attempt ends cancelled; failed jobs are recorded and the run continues.
func (s *Syncer) Run(ctx context.Context, plan Plan) (Summary, error) {
	started := time.Now()
	summary := Summary{Planned: len(plan.Jobs), UpToDate: plan.UpToDate}
	total := len(plan.Jobs)

	for i, job := range plan.Jobs {
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}
		if s.observer != nil {
			s.observer.JobStarted(i, total, job)
		}

		req := s.template
		req.Source = job.Source
		req.Destination = job.Destination
		s.last = convert.Report{}

		ok, err := s.coord.Convert(ctx, req)
		report := s.last
		if s.observer != nil {
			s.observer.JobFinished(i, total, job, report)
		}

		switch {
		case ok && report.Outcome == convert.OutcomeSimulated:
			summary.Simulated++
		case ok:
			summary.Converted++
			summary.Bytes += report.BytesRelayed
		case report.Outcome == convert.OutcomeCancelled:
			summary.Cancelled = true
		case report.ID == "" && err == nil:
			// Another caller owns the coordinator.
			summary.Failed++
			summary.Failures = append(summary.Failures, Failure{Job: job, Err: errors.New("coordinator busy")})
		default:
			if err == nil {
				err = report.Err
			}
			if err == nil {
				err = errors.New("conversion failed")
			}
			summary.Failed++
			summary.Failures = append(summary.Failures, Failure{Job: job, Err: err})
		}
		if summary.Cancelled {
			break
		}
	}

	summary.Elapsed = time.Since(started)
	s.logger.Info("sync finished",
		logging.Int("planned", summary.Planned),
		logging.Int("converted", summary.Converted),
		logging.Int("failed", summary.Failed),
		logging.Bool("cancelled", summary.Cancelled),
		logging.Duration("elapsed", summary.Elapsed),
	)
	if summary.Cancelled {
		return summary, context.Canceled
	}
	return summary, nil
}

// RequestTemplate returns the conversion settings cfg describes, without
// paths.
func RequestTemplate(cfg *config.Config) convert.Request {
	return convert.Request{
		Simulate: cfg.Conversion.Simulate,
		Decoder: convert.Program{
			Binary:  cfg.Decoder.Binary,
			Options: cfg.Decoder.Options,
		},
		Encoder: convert.Program{
			Binary:  cfg.Encoder.Binary,
			Options: cfg.Encoder.Options,
		},
		TagStyle: metadata.TagStyle(cfg.Encoder.TagStyle),
	}
}
