package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"cadence/internal/logging"
	"cadence/internal/metadata"
	"cadence/internal/pipe"
)

// errStopped marks an attempt abandoned because a stop was requested.
var errStopped = errors.New("conversion stopped")

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithSink attaches a progress observer.
func WithSink(sink ProgressSink) Option {
	return func(c *Coordinator) {
		if sink != nil {
			c.sink = sink
		}
	}
}

// WithLogger sets the base logger; a "convert" component attribute is added.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "convert")
		}
	}
}

// WithChunkSize sets the relay buffer size used for each conversion.
func WithChunkSize(size int) Option {
	return func(c *Coordinator) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithReporter registers a callback that receives every finished attempt
// before Convert returns.
func WithReporter(fn func(Report)) Option {
	return func(c *Coordinator) {
		if fn != nil {
			c.reporters = append(c.reporters, fn)
		}
	}
}

// Coordinator runs at most one conversion at a time.
type Coordinator struct {
	store     metadata.Store
	sink      ProgressSink
	logger    *slog.Logger
	chunkSize int
	reporters []func(Report)

	mu       sync.Mutex
	idle     *sync.Cond
	state    State
	stopPipe func()
}

// New builds a coordinator around the given metadata store.
func New(store metadata.Store, opts ...Option) (*Coordinator, error) {
	if store == nil {
		return nil, errors.New("convert: metadata store is required")
	}
	c := &Coordinator{
		store:     store,
		sink:      nopSink{},
		logger:    logging.NewComponentLogger(nil, "convert"),
		chunkSize: pipe.DefaultChunkSize,
	}
	c.idle = sync.NewCond(&c.mu)
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cancel stops the running conversion, if any, and returns once the
// coordinator is Idle. On an idle coordinator it returns immediately.
func (c *Coordinator) Cancel() {
	c.requestStop()

	c.mu.Lock()
	defer c.mu.Unlock()
	for c.state != StateIdle {
		c.idle.Wait()
	}
}

// Convert runs req to completion. It returns false with a nil error when the
// coordinator is busy or the attempt failed or was cancelled; the only
// returned errors are request validation failures, which match ErrNotFound.
// Cancelling ctx requests a stop like Cancel does.
func (c *Coordinator) Convert(ctx context.Context, req Request) (bool, error) {
	if !c.begin() {
		c.logger.Debug("conversion rejected, coordinator busy",
			logging.String(logging.FieldSource, req.Source))
		return false, nil
	}

	run := &attempt{
		c:   c,
		ctx: ctx,
		req: req,
		report: Report{
			ID:          uuid.NewString(),
			Request:     req,
			Outcome:     OutcomeFailed,
			DecoderExit: -1,
			EncoderExit: -1,
			Started:     time.Now(),
		},
	}
	run.logger = c.logger.With(
		logging.String(logging.FieldAttemptID, run.report.ID),
		logging.String(logging.FieldSource, req.Source),
		logging.String(logging.FieldDestination, req.Destination),
	)

	release := c.watch(ctx)
	defer func() {
		release()
		if !run.report.Succeeded() {
			run.cleanup()
		}
		c.finish()
		run.report.Duration = time.Since(run.report.Started)
		for _, fn := range c.reporters {
			fn(run.report)
		}
	}()

	err := run.execute()
	switch {
	case errors.Is(err, ErrNotFound):
		run.report.Err = err
		return false, err
	case err != nil && !errors.Is(err, errStopped) && run.report.PipeStatus != pipe.StatusInterrupted && !c.stopping():
		run.report.Err = err
		return false, nil
	case err != nil || c.stopping() || ctx.Err() != nil:
		// A stop that lands after the last step still discards the output.
		run.report.Outcome = OutcomeCancelled
		run.logger.Info("conversion cancelled")
		return false, nil
	}
	return true, nil
}

// attempt carries the per-call state of one Convert.
type attempt struct {
	c      *Coordinator
	ctx    context.Context
	req    Request
	logger *slog.Logger
	report Report

	// removable is set once the destination may hold output from this attempt.
	removable bool
}

func (a *attempt) execute() error {
	sourceInfo, destinationExisted, err := a.req.validate()
	if err != nil {
		a.logger.Debug("conversion request rejected", logging.Error(err))
		return err
	}
	a.removable = !a.req.Simulate && !destinationExisted

	if err := a.checkpoint(); err != nil {
		return err
	}
	tags, err := a.c.store.Read(a.ctx, a.req.Source)
	if err != nil {
		logging.ErrorWithContext(a.logger, "reading source metadata failed", "metadata_read_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "verify the source file is readable and well formed"),
		)
		return fmt.Errorf("read metadata: %w", err)
	}

	if err := a.checkpoint(); err != nil {
		return err
	}
	dir := filepath.Dir(a.req.Destination)
	if a.req.Simulate {
		if _, statErr := os.Stat(dir); statErr != nil {
			a.c.sink.AddMessage("would create directory " + dir)
		}
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		logging.ErrorWithContext(a.logger, "creating destination directory failed", "mkdir_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the target library"),
		)
		return fmt.Errorf("create destination directory: %w", err)
	}

	if err := a.checkpoint(); err != nil {
		return err
	}
	decArgs := decoderArgs(a.req.Decoder, a.req.Source)
	encArgs := encoderArgs(a.req.Encoder, a.req.Destination, metadata.EncoderTagArgs(a.req.TagStyle, tags))
	a.c.sink.AddCommand(commandLine(a.req.Decoder.Binary, decArgs))
	a.c.sink.AddCommand(commandLine(a.req.Encoder.Binary, encArgs))
	if a.req.Simulate {
		a.report.Outcome = OutcomeSimulated
		a.c.sink.AddMessage("simulated " + a.req.Source)
		return nil
	}

	if err := a.checkpoint(); err != nil {
		return err
	}
	if err := a.transcode(decArgs, encArgs); err != nil {
		return err
	}

	if err := a.checkpoint(); err != nil {
		return err
	}
	if err := a.c.store.Write(a.ctx, a.req.Destination, tags, true); err != nil {
		logging.ErrorWithContext(a.logger, "writing destination metadata failed", "metadata_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the metadata tools and destination format"),
		)
		return fmt.Errorf("write metadata: %w", err)
	}

	if err := a.checkpoint(); err != nil {
		return err
	}
	mtime := sourceInfo.ModTime()
	if err := os.Chtimes(a.req.Destination, mtime, mtime); err != nil {
		logging.WarnWithContext(a.logger, "copying modification time failed", "mtime_copy_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check destination filesystem support for timestamps"),
			logging.String(logging.FieldImpact, "the next sync may convert this file again"),
		)
	}

	a.report.Outcome = OutcomeSucceeded
	a.c.sink.AddMessage("converted " + a.req.Source)
	a.logger.Info("conversion finished",
		logging.Int64("bytes_relayed", a.report.BytesRelayed),
		logging.Duration("elapsed", time.Since(a.report.Started)),
	)
	return nil
}

// transcode spawns both programs, relays the decoder's output into the
// encoder, and waits for both to exit.
func (a *attempt) transcode(decArgs, encArgs []string) error {
	var decStderr, encStderr tailBuffer

	decoder := exec.Command(a.req.Decoder.Binary, decArgs...)
	decoder.Stderr = &decStderr
	decOut, err := decoder.StdoutPipe()
	if err != nil {
		return a.spawnFailed("decoder", err)
	}

	encoder := exec.Command(a.req.Encoder.Binary, encArgs...)
	encoder.Stderr = &encStderr
	encIn, err := encoder.StdinPipe()
	if err != nil {
		releaseStdout(decoder, decOut)
		return a.spawnFailed("encoder", err)
	}

	if err := decoder.Start(); err != nil {
		_ = decOut.Close()
		_ = encIn.Close()
		return a.spawnFailed("decoder", err)
	}
	if err := encoder.Start(); err != nil {
		_ = decOut.Close()
		_ = encIn.Close()
		a.report.DecoderExit = exitCode(decoder.Wait())
		return a.spawnFailed("encoder", err)
	}
	a.removable = !a.req.Simulate

	relay, err := pipe.New(decOut, encIn,
		pipe.WithChunkSize(a.c.chunkSize),
		pipe.WithLogger(a.logger),
	)
	if err != nil {
		_ = decOut.Close()
		_ = encIn.Close()
		a.report.DecoderExit = exitCode(decoder.Wait())
		a.report.EncoderExit = exitCode(encoder.Wait())
		return err
	}
	a.run(relay)

	a.report.DecoderExit = exitCode(decoder.Wait())
	a.report.EncoderExit = exitCode(encoder.Wait())
	a.report.PipeStatus = relay.ExitStatus()
	a.report.BytesRelayed = relay.Written()

	if a.report.PipeStatus == pipe.StatusInterrupted {
		return errStopped
	}
	if a.report.DecoderExit == 0 && a.report.EncoderExit == 0 && a.report.PipeStatus == pipe.StatusOK {
		return nil
	}

	err = fmt.Errorf("decoder exit %d, encoder exit %d, relay %s",
		a.report.DecoderExit, a.report.EncoderExit, a.report.PipeStatus)
	logging.ErrorWithContext(a.logger, "conversion failed", "conversion_failed",
		logging.Error(err),
		logging.String("decoder_stderr", decStderr.String()),
		logging.String("encoder_stderr", encStderr.String()),
		logging.String(logging.FieldErrorHint, "run the logged commands by hand to reproduce"),
	)
	return err
}

// run executes the relay on its own goroutine with its stop handle installed,
// blocking until it finishes.
func (a *attempt) run(relay *pipe.Pipe) {
	if !a.c.install(relay.Stop) {
		relay.Stop()
	}
	defer a.c.uninstall()

	done := make(chan struct{})
	go func() {
		defer close(done)
		relay.Run()
	}()
	<-done
}

func (a *attempt) spawnFailed(which string, err error) error {
	logging.ErrorWithContext(a.logger, "starting "+which+" failed", "spawn_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check that the "+which+" binary is installed and executable"),
	)
	return fmt.Errorf("start %s: %w", which, err)
}

// checkpoint aborts the attempt when a stop was requested or ctx is done.
func (a *attempt) checkpoint() error {
	if a.c.stopping() || a.ctx.Err() != nil {
		return errStopped
	}
	return nil
}

// cleanup removes a destination this attempt may have written.
func (a *attempt) cleanup() {
	if !a.removable {
		return
	}
	err := os.Remove(a.req.Destination)
	switch {
	case err == nil:
		a.logger.Debug("removed incomplete destination")
	case errors.Is(err, os.ErrNotExist):
	default:
		logging.WarnWithContext(a.logger, "removing incomplete destination failed", "cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the destination file by hand"),
			logging.String(logging.FieldImpact, "a partial file remains in the target library"),
		)
	}
}
