package pipe

import (
	"errors"
	"io"
	"log/slog"
	"sync"

	"cadence/internal/logging"
)

// DefaultChunkSize is the number of bytes moved per read/write round trip.
const DefaultChunkSize = 32 * 1024

var (
	// ErrNilSource is returned by New when the source stream is missing.
	ErrNilSource = errors.New("pipe: source stream is required")
	// ErrNilDestination is returned by New when the destination stream is missing.
	ErrNilDestination = errors.New("pipe: destination stream is required")
)

// Option configures a Pipe.
type Option func(*Pipe)

// WithChunkSize overrides the per-iteration buffer size. Non-positive values are ignored.
func WithChunkSize(size int) Option {
	return func(p *Pipe) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithLogger attaches a logger used for read/write failure diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipe) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Pipe copies bytes from src to dst until EOF, failure, or Stop.
type Pipe struct {
	src       io.ReadCloser
	dst       io.WriteCloser
	chunkSize int
	logger    *slog.Logger

	mu      sync.Mutex
	idle    *sync.Cond
	state   runState
	active  bool
	status  ExitStatus
	written int64
}

// New constructs a pipe between src and dst.
func New(src io.ReadCloser, dst io.WriteCloser, opts ...Option) (*Pipe, error) {
	switch {
	case src == nil && dst == nil:
		return nil, errors.Join(ErrNilSource, ErrNilDestination)
	case src == nil:
		return nil, ErrNilSource
	case dst == nil:
		return nil, ErrNilDestination
	}
	p := &Pipe{
		src:       src,
		dst:       dst,
		chunkSize: DefaultChunkSize,
		logger:    logging.NewNop(),
	}
	p.idle = sync.NewCond(&p.mu)
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run copies until the source is exhausted, a stream fails, or Stop is called.
// It blocks and is meant to run on its own goroutine. Calling Run while another
// Run is in progress is a no-op. A pipe stopped before Run starts closes its
// streams without copying.
func (p *Pipe) Run() {
	p.mu.Lock()
	if p.active {
		p.mu.Unlock()
		return
	}
	if p.state == stateStopping {
		p.mu.Unlock()
		p.closeStreams()
		p.mu.Lock()
		p.state = stateIdle
		p.idle.Broadcast()
		p.mu.Unlock()
		return
	}
	p.state = stateRunning
	p.active = true
	p.mu.Unlock()

	defer func() {
		p.closeStreams()
		p.mu.Lock()
		p.state = stateIdle
		p.active = false
		p.idle.Broadcast()
		p.mu.Unlock()
	}()

	buf := make([]byte, p.chunkSize)
	for p.running() {
		n, readErr := p.src.Read(buf)
		if n > 0 {
			written, writeErr := p.dst.Write(buf[:n])
			if writeErr == nil && written != n {
				writeErr = io.ErrShortWrite
			}
			if writeErr != nil {
				p.record(StatusWriteError)
				p.logger.Debug("pipe write failed", logging.Error(writeErr), logging.Int64("bytes_written", p.Written()))
				return
			}
			p.mu.Lock()
			p.written += int64(n)
			p.mu.Unlock()
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return
			}
			p.record(StatusReadError)
			p.logger.Debug("pipe read failed", logging.Error(readErr), logging.Int64("bytes_written", p.Written()))
			return
		}
	}
}

// Stop marks the pipe interrupted and, if a Run is in progress, blocks until
// it has closed both streams and returned.
func (p *Pipe) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = StatusInterrupted
	p.state = stateStopping
	for p.active {
		p.idle.Wait()
	}
}

// ExitStatus returns the current status snapshot. It is StatusOK before any run.
func (p *Pipe) ExitStatus() ExitStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Written reports how many bytes have been delivered to the destination.
func (p *Pipe) Written() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written
}

func (p *Pipe) running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == stateRunning
}

func (p *Pipe) record(status ExitStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == StatusOK {
		p.status = status
	}
}

// closeStreams closes the destination first so the consumer sees EOF as early
// as possible. Close errors never change the recorded status.
func (p *Pipe) closeStreams() {
	_ = p.dst.Close()
	_ = p.src.Close()
}
