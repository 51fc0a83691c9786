package pipe_test

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cadence/internal/pipe"
)

type recordingWriter struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	failAt   int
	closed   bool
	closeErr error
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failAt > 0 && w.buf.Len()+len(p) > w.failAt {
		return 0, errors.New("disk full")
	}
	return w.buf.Write(p)
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return w.closeErr
}

func (w *recordingWriter) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

type closeTracker struct {
	io.Reader
	closed   atomic.Bool
	closeErr error
}

func (c *closeTracker) Close() error {
	c.closed.Store(true)
	return c.closeErr
}

type failingReader struct {
	data []byte
	err  error
	sent bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		return copy(p, r.data), nil
	}
	return 0, r.err
}

// endlessReader produces data forever, pausing briefly per chunk to mimic a
// decoder that is still working.
type endlessReader struct {
	delay time.Duration
}

func (r endlessReader) Read(p []byte) (int, error) {
	time.Sleep(r.delay)
	for i := range p {
		p[i] = 0x5a
	}
	return len(p), nil
}

func TestNewRequiresBothStreams(t *testing.T) {
	dst := &recordingWriter{}
	src := io.NopCloser(bytes.NewReader(nil))

	if _, err := pipe.New(nil, dst); !errors.Is(err, pipe.ErrNilSource) {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := pipe.New(src, nil); !errors.Is(err, pipe.ErrNilDestination) {
		t.Fatalf("expected ErrNilDestination, got %v", err)
	}
	_, err := pipe.New(nil, nil)
	if !errors.Is(err, pipe.ErrNilSource) || !errors.Is(err, pipe.ErrNilDestination) {
		t.Fatalf("expected both sentinel errors, got %v", err)
	}
}

func TestRunCopiesBytesExactly(t *testing.T) {
	payload := make([]byte, 100_003)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	src := &closeTracker{Reader: bytes.NewReader(payload)}
	dst := &recordingWriter{}

	p, err := pipe.New(src, dst, pipe.WithChunkSize(4096))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if p.ExitStatus() != pipe.StatusOK {
		t.Fatalf("expected default status ok, got %s", p.ExitStatus())
	}
	p.Run()

	if p.ExitStatus() != pipe.StatusOK {
		t.Fatalf("expected ok, got %s", p.ExitStatus())
	}
	if !bytes.Equal(dst.buf.Bytes(), payload) {
		t.Fatalf("destination received %d bytes, want %d identical bytes", dst.buf.Len(), len(payload))
	}
	if p.Written() != int64(len(payload)) {
		t.Fatalf("Written() = %d, want %d", p.Written(), len(payload))
	}
	if !src.closed.Load() || !dst.isClosed() {
		t.Fatal("expected both streams closed")
	}
}

func TestRunRecordsWriteErrorAfterCleanRead(t *testing.T) {
	src := &closeTracker{Reader: bytes.NewReader(bytes.Repeat([]byte("a"), 10_000))}
	dst := &recordingWriter{failAt: 5_000}

	p, err := pipe.New(src, dst, pipe.WithChunkSize(1024))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	p.Run()

	if got := p.ExitStatus(); got != pipe.StatusWriteError {
		t.Fatalf("expected write_error, got %s", got)
	}
	if !src.closed.Load() || !dst.isClosed() {
		t.Fatal("expected both streams closed after write failure")
	}
}

func TestRunWritesPartialChunkBeforeReportingReadError(t *testing.T) {
	src := &closeTracker{Reader: &failingReader{data: []byte("partial"), err: errors.New("device gone")}}
	dst := &recordingWriter{}

	p, err := pipe.New(src, dst)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	p.Run()

	if got := p.ExitStatus(); got != pipe.StatusReadError {
		t.Fatalf("expected read_error, got %s", got)
	}
	if dst.buf.String() != "partial" {
		t.Fatalf("expected partial chunk to be written, got %q", dst.buf.String())
	}
}

func TestCloseErrorsDoNotOverrideStatus(t *testing.T) {
	src := &closeTracker{Reader: bytes.NewReader([]byte("hello")), closeErr: errors.New("close src")}
	dst := &recordingWriter{closeErr: errors.New("close dst")}

	p, err := pipe.New(src, dst)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	p.Run()
	if got := p.ExitStatus(); got != pipe.StatusOK {
		t.Fatalf("expected ok despite close errors, got %s", got)
	}
}

func TestStopInterruptsRunningCopy(t *testing.T) {
	src := &closeTracker{Reader: endlessReader{delay: time.Millisecond}}
	dst := &recordingWriter{}

	p, err := pipe.New(src, dst, pipe.WithChunkSize(512))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run()
	}()

	waitFor(t, time.Second, func() bool { return p.Written() > 0 })

	start := time.Now()
	p.Stop()
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("Stop took %s, expected to return within a chunk", elapsed)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
	if got := p.ExitStatus(); got != pipe.StatusInterrupted {
		t.Fatalf("expected interrupted, got %s", got)
	}
	if !src.closed.Load() || !dst.isClosed() {
		t.Fatal("expected both streams closed after Stop")
	}
}

func TestStopBeforeRunClosesWithoutCopying(t *testing.T) {
	src := &closeTracker{Reader: bytes.NewReader([]byte("never copied"))}
	dst := &recordingWriter{}

	p, err := pipe.New(src, dst)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	returned := make(chan struct{})
	go func() {
		p.Stop()
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Stop on an idle pipe should return immediately")
	}

	p.Run()
	if dst.buf.Len() != 0 {
		t.Fatalf("expected no bytes copied, got %d", dst.buf.Len())
	}
	if !src.closed.Load() || !dst.isClosed() {
		t.Fatal("expected streams closed by a pre-stopped Run")
	}
	if got := p.ExitStatus(); got != pipe.StatusInterrupted {
		t.Fatalf("expected interrupted, got %s", got)
	}
}

func TestStopOverridesRecordedCause(t *testing.T) {
	src := &closeTracker{Reader: &failingReader{err: errors.New("boom")}}
	dst := &recordingWriter{}

	p, err := pipe.New(src, dst)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	p.Run()
	if got := p.ExitStatus(); got != pipe.StatusReadError {
		t.Fatalf("expected read_error, got %s", got)
	}
	p.Stop()
	if got := p.ExitStatus(); got != pipe.StatusInterrupted {
		t.Fatalf("expected interrupted to win, got %s", got)
	}
}

func TestExitStatusString(t *testing.T) {
	cases := map[pipe.ExitStatus]string{
		pipe.StatusOK:          "ok",
		pipe.StatusReadError:   "read_error",
		pipe.StatusWriteError:  "write_error",
		pipe.StatusInterrupted: "interrupted",
		pipe.ExitStatus(42):    "unknown",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(status), got, want)
		}
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}
