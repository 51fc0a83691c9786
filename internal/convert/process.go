package convert

import (
	"errors"
	"io"
	"os/exec"
	"strings"
	"sync"
)

const stderrTailLimit = 4 * 1024

// tailBuffer keeps the last few KiB written to it, enough to explain why an
// external program failed.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - stderrTailLimit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}

// exitCode maps a Wait result onto a conventional exit code. Processes that
// could not be waited on, or died from a signal, report -1.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// releaseStdout closes both ends of a stdout pipe for a command that will
// never be started. exec only closes the child's end in Start or Wait.
func releaseStdout(cmd *exec.Cmd, parent io.Closer) {
	_ = parent.Close()
	if child, ok := cmd.Stdout.(io.Closer); ok {
		_ = child.Close()
	}
}
