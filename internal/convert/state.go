package convert

import "context"

// State is the coordinator's lifecycle position.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// begin moves Idle to Running. It reports false when another conversion owns
// the coordinator.
func (c *Coordinator) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return false
	}
	c.state = StateRunning
	return true
}

// finish returns the coordinator to Idle and wakes any waiting Cancel.
func (c *Coordinator) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateIdle
	c.stopPipe = nil
	c.idle.Broadcast()
}

func (c *Coordinator) stopping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateStopping
}

// install publishes the running pipe's stop handle. It reports false when a
// stop was requested first; the caller must then stop the pipe itself.
func (c *Coordinator) install(stop func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning {
		return false
	}
	c.stopPipe = stop
	return true
}

func (c *Coordinator) uninstall() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopPipe = nil
}

// requestStop moves a busy coordinator to Stopping and stops its pipe, if one
// is installed. It does not wait for Idle.
func (c *Coordinator) requestStop() {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	c.state = StateStopping
	stop := c.stopPipe
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// watch turns cancellation of ctx into a stop request for the current
// attempt. The returned release func must be called before the coordinator
// goes Idle so a late cancellation cannot reach the next attempt.
func (c *Coordinator) watch(ctx context.Context) (release func()) {
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			c.requestStop()
		case <-done:
		}
	}()
	return func() {
		close(done)
		<-exited
	}
}
