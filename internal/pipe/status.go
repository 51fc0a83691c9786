package pipe

// ExitStatus records why a pipe stopped copying. Only the first cause is kept,
// except StatusInterrupted which always replaces whatever was recorded.
type ExitStatus int

const (
	// StatusOK means the source reached EOF and every byte was written.
	StatusOK ExitStatus = iota
	// StatusReadError means reading from the source failed.
	StatusReadError
	// StatusWriteError means writing to the destination failed.
	StatusWriteError
	// StatusInterrupted means Stop was called.
	StatusInterrupted
)

func (s ExitStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusReadError:
		return "read_error"
	case StatusWriteError:
		return "write_error"
	case StatusInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

type runState int

const (
	stateIdle runState = iota
	stateRunning
	stateStopping
)
