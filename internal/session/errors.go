package session

import (
	"errors"
	"fmt"
)

var (
	// ErrSpawn is wrapped by every *SpawnError.
	ErrSpawn = errors.New("session: spawn failed")
	// ErrBrokenPipe is wrapped by every *WriteError.
	ErrBrokenPipe = errors.New("session: broken pipe")
	// ErrInvalidSize is returned for sizes below 1x1 or above the pty limit.
	ErrInvalidSize = errors.New("session: invalid size")
	// ErrWouldBlock is returned by ReadNonblocking when no output is pending.
	ErrWouldBlock = errors.New("session: no output pending")
	// ErrNoProcess is returned by ForegroundProcess when the pty has no
	// foreground process group.
	ErrNoProcess = errors.New("session: no foreground process")
)

// SpawnError reports a failure to allocate the pty or start the shell.
type SpawnError struct {
	Op   string // "pty", "start"
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("spawn %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("spawn %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap makes SpawnError match both ErrSpawn and the underlying error.
func (e *SpawnError) Unwrap() []error {
	return []error{ErrSpawn, e.Err}
}

// WriteError reports a failed write to the pty master.
type WriteError struct {
	N   int // bytes written before the failure
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write to PTY after %d bytes: %v", e.N, e.Err)
}

func (e *WriteError) Unwrap() []error {
	return []error{ErrBrokenPipe, e.Err}
}
