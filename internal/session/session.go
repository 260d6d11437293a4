// Package session runs a shell on a pseudo-terminal and exposes its output
// as a stream of byte chunks.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/Gaurav-Gosain/emuterm/internal/logging"
	"github.com/Gaurav-Gosain/emuterm/internal/pool"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/xpty"
	"github.com/google/uuid"
)

const (
	// DefaultGracePeriod is how long Terminate waits after SIGHUP/SIGTERM
	// before sending SIGKILL.
	DefaultGracePeriod = 2 * time.Second
	// DefaultOutputBuffer is the number of chunks the reader may queue ahead
	// of the consumer.
	DefaultOutputBuffer = 64

	// IDEnv carries the session id into the child's environment.
	IDEnv = "EMUTERM_SESSION_ID"

	// MaxDim is the largest row or column count a pty accepts.
	MaxDim = 1<<16 - 1

	// drainTimeout bounds how long the reaper waits for the reader to see
	// EOF after the shell exited. Background jobs that inherited the slave
	// would otherwise keep the master open forever.
	drainTimeout = 500 * time.Millisecond
)

// Config describes the process to run.
type Config struct {
	Shell       string   // Program to run (default: DefaultShell())
	Args        []string // Arguments passed to Shell
	Rows, Cols  int      // Initial size (default: 24x80)
	Env         []string // Child environment (nil inherits os.Environ())
	Dir         string   // Working directory (empty = current)
	GracePeriod time.Duration
}

// ExitStatus describes how the shell exited.
type ExitStatus struct {
	Code   int       // -1 when the process was killed by a signal
	Signal os.Signal // nil unless the process was killed by a signal
}

// Success reports whether the process exited with status 0.
func (s ExitStatus) Success() bool {
	return s.Code == 0 && s.Signal == nil
}

func (s ExitStatus) String() string {
	if s.Signal != nil {
		return "signal: " + s.Signal.String()
	}
	return fmt.Sprintf("exit status %d", s.Code)
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. Sessions log nothing by default.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithOutputBuffer sets how many chunks may be queued on Output.
func WithOutputBuffer(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.bufSize = n
		}
	}
}

// Session is a running shell attached to a pty. The session owns the pty
// master; the child is tracked by pid and reaped exactly once.
type Session struct {
	id     string
	cfg    Config
	pty    xpty.Pty
	cmd    *exec.Cmd
	logger *log.Logger

	bufSize int
	out     chan []byte
	eof     chan struct{} // closed when the reader stops
	done    chan struct{} // closed when the shell has been reaped
	closing chan struct{} // closed by Terminate
	status  ExitStatus

	mu         sync.Mutex
	rows, cols int

	writeMu     sync.Mutex
	termOnce    sync.Once
	closingOnce sync.Once
	masterOnce  sync.Once
}

// Spawn starts cfg.Shell on a new pty. Failures are reported as *SpawnError.
func Spawn(cfg Config, opts ...Option) (*Session, error) {
	if cfg.Shell == "" {
		cfg.Shell = DefaultShell()
	}
	if cfg.Rows == 0 && cfg.Cols == 0 {
		cfg.Rows, cfg.Cols = 24, 80
	}
	if !ValidSize(cfg.Rows, cfg.Cols) {
		return nil, &SpawnError{Op: "pty", Err: fmt.Errorf("%w: %dx%d", ErrInvalidSize, cfg.Rows, cfg.Cols)}
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}

	s := &Session{
		id:      uuid.NewString(),
		cfg:     cfg,
		logger:  logging.Discard(),
		bufSize: DefaultOutputBuffer,
		eof:     make(chan struct{}),
		done:    make(chan struct{}),
		closing: make(chan struct{}),
		rows:    cfg.Rows,
		cols:    cfg.Cols,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.out = make(chan []byte, s.bufSize)
	s.logger = s.logger.With("session", s.id[:8])

	env := cfg.Env
	if env == nil {
		env = os.Environ()
	}

	// #nosec G204 - the shell is intentionally user-controlled
	cmd := exec.Command(cfg.Shell, cfg.Args...)
	cmd.Env = append(env[:len(env):len(env)], IDEnv+"="+s.id)
	cmd.Dir = cfg.Dir

	// xpty requires dimensions at creation time
	p, err := xpty.NewPty(cfg.Cols, cfg.Rows)
	if err != nil {
		return nil, &SpawnError{Op: "pty", Err: err}
	}

	configurePTYCommand(cmd)

	if err := p.Start(cmd); err != nil {
		_ = p.Close()
		return nil, &SpawnError{Op: "start", Path: cfg.Shell, Err: err}
	}
	if err := closeSlave(p); err != nil {
		s.logger.Debug("failed to close pty slave", "err", err)
	}

	// Some PTY implementations require the process to be running before
	// accepting a resize.
	if err := p.Resize(cfg.Cols, cfg.Rows); err != nil {
		s.logger.Debug("initial resize failed", "err", err)
	}

	s.pty = p
	s.cmd = cmd
	s.logger.Debug("spawned shell", "shell", cfg.Shell, "pid", cmd.Process.Pid, "rows", cfg.Rows, "cols", cfg.Cols)

	go s.readLoop()
	go s.reap()

	return s, nil
}

// ValidSize reports whether rows x cols fits a pty window size.
func ValidSize(rows, cols int) bool {
	return rows >= 1 && cols >= 1 && rows <= MaxDim && cols <= MaxDim
}

// readLoop copies pty output into s.out until the master reports EOF or
// the session is terminated.
func (s *Session) readLoop() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("pty reader panicked", "panic", r)
		}
	}()
	defer close(s.out)
	defer close(s.eof)

	bufPtr := pool.GetByteSlice()
	buf := *bufPtr
	defer pool.PutByteSlice(bufPtr)

	for {
		n, err := s.pty.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case s.out <- chunk:
			case <-s.closing:
				return
			}
		}
		if err != nil {
			if !isEOF(err) {
				s.logger.Debug("pty read failed", "err", err)
			}
			return
		}
	}
}

// isEOF reports whether err means the slave side is gone. Linux reports
// EIO on the master once the last slave descriptor is closed.
func isEOF(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.EIO) ||
		errors.Is(err, os.ErrClosed)
}

func (s *Session) reap() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("reaper panicked", "panic", r)
		}
	}()

	// Use xpty.WaitProcess for cross-platform compatibility (Windows ConPTY requirement)
	err := xpty.WaitProcess(context.Background(), s.cmd)
	s.status = exitStatusOf(s.cmd.ProcessState)
	close(s.done)

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		s.logger.Debug("wait failed", "err", err)
	}
	s.logger.Debug("shell exited", "status", s.status)

	timer := time.NewTimer(drainTimeout)
	defer timer.Stop()
	select {
	case <-s.eof:
	case <-timer.C:
		s.logger.Debug("pty still open after exit, closing master")
		s.closeMaster()
	}
}

func (s *Session) closeMaster() {
	s.masterOnce.Do(func() {
		if err := s.pty.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			s.logger.Debug("failed to close pty", "err", err)
		}
	})
}

// ID returns the session's unique id.
func (s *Session) ID() string {
	return s.id
}

// Pid returns the shell's process id.
func (s *Session) Pid() int {
	return s.cmd.Process.Pid
}

// Size returns the current pty size.
func (s *Session) Size() (rows, cols int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows, s.cols
}

// Output returns the channel of output chunks. It is closed once the child
// closed its side of the pty and every chunk was delivered, or after
// Terminate. Use either Output or ReadNonblocking, not both.
func (s *Session) Output() <-chan []byte {
	return s.out
}

// ReadNonblocking returns the next output chunk, ErrWouldBlock when none is
// queued, or io.EOF once the output is exhausted.
func (s *Session) ReadNonblocking() ([]byte, error) {
	select {
	case chunk, ok := <-s.out:
		if !ok {
			return nil, io.EOF
		}
		return chunk, nil
	default:
		return nil, ErrWouldBlock
	}
}

// Write forwards p to the shell's input.
func (s *Session) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if !s.Alive() {
		return 0, &WriteError{Err: os.ErrProcessDone}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	n, err := s.pty.Write(p)
	if err != nil {
		return n, &WriteError{N: n, Err: err}
	}
	if n != len(p) {
		return n, &WriteError{N: n, Err: io.ErrShortWrite}
	}
	return n, nil
}

// Resize sets the pty window size and signals the shell's process group.
// Resizing a dead session does nothing.
func (s *Session) Resize(rows, cols int) error {
	if !ValidSize(rows, cols) {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, rows, cols)
	}
	if !s.Alive() {
		return nil
	}

	s.mu.Lock()
	err := s.pty.Resize(cols, rows)
	if err == nil {
		s.rows, s.cols = rows, cols
	}
	s.mu.Unlock()

	if err != nil {
		if !s.Alive() {
			return nil
		}
		return fmt.Errorf("failed to resize PTY: %w", err)
	}

	// The kernel only notifies the foreground group; signal the shell too.
	if err := notifyResize(s.Pid()); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.logger.Debug("failed to signal resize", "err", err)
	}
	return nil
}

// Done is closed once the shell has exited and been reaped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Alive reports whether the shell is still running.
func (s *Session) Alive() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// ExitStatus returns the exit status once the shell has been reaped.
func (s *Session) ExitStatus() (ExitStatus, bool) {
	select {
	case <-s.done:
		return s.status, true
	default:
		return ExitStatus{}, false
	}
}

// Terminate hangs up the shell's process group, escalating to SIGKILL after
// the grace period or when ctx is done, then releases the pty. It waits for
// the shell to be reaped and may be called any number of times.
func (s *Session) Terminate(ctx context.Context) error {
	s.termOnce.Do(func() {
		s.terminate(ctx)
	})
	<-s.done
	return nil
}

func (s *Session) terminate(ctx context.Context) {
	defer s.shutdown()

	if !s.Alive() {
		return
	}

	pid := s.Pid()
	s.logger.Debug("terminating shell", "pid", pid)
	if err := hangup(pid); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.logger.Debug("hangup failed", "err", err)
	}

	timer := time.NewTimer(s.cfg.GracePeriod)
	defer timer.Stop()

	select {
	case <-s.done:
		return
	case <-timer.C:
	case <-ctx.Done():
	}

	s.logger.Debug("shell ignored hangup, killing", "pid", pid)
	if err := kill(s.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		s.logger.Debug("kill failed", "err", err)
	}
	<-s.done
}

// shutdown stops the reader and closes the master.
func (s *Session) shutdown() {
	s.closingOnce.Do(func() { close(s.closing) })
	s.closeMaster()
}
