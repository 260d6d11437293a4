// Package terminal couples a pty session with a screen buffer. A single pump
// goroutine owns the screen; everything else reads immutable snapshots.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Gaurav-Gosain/emuterm/internal/logging"
	"github.com/Gaurav-Gosain/emuterm/internal/session"
	"github.com/Gaurav-Gosain/emuterm/internal/vt"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// maxBatch bounds how many queued chunks the pump applies before it
// publishes a snapshot.
const maxBatch = 16

// Config describes a terminal.
type Config struct {
	session.Config

	// Scrollback is the scrollback capacity in rows (default: vt.DefaultScrollback).
	Scrollback int
	// Term and ColorTerm are exported to the shell. Empty values are
	// detected from the host with colorprofile.
	Term      string
	ColorTerm string
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithLogger sets the logger for the terminal and its session.
func WithLogger(l *log.Logger) Option {
	return func(t *Terminal) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithCallbacks sets emulator callbacks. They run on the pump goroutine and
// must not call back into the Terminal.
func WithCallbacks(cb vt.Callbacks) Option {
	return func(t *Terminal) {
		t.callbacks = cb
	}
}

// WithSessionOptions passes options through to session.Spawn.
func WithSessionOptions(opts ...session.Option) Option {
	return func(t *Terminal) {
		t.sessionOpts = append(t.sessionOpts, opts...)
	}
}

// Terminal is a running shell together with its emulated screen.
type Terminal struct {
	sess      *session.Session
	emu       *vt.Emulator
	logger    *log.Logger
	callbacks vt.Callbacks

	sessionOpts []session.Option

	snap atomic.Pointer[vt.Snapshot]
	seq  uint64 // owned by the pump

	subMu sync.Mutex
	subs  []chan struct{}

	calls   chan func()
	stopped chan struct{} // closed when the pump exits
	inline  sync.Mutex    // serializes screen access after the pump exited

	terminated     chan struct{}
	terminatedOnce sync.Once

	group *errgroup.Group
}

// New spawns the shell described by cfg and starts pumping its output into
// the screen. Cancelling ctx terminates the session.
func New(ctx context.Context, cfg Config, opts ...Option) (*Terminal, error) {
	t := &Terminal{
		logger:     logging.Discard(),
		calls:      make(chan func()),
		stopped:    make(chan struct{}),
		terminated: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}

	scfg := cfg.Config
	if scfg.Rows == 0 && scfg.Cols == 0 {
		scfg.Rows, scfg.Cols = 24, 80
	}
	termType, colorTerm := cfg.Term, cfg.ColorTerm
	if termType == "" {
		termType, colorTerm = TerminalEnv()
	}
	env := scfg.Env
	if env == nil {
		env = os.Environ()
	}
	scfg.Env = withTermEnv(env, termType, colorTerm)

	sopts := append([]session.Option{session.WithLogger(t.logger)}, t.sessionOpts...)
	sess, err := session.Spawn(scfg, sopts...)
	if err != nil {
		return nil, err
	}
	t.sess = sess
	t.logger = t.logger.With("session", sess.ID()[:8])

	t.emu = vt.NewEmulator(scfg.Rows, scfg.Cols, cfg.Scrollback)
	t.emu.SetLogger(t.logger)
	t.emu.SetCallbacks(t.callbacks)
	t.publish()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return t.pump(gctx)
	})
	g.Go(func() error {
		select {
		case <-sess.Done():
		case <-gctx.Done():
			t.markTerminated()
			return sess.Terminate(context.Background())
		}
		return nil
	})
	t.group = g

	t.logger.Debug("terminal started", "rows", scfg.Rows, "cols", scfg.Cols, "term", termType)
	return t, nil
}

// pump is the only goroutine that mutates the screen while the session
// runs. It returns once the output is exhausted and the shell was reaped.
func (t *Terminal) pump(ctx context.Context) error {
	defer close(t.stopped)
	// Output past the end of the session is never applied.
	defer func() { _ = t.emu.Close() }()
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("terminal pump panicked", "panic", r)
			t.markTerminated()
		}
	}()

	out := t.sess.Output()
	exited := t.sess.Done()
	for {
		select {
		case chunk, ok := <-out:
			if !ok {
				t.logger.Debug("session output closed")
				t.markTerminated()
				t.publish()
				out = nil
				break
			}
			t.feed(chunk)
			out = t.drain(out)
			t.publish()

		case fn := <-t.calls:
			fn()

		case <-exited:
			exited = nil

		case <-ctx.Done():
			t.markTerminated()
			t.publish()
			return ctx.Err()
		}

		if out == nil && exited == nil {
			t.publish()
			return nil
		}
	}
}

// drain applies chunks that are already queued, up to maxBatch. It returns
// nil when the output closed.
func (t *Terminal) drain(out <-chan []byte) <-chan []byte {
	for range maxBatch {
		select {
		case chunk, ok := <-out:
			if !ok {
				t.markTerminated()
				return nil
			}
			t.feed(chunk)
		default:
			return out
		}
	}
	return out
}

func (t *Terminal) feed(chunk []byte) {
	if _, err := t.emu.Write(chunk); err != nil {
		t.logger.Debug("emulator write failed", "err", err)
	}
}

// publish stores a new snapshot and notifies subscribers.
func (t *Terminal) publish() {
	snap := t.emu.Snapshot()
	t.seq++
	snap.Seq = t.seq
	snap.Live = t.Alive()
	t.snap.Store(snap)

	t.subMu.Lock()
	for _, ch := range t.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	t.subMu.Unlock()
}

// do runs fn on the pump goroutine, or inline once the pump has exited.
func (t *Terminal) do(fn func()) {
	done := make(chan struct{})
	select {
	case t.calls <- func() {
		defer close(done)
		fn()
	}:
		<-done
	case <-t.stopped:
		t.inline.Lock()
		defer t.inline.Unlock()
		fn()
	}
}

func (t *Terminal) markTerminated() {
	t.terminatedOnce.Do(func() {
		close(t.terminated)
	})
}

// Snapshot returns the latest published screen state. It never blocks.
func (t *Terminal) Snapshot() *vt.Snapshot {
	return t.snap.Load()
}

// Title returns the window title set by the shell.
func (t *Terminal) Title() string {
	return t.Snapshot().Title
}

// Subscribe returns a channel that receives a value after snapshots are
// published. Notifications coalesce: a slow reader sees one pending value.
func (t *Terminal) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	t.subMu.Lock()
	t.subs = append(t.subs, ch)
	t.subMu.Unlock()
	return ch
}

// Unsubscribe stops notifications on ch.
func (t *Terminal) Unsubscribe(ch <-chan struct{}) {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	t.subs = slices.DeleteFunc(t.subs, func(c chan struct{}) bool {
		return (<-chan struct{})(c) == ch
	})
}

// Write sends input to the shell. A failed write marks the terminal
// terminated.
func (t *Terminal) Write(p []byte) (int, error) {
	n, err := t.sess.Write(p)
	if err != nil {
		t.logger.Debug("input write failed, terminating", "err", err)
		t.markTerminated()
		return n, fmt.Errorf("failed to send input: %w", err)
	}
	return n, nil
}

// Resize resizes the screen, then the pty. It is a no-op once the terminal
// is terminated. Sizes the pty cannot take are rejected before the screen
// changes.
func (t *Terminal) Resize(rows, cols int) error {
	if !session.ValidSize(rows, cols) {
		return fmt.Errorf("%w: %dx%d", session.ErrInvalidSize, rows, cols)
	}
	var err error
	t.do(func() {
		if !t.Alive() {
			return
		}
		t.emu.Resize(rows, cols)
		err = t.sess.Resize(rows, cols)
		t.publish()
	})
	return err
}

// Scrollback returns a copy of the scrollback rows, oldest first.
func (t *Terminal) Scrollback() [][]vt.Cell {
	var lines [][]vt.Cell
	t.do(func() {
		shared := t.emu.Screen().Scrollback().Lines()
		lines = make([][]vt.Cell, len(shared))
		for i, line := range shared {
			lines[i] = slices.Clone(line)
		}
	})
	return lines
}

// SetScrollback changes the scrollback capacity, keeping the newest rows.
func (t *Terminal) SetScrollback(maxLines int) {
	t.do(func() {
		t.emu.Screen().Scrollback().SetMaxLines(maxLines)
	})
}

// Unsupported returns how many sequences the emulator skipped.
func (t *Terminal) Unsupported() uint64 {
	var n uint64
	t.do(func() {
		n = t.emu.Unsupported()
	})
	return n
}

// ForegroundProcess reports the process in the foreground of the shell.
func (t *Terminal) ForegroundProcess(ctx context.Context) (session.ProcessInfo, error) {
	return t.sess.ForegroundProcess(ctx)
}

// Alive reports whether the terminal still accepts input and resizes.
func (t *Terminal) Alive() bool {
	select {
	case <-t.terminated:
		return false
	default:
		return true
	}
}

// Done is closed once the pump stopped.
func (t *Terminal) Done() <-chan struct{} {
	return t.stopped
}

// ExitStatus returns the shell's exit status once it has been reaped.
func (t *Terminal) ExitStatus() (session.ExitStatus, bool) {
	return t.sess.ExitStatus()
}

// Terminate stops the shell and waits for the pump to finish. It is safe to
// call more than once.
func (t *Terminal) Terminate(ctx context.Context) error {
	t.markTerminated()
	err := t.sess.Terminate(ctx)
	<-t.stopped
	return err
}

// Wait blocks until the shell exited and the pump stopped, and returns the
// exit status. Cancellation of the context given to New is not an error.
func (t *Terminal) Wait() (session.ExitStatus, error) {
	err := t.group.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	st, _ := t.sess.ExitStatus()
	return st, err
}
