package vt

import "errors"

// ErrClosed is returned by writes to a closed emulator.
var ErrClosed = errors.New("vt: emulator closed")

// Logger receives diagnostics about unsupported sequences. *log.Logger from
// charmbracelet/log satisfies it.
type Logger interface {
	Debug(msg any, keyvals ...any)
}

// Callbacks are invoked synchronously while output is applied.
type Callbacks struct {
	// Title is called when an application sets the window title.
	Title func(title string)
	// Bell is called for every BEL in the output.
	Bell func()
	// Unsupported receives the raw bytes of each sequence that was skipped.
	Unsupported func(raw []byte)
}

// Emulator couples a [Scanner] and a [Screen]: bytes written to it are
// scanned and applied in order.
type Emulator struct {
	scanner *Scanner
	scr     *Screen

	cb     Callbacks
	logger Logger

	unsupported uint64
	closed      bool
}

// NewEmulator creates a rows x cols emulator with a scrollback of the given
// capacity.
func NewEmulator(rows, cols, scrollback int) *Emulator {
	return &Emulator{
		scanner: NewScanner(),
		scr:     NewScreen(rows, cols, scrollback),
	}
}

// SetLogger sets the logger for diagnostics.
func (e *Emulator) SetLogger(l Logger) {
	e.logger = l
}

// SetCallbacks sets the emulator's callbacks.
func (e *Emulator) SetCallbacks(cb Callbacks) {
	e.cb = cb
}

// Write scans p and applies every completed action, including the pending
// text run. It never fails on malformed input.
func (e *Emulator) Write(p []byte) (int, error) {
	if e.closed {
		return 0, ErrClosed
	}
	for a := range e.scanner.Feed(p) {
		e.Apply(a)
	}
	for a := range e.scanner.Flush() {
		e.Apply(a)
	}
	return len(p), nil
}

// Apply applies a single action to the screen and fires the callbacks.
func (e *Emulator) Apply(a Action) {
	e.scr.Apply(a)
	switch a.Kind {
	case ActionUnsupported:
		e.unsupported++
		if e.logger != nil {
			e.logger.Debug("unsupported sequence", "raw", a.Raw)
		}
		if e.cb.Unsupported != nil {
			e.cb.Unsupported(a.Raw)
		}
	case ActionBell:
		if e.cb.Bell != nil {
			e.cb.Bell()
		}
	case ActionSetTitle:
		if e.cb.Title != nil {
			e.cb.Title(a.Text)
		}
	}
}

// Resize resizes the screen.
func (e *Emulator) Resize(rows, cols int) {
	e.scr.Resize(rows, cols)
}

// Screen returns the underlying screen.
func (e *Emulator) Screen() *Screen {
	return e.scr
}

// Snapshot copies the visible state.
func (e *Emulator) Snapshot() *Snapshot {
	return e.scr.Snapshot()
}

// Unsupported returns the number of sequences skipped so far.
func (e *Emulator) Unsupported() uint64 {
	return e.unsupported
}

// String returns the visible text with trailing blanks trimmed.
func (e *Emulator) String() string {
	return e.scr.Snapshot().Text()
}

// Close makes further writes fail. It is safe to call more than once.
func (e *Emulator) Close() error {
	e.closed = true
	e.scanner.Reset()
	return nil
}
