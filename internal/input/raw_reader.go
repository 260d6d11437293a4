// Package input reads host keyboard input for an attached terminal.
//
// Bytes are forwarded to the pty unchanged, except for the detach prefix:
// the prefix followed by 'd' or Esc detaches, the prefix pressed twice sends
// it through once.
package input

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// DefaultDetachKey is Ctrl+].
const DefaultDetachKey byte = 0x1d

// RawInputReader reads raw bytes from a terminal for direct PTY forwarding.
type RawInputReader struct {
	in            *os.File
	originalState *term.State
	detachKey     byte
	pending       bool // detach key seen, waiting for the next byte

	stopChan  chan struct{}
	inputChan chan []byte
	detached  chan struct{}
	detachOne sync.Once
	running   bool
	err       error
	mu        sync.Mutex
}

// NewRawInputReader creates a reader for in. A zero detachKey selects
// DefaultDetachKey.
func NewRawInputReader(in *os.File, detachKey byte) *RawInputReader {
	if detachKey == 0 {
		detachKey = DefaultDetachKey
	}
	return &RawInputReader{
		in:        in,
		detachKey: detachKey,
		stopChan:  make(chan struct{}),
		// Buffer input sequences to handle bursts (paste operations, etc.)
		inputChan: make(chan []byte, 100),
		detached:  make(chan struct{}),
	}
}

// Start puts the input into raw mode when it is a terminal and starts the
// reading goroutine.
func (r *RawInputReader) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("raw reader already running")
	}

	fd := int(r.in.Fd())
	if term.IsTerminal(fd) {
		// Save original terminal state for restoration
		originalState, err := term.GetState(fd)
		if err != nil {
			return fmt.Errorf("failed to get terminal state: %w", err)
		}
		if _, err := term.MakeRaw(fd); err != nil {
			return fmt.Errorf("failed to set raw mode: %w", err)
		}
		r.originalState = originalState
	}

	r.running = true
	go r.readLoop()
	return nil
}

// Stop restores the terminal state. The reading goroutine exits after its
// pending read returns.
func (r *RawInputReader) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return nil
	}
	r.running = false
	close(r.stopChan)

	if r.originalState != nil {
		err := term.Restore(int(r.in.Fd()), r.originalState)
		r.originalState = nil
		if err != nil {
			return fmt.Errorf("failed to restore terminal: %w", err)
		}
	}
	return nil
}

// ReadBytes returns the channel of input chunks. It is closed when the
// input reaches EOF or the reader is stopped.
func (r *RawInputReader) ReadBytes() <-chan []byte {
	return r.inputChan
}

// Detached is closed when the user typed the detach sequence.
func (r *RawInputReader) Detached() <-chan struct{} {
	return r.detached
}

// Err returns the read error that ended the input, if any.
func (r *RawInputReader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *RawInputReader) setErr(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// IsRunning returns whether the raw reader is currently active.
func (r *RawInputReader) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *RawInputReader) readLoop() {
	defer close(r.inputChan)
	defer func() {
		if rec := recover(); rec != nil {
			// Never leave the host terminal in raw mode
			_ = r.Stop()
		}
	}()

	buf := make([]byte, 1024)
	for {
		n, err := r.in.Read(buf)
		if n > 0 {
			data, detach := r.filter(buf[:n])
			if len(data) > 0 {
				select {
				case r.inputChan <- data:
				case <-r.stopChan:
					return
				}
			}
			if detach {
				r.detachOne.Do(func() { close(r.detached) })
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				r.setErr(err)
			}
			return
		}
		select {
		case <-r.stopChan:
			return
		default:
		}
	}
}

// filter strips the detach sequence from p. The returned slice is a copy.
func (r *RawInputReader) filter(p []byte) (out []byte, detach bool) {
	out = make([]byte, 0, len(p)+1)
	for _, b := range p {
		switch {
		case r.pending:
			r.pending = false
			switch b {
			case 'd', 0x1b:
				return out, true
			case r.detachKey:
				out = append(out, b)
			default:
				out = append(out, r.detachKey, b)
			}
		case b == r.detachKey:
			r.pending = true
		default:
			out = append(out, b)
		}
	}
	return out, false
}

// TerminalSize returns the size of f when it is a terminal.
func TerminalSize(f *os.File) (rows, cols int, err error) {
	cols, rows, err = term.GetSize(int(f.Fd()))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get terminal size: %w", err)
	}
	return rows, cols, nil
}
