package terminal

import (
	"io"

	"github.com/Gaurav-Gosain/emuterm/internal/vt"
	"github.com/charmbracelet/x/ansi"
)

// ResetTerminal writes the sequences that return a host terminal to a clean
// state after an attached session ends.
func ResetTerminal(w io.Writer) error {
	_, err := io.WriteString(w, ansi.ResetStyle+
		ansi.ResetModeBracketedPaste+
		ansi.SetModeTextCursorEnable+
		ansi.ResetModeAltScreenSaveCursor+
		"\r\n")
	return err
}

// SyncHostModes forwards mode changes the host terminal must honour itself.
// Bracketed paste is toggled when next differs from prev; a nil prev means
// the host is in its default state.
func SyncHostModes(w io.Writer, prev, next *vt.Snapshot) error {
	was := prev != nil && prev.BracketedPaste
	if next == nil || next.BracketedPaste == was {
		return nil
	}
	seq := ansi.ResetModeBracketedPaste
	if next.BracketedPaste {
		seq = ansi.SetModeBracketedPaste
	}
	_, err := io.WriteString(w, seq)
	return err
}
