package terminal

import (
	"fmt"
	"image/color"
	"io"

	"github.com/Gaurav-Gosain/emuterm/internal/pool"
	"github.com/Gaurav-Gosain/emuterm/internal/theme"
	"github.com/Gaurav-Gosain/emuterm/internal/vt"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/charmbracelet/x/ansi"
	"github.com/lucasb-eyer/go-colorful"
)

// RenderOptions controls how snapshots are drawn on a host terminal.
type RenderOptions struct {
	// DefaultFg and DefaultBg replace unset cell colors. Nil keeps the host
	// terminal's own defaults.
	DefaultFg color.Color
	DefaultBg color.Color
	// Palette, when set, replaces the 16 ANSI colors.
	Palette *theme.Palette
}

// Render draws snap as a full frame starting at the host's top-left corner
// and leaves the host cursor where the snapshot's cursor is.
func Render(w io.Writer, snap *vt.Snapshot, opts RenderOptions) error {
	sb := pool.GetStringBuilder()
	defer pool.PutStringBuilder(sb)

	sb.WriteString(ansi.HideCursor)
	sb.WriteString(ansi.CursorHomePosition)

	var pen vt.Attrs
	started := false
	for r, row := range snap.Cells {
		if r > 0 {
			sb.WriteString("\r\n")
		}
		for _, c := range row {
			if vt.IsContinuation(c) {
				continue
			}
			if !started || c.Style != pen {
				sb.WriteString(sgr(c.Style, opts))
				pen = c.Style
				started = true
			}
			sb.WriteString(c.Content)
		}
	}

	sb.WriteString(ansi.ResetStyle)
	sb.WriteString(ansi.CursorPosition(snap.Cursor.Col+1, snap.Cursor.Row+1))
	if snap.Cursor.Visible {
		sb.WriteString(ansi.ShowCursor)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// RenderText writes the visible rows of snap with their attributes and no
// cursor movement, for printing a finished screen to a pipe. Unset colors
// stay unset.
func RenderText(w io.Writer, snap *vt.Snapshot) error {
	sb := pool.GetStringBuilder()
	defer pool.PutStringBuilder(sb)

	last := snap.Rows - 1
	for last >= 0 && rowEmpty(snap.Cells[last]) {
		last--
	}
	for r := 0; r <= last; r++ {
		row := snap.Cells[r]
		// Trailing default blanks carry nothing visible
		end := len(row)
		for end > 0 && vt.IsBlank(row[end-1]) && row[end-1].Style.IsZero() {
			end--
		}
		pen := vt.Attrs{}
		for _, c := range row[:end] {
			if vt.IsContinuation(c) {
				continue
			}
			if c.Style != pen {
				sb.WriteString(sgr(c.Style, RenderOptions{}))
				pen = c.Style
			}
			sb.WriteString(c.Content)
		}
		if !pen.IsZero() {
			sb.WriteString(ansi.ResetStyle)
		}
		sb.WriteByte('\n')
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func rowEmpty(row []vt.Cell) bool {
	for _, c := range row {
		if !vt.IsBlank(c) || !c.Style.IsZero() {
			return false
		}
	}
	return true
}

// sgr returns the sequence that switches the host to a.
func sgr(a vt.Attrs, opts RenderOptions) string {
	s := ansi.Style{}.Reset()
	if vt.HasAttr(a, uv.AttrBold) {
		s = s.Bold()
	}
	if vt.HasAttr(a, uv.AttrFaint) {
		s = s.Faint()
	}
	if vt.HasAttr(a, uv.AttrItalic) {
		s = s.Italic(true)
	}
	switch a.Underline {
	case uv.UnderlineNone:
	case uv.UnderlineSingle:
		s = s.Underline(true)
	default:
		s = s.UnderlineStyle(a.Underline)
	}
	if vt.HasAttr(a, uv.AttrBlink) {
		s = s.Blink(true)
	}
	if vt.HasAttr(a, uv.AttrRapidBlink) {
		s = s.RapidBlink(true)
	}
	if vt.HasAttr(a, uv.AttrReverse) {
		s = s.Reverse(true)
	}
	if vt.HasAttr(a, uv.AttrConceal) {
		s = s.Conceal(true)
	}
	if vt.HasAttr(a, uv.AttrStrikethrough) {
		s = s.Strikethrough(true)
	}

	fg, bg := opts.Palette.Map(a.Fg), opts.Palette.Map(a.Bg)
	if fg == nil {
		fg = opts.DefaultFg
	}
	if bg == nil {
		bg = opts.DefaultBg
	}
	if fg != nil {
		s = s.ForegroundColor(fg)
	}
	if bg != nil {
		s = s.BackgroundColor(bg)
	}
	if a.UnderlineColor != nil {
		s = s.UnderlineColor(opts.Palette.Map(a.UnderlineColor))
	}
	return s.String()
}

// ParseColor parses a "#rrggbb" color. The empty string yields nil, the
// host default.
func ParseColor(s string) (color.Color, error) {
	if s == "" {
		return nil, nil
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return nil, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return c, nil
}
