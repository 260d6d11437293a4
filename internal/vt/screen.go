package vt

import (
	"unicode"
	"unicode/utf8"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/mattn/go-runewidth"
)

// widths measures runes with ambiguous East Asian characters as narrow,
// independent of the locale.
var widths = &runewidth.Condition{}

// Cursor is the cursor position and the pen used for new characters.
type Cursor struct {
	Row, Col int
	Pen      Attrs

	// wrapPending is set after writing the last column; the next printable
	// character wraps to the following line first.
	wrapPending bool
}

type savedCursor struct {
	cur      Cursor
	charsets [2]Charset
	gl       int
}

// Screen is the grid of cells the applications draw on, plus the cursor,
// scroll region, modes and scrollback. The zero value is not usable; create
// screens with [NewScreen].
//
// Screen is not safe for concurrent use. Readers on other goroutines should
// take a [Snapshot].
type Screen struct {
	rows, cols int
	grid       [][]Cell

	cur   Cursor
	saved *savedCursor

	// inclusive scroll region
	top, bottom int

	tabs *uv.TabStops

	scrollback *Scrollback

	title          string
	cursorVisible  bool
	cursorBlink    bool
	bracketedPaste bool

	charsets [2]Charset
	gl       int
}

// NewScreen returns a blank rows x cols screen with the cursor at the origin.
// Dimensions below one are raised to one. scrollback is the scrollback
// capacity; zero or less selects DefaultScrollback.
func NewScreen(rows, cols, scrollback int) *Screen {
	rows, cols = max(rows, 1), max(cols, 1)
	s := &Screen{
		rows:       rows,
		cols:       cols,
		scrollback: NewScrollback(scrollback),
	}
	s.grid = make([][]Cell, rows)
	for i := range s.grid {
		s.grid[i] = blankRow(cols, nil)
	}
	s.resetState()
	return s
}

func (s *Screen) resetState() {
	s.cur = Cursor{}
	s.saved = nil
	s.top, s.bottom = 0, s.rows-1
	s.tabs = uv.DefaultTabStops(s.cols)
	s.title = ""
	s.cursorVisible = true
	s.cursorBlink = false
	s.bracketedPaste = false
	s.charsets = [2]Charset{}
	s.gl = 0
}

// Size returns the grid dimensions.
func (s *Screen) Size() (rows, cols int) { return s.rows, s.cols }

// Cursor returns the cursor state.
func (s *Screen) Cursor() Cursor { return s.cur }

// ScrollRegion returns the inclusive top and bottom margins.
func (s *Screen) ScrollRegion() (top, bottom int) { return s.top, s.bottom }

// Scrollback returns the scrollback buffer. It is owned by the screen.
func (s *Screen) Scrollback() *Scrollback { return s.scrollback }

func (s *Screen) Title() string { return s.title }

func (s *Screen) CursorVisible() bool { return s.cursorVisible }

func (s *Screen) BracketedPaste() bool { return s.bracketedPaste }

// Cell returns the cell at row, col or BlankCell when out of range.
func (s *Screen) Cell(row, col int) Cell {
	if row < 0 || row >= s.rows || col < 0 || col >= s.cols {
		return BlankCell
	}
	return s.grid[row][col]
}

// Line returns the text of row including trailing blanks.
func (s *Screen) Line(row int) string {
	if row < 0 || row >= s.rows {
		return ""
	}
	return RowText(s.grid[row])
}

// Apply performs a single action. Actions never fail; anything that would
// move the cursor out of the grid is clamped.
func (s *Screen) Apply(a Action) {
	switch a.Kind {
	case ActionPrint:
		s.print(a.Text)
	case ActionLineFeed:
		s.index()
	case ActionCarriageReturn:
		s.cur.Col = 0
		s.cur.wrapPending = false
	case ActionBackspace:
		s.cur.Col = max(s.cur.Col-1, 0)
		s.cur.wrapPending = false
	case ActionTab:
		s.cur.Col = s.tabs.Next(s.cur.Col)
		s.cur.wrapPending = false
	case ActionBell:
	case ActionCursorMove:
		s.moveCursor(a.Dir, a.Count)
	case ActionCursorPosition:
		s.setCursor(a.Row, a.Col)
	case ActionCursorColumn:
		s.setCursor(s.cur.Row, a.Col)
	case ActionCursorRow:
		s.setCursor(a.Row, s.cur.Col)
	case ActionEraseInLine:
		s.eraseInLine(a.Mode)
	case ActionEraseInDisplay:
		s.eraseInDisplay(a.Mode)
	case ActionEraseChars:
		s.eraseCells(s.cur.Row, s.cur.Col, s.cur.Col+a.Count)
	case ActionInsertChars:
		s.insertChars(a.Count)
	case ActionDeleteChars:
		s.deleteChars(a.Count)
	case ActionInsertLines:
		s.insertLines(a.Count)
	case ActionDeleteLines:
		s.deleteLines(a.Count)
	case ActionScrollUp:
		s.scrollUp(a.Count)
	case ActionScrollDown:
		s.scrollDown(a.Count)
	case ActionSetAttributes:
		applySGR(a.Params, &s.cur.Pen)
	case ActionSetScrollRegion:
		s.setScrollRegion(a.Top, a.Bottom)
	case ActionSaveCursor:
		s.saveCursor()
	case ActionRestoreCursor:
		s.restoreCursor()
	case ActionIndex:
		s.index()
	case ActionReverseIndex:
		s.reverseIndex()
	case ActionNextLine:
		s.cur.Col = 0
		s.index()
	case ActionSetMode:
		for _, m := range a.Params {
			s.setMode(m, a.Set)
		}
	case ActionSetTitle:
		s.title = a.Text
	case ActionDesignateCharset:
		if a.Slot == 0 || a.Slot == 1 {
			s.charsets[a.Slot] = a.Charset
		}
	case ActionShiftOut:
		s.gl = 1
	case ActionShiftIn:
		s.gl = 0
	case ActionFullReset:
		s.reset()
	case ActionUnsupported:
	}
}

func (s *Screen) print(text string) {
	for _, r := range text {
		s.printRune(r)
	}
}

func (s *Screen) printRune(r rune) {
	r = translate(s.charsets[s.gl], r)
	w := widths.RuneWidth(r)
	if w == 0 {
		if unicode.IsControl(r) {
			return
		}
		s.combine(r)
		return
	}
	if w == 2 && s.cols < 2 {
		r, w = utf8.RuneError, 1
	}

	if s.cur.wrapPending {
		s.wrap()
	}
	if w == 2 && s.cur.Col == s.cols-1 {
		s.eraseCells(s.cur.Row, s.cur.Col, s.cols)
		s.wrap()
	}

	row := s.grid[s.cur.Row]
	col := s.cur.Col
	s.splitWide(row, col)
	if w == 2 {
		s.splitWide(row, col+1)
	}
	row[col] = Cell{Content: string(r), Width: w, Style: s.cur.Pen}
	if w == 2 {
		row[col+1] = Cell{Width: 0, Style: s.cur.Pen}
	}

	col += w
	if col >= s.cols {
		s.cur.Col = s.cols - 1
		s.cur.wrapPending = true
		return
	}
	s.cur.Col = col
}

func (s *Screen) wrap() {
	s.cur.Col = 0
	s.cur.wrapPending = false
	s.index()
}

// combine appends a zero width rune to the character left of the cursor.
func (s *Screen) combine(r rune) {
	col := s.cur.Col
	if !s.cur.wrapPending {
		col--
	}
	if col < 0 {
		return
	}
	row := s.grid[s.cur.Row]
	if IsContinuation(row[col]) && col > 0 {
		col--
	}
	row[col].Content += string(r)
}

// splitWide blanks the other half of a wide character before col is
// overwritten.
func (s *Screen) splitWide(row []Cell, col int) {
	if col < 0 || col >= len(row) {
		return
	}
	switch {
	case IsContinuation(row[col]) && col > 0:
		row[col-1] = blankWith(row[col-1].Style.Bg)
	case row[col].Width == 2 && col+1 < len(row):
		row[col+1] = blankWith(row[col+1].Style.Bg)
	}
}

func (s *Screen) index() {
	s.cur.wrapPending = false
	switch {
	case s.cur.Row == s.bottom:
		s.scrollUp(1)
	case s.cur.Row < s.rows-1:
		s.cur.Row++
	}
}

func (s *Screen) reverseIndex() {
	s.cur.wrapPending = false
	switch {
	case s.cur.Row == s.top:
		s.scrollDown(1)
	case s.cur.Row > 0:
		s.cur.Row--
	}
}

// scrollUp moves the rows of the scroll region up by n. Rows leaving a region
// that starts at the top of the screen go to the scrollback.
func (s *Screen) scrollUp(n int) {
	n = min(n, s.bottom-s.top+1)
	for range n {
		evicted := s.grid[s.top]
		if s.top == 0 {
			s.scrollback.PushLine(evicted)
		}
		copy(s.grid[s.top:s.bottom], s.grid[s.top+1:s.bottom+1])
		fill(evicted, blankWith(s.cur.Pen.Bg))
		s.grid[s.bottom] = evicted
	}
}

func (s *Screen) scrollDown(n int) {
	n = min(n, s.bottom-s.top+1)
	for range n {
		evicted := s.grid[s.bottom]
		copy(s.grid[s.top+1:s.bottom+1], s.grid[s.top:s.bottom])
		fill(evicted, blankWith(s.cur.Pen.Bg))
		s.grid[s.top] = evicted
	}
}

func (s *Screen) moveCursor(dir Direction, n int) {
	n = max(n, 1)
	row, col := s.cur.Row, s.cur.Col
	switch dir {
	case DirUp, DirPrevLine:
		limit := 0
		if row >= s.top {
			limit = s.top
		}
		row = max(row-n, limit)
	case DirDown, DirNextLine:
		limit := s.rows - 1
		if row <= s.bottom {
			limit = s.bottom
		}
		row = min(row+n, limit)
	case DirForward:
		col = min(col+n, s.cols-1)
	case DirBackward:
		col = max(col-n, 0)
	}
	if dir == DirNextLine || dir == DirPrevLine {
		col = 0
	}
	s.cur.Row, s.cur.Col = row, col
	s.cur.wrapPending = false
}

func (s *Screen) setCursor(row, col int) {
	s.cur.Row = clamp(row, 0, s.rows-1)
	s.cur.Col = clamp(col, 0, s.cols-1)
	s.cur.wrapPending = false
}

// eraseCells blanks columns [from, to) of row with the current background.
func (s *Screen) eraseCells(row, from, to int) {
	from, to = max(from, 0), min(to, s.cols)
	if from >= to {
		return
	}
	line := s.grid[row]
	s.splitWide(line, from)
	s.splitWide(line, to-1)
	fill(line[from:to], blankWith(s.cur.Pen.Bg))
}

func (s *Screen) eraseInLine(mode int) {
	switch mode {
	case EraseToEnd:
		s.eraseCells(s.cur.Row, s.cur.Col, s.cols)
	case EraseToStart:
		s.eraseCells(s.cur.Row, 0, s.cur.Col+1)
	case EraseAll:
		s.eraseCells(s.cur.Row, 0, s.cols)
	}
}

func (s *Screen) eraseInDisplay(mode int) {
	switch mode {
	case EraseToEnd:
		s.eraseCells(s.cur.Row, s.cur.Col, s.cols)
		for r := s.cur.Row + 1; r < s.rows; r++ {
			s.eraseCells(r, 0, s.cols)
		}
	case EraseToStart:
		for r := range s.cur.Row {
			s.eraseCells(r, 0, s.cols)
		}
		s.eraseCells(s.cur.Row, 0, s.cur.Col+1)
	case EraseAll:
		for r := range s.rows {
			s.eraseCells(r, 0, s.cols)
		}
	case EraseScrollback:
		s.scrollback.Clear()
	}
}

func (s *Screen) insertChars(n int) {
	row := s.grid[s.cur.Row]
	col := s.cur.Col
	n = min(n, s.cols-col)
	copy(row[col+n:], row[col:s.cols-n])
	fill(row[col:col+n], blankWith(s.cur.Pen.Bg))
	repairWide(row)
	s.cur.wrapPending = false
}

func (s *Screen) deleteChars(n int) {
	row := s.grid[s.cur.Row]
	col := s.cur.Col
	n = min(n, s.cols-col)
	copy(row[col:], row[col+n:])
	fill(row[s.cols-n:], blankWith(s.cur.Pen.Bg))
	repairWide(row)
	s.cur.wrapPending = false
}

// repairWide blanks halves of wide characters that lost their partner.
func repairWide(row []Cell) {
	for i, c := range row {
		switch {
		case c.Width == 0 && (i == 0 || row[i-1].Width != 2):
			row[i] = blankWith(c.Style.Bg)
		case c.Width == 2 && (i == len(row)-1 || row[i+1].Width != 0):
			row[i] = blankWith(c.Style.Bg)
		}
	}
}

// insertLines inserts n blank rows at the cursor, pushing the rows below
// towards the bottom margin. It has no effect outside the scroll region.
func (s *Screen) insertLines(n int) {
	if s.cur.Row < s.top || s.cur.Row > s.bottom {
		return
	}
	top := s.top
	s.top = s.cur.Row
	s.scrollDown(n)
	s.top = top
	s.cur.Col = 0
	s.cur.wrapPending = false
}

func (s *Screen) deleteLines(n int) {
	if s.cur.Row < s.top || s.cur.Row > s.bottom {
		return
	}
	n = min(n, s.bottom-s.cur.Row+1)
	for range n {
		evicted := s.grid[s.cur.Row]
		copy(s.grid[s.cur.Row:s.bottom], s.grid[s.cur.Row+1:s.bottom+1])
		fill(evicted, blankWith(s.cur.Pen.Bg))
		s.grid[s.bottom] = evicted
	}
	s.cur.Col = 0
	s.cur.wrapPending = false
}

func (s *Screen) setScrollRegion(top, bottom int) {
	if bottom < 0 {
		bottom = s.rows - 1
	}
	top = clamp(top, 0, s.rows-1)
	bottom = clamp(bottom, 0, s.rows-1)
	if top >= bottom {
		return
	}
	s.top, s.bottom = top, bottom
	s.setCursor(0, 0)
}

func (s *Screen) saveCursor() {
	s.saved = &savedCursor{cur: s.cur, charsets: s.charsets, gl: s.gl}
}

func (s *Screen) restoreCursor() {
	if s.saved == nil {
		s.cur = Cursor{}
		s.charsets = [2]Charset{}
		s.gl = 0
		return
	}
	s.cur = s.saved.cur
	s.charsets = s.saved.charsets
	s.gl = s.saved.gl
	s.cur.Row = clamp(s.cur.Row, 0, s.rows-1)
	s.cur.Col = clamp(s.cur.Col, 0, s.cols-1)
}

func (s *Screen) setMode(mode int, set bool) {
	switch mode {
	case ModeCursorVisible:
		s.cursorVisible = set
	case ModeCursorBlink:
		s.cursorBlink = set
	case ModeBracketedPaste:
		s.bracketedPaste = set
	case ModeAutowrap:
		// always on
	}
}

// reset returns the screen to its initial state. The scrollback survives.
func (s *Screen) reset() {
	for _, row := range s.grid {
		fill(row, BlankCell)
	}
	s.resetState()
}

// Resize changes the grid to rows x cols. Columns are truncated or padded on
// the right. When rows shrink, rows above the cursor move to the scrollback
// only as far as needed to keep the cursor on screen and the rest is dropped
// from the bottom. New rows are added at the bottom. The scroll region is
// reset and the scrollback is never reflowed.
func (s *Screen) Resize(rows, cols int) {
	rows, cols = max(rows, 1), max(cols, 1)
	if rows == s.rows && cols == s.cols {
		return
	}

	if rows < s.rows {
		excess := s.rows - rows
		evict := min(max(s.cur.Row-(rows-1), 0), excess)
		for _, line := range s.grid[:evict] {
			s.scrollback.PushLine(line)
		}
		s.grid = s.grid[evict : evict+rows]
		s.cur.Row -= evict
	}

	for i, line := range s.grid {
		s.grid[i] = resizeRow(line, cols)
	}
	for len(s.grid) < rows {
		s.grid = append(s.grid, blankRow(cols, nil))
	}

	s.rows, s.cols = rows, cols
	s.tabs.Resize(cols)
	s.top, s.bottom = 0, rows-1
	s.cur.Row = clamp(s.cur.Row, 0, rows-1)
	s.cur.Col = clamp(s.cur.Col, 0, cols-1)
	s.cur.wrapPending = false
}

func resizeRow(line []Cell, cols int) []Cell {
	if len(line) == cols {
		return line
	}
	out := make([]Cell, cols)
	n := copy(out, line)
	if n < cols {
		fill(out[n:], BlankCell)
	}
	repairWide(out)
	return out
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
