package vt

import "strings"

// CursorState is the cursor as seen by a renderer.
type CursorState struct {
	Row, Col int
	Visible  bool
	Blink    bool
}

// Snapshot is an immutable copy of a screen. It is safe to share between
// goroutines and never changes after it is taken.
type Snapshot struct {
	Rows, Cols int
	// Cells is indexed [row][col].
	Cells  [][]Cell
	Cursor CursorState
	Title  string

	BracketedPaste bool
	ScrollbackLen  int

	// Live reports whether the session behind the screen is still running.
	// Screens leave it false; the terminal controller fills it in.
	Live bool
	// Seq increases with every snapshot the controller publishes.
	Seq uint64
}

// Snapshot copies the visible state of the screen.
func (s *Screen) Snapshot() *Snapshot {
	cells := make([][]Cell, s.rows)
	backing := make([]Cell, s.rows*s.cols)
	for i, row := range s.grid {
		cells[i] = backing[i*s.cols : (i+1)*s.cols : (i+1)*s.cols]
		copy(cells[i], row)
	}
	return &Snapshot{
		Rows:  s.rows,
		Cols:  s.cols,
		Cells: cells,
		Cursor: CursorState{
			Row:     s.cur.Row,
			Col:     s.cur.Col,
			Visible: s.cursorVisible,
			Blink:   s.cursorBlink,
		},
		Title:          s.title,
		BracketedPaste: s.bracketedPaste,
		ScrollbackLen:  s.scrollback.Len(),
	}
}

// Cell returns the cell at row, col or BlankCell when out of range.
func (s *Snapshot) Cell(row, col int) Cell {
	if row < 0 || row >= s.Rows || col < 0 || col >= s.Cols {
		return BlankCell
	}
	return s.Cells[row][col]
}

// Line returns the text of row including trailing blanks.
func (s *Snapshot) Line(row int) string {
	if row < 0 || row >= s.Rows {
		return ""
	}
	return RowText(s.Cells[row])
}

// Text returns the screen contents with trailing blanks removed from each
// row and trailing empty rows dropped.
func (s *Snapshot) Text() string {
	lines := make([]string, s.Rows)
	for i := range s.Rows {
		lines[i] = strings.TrimRight(s.Line(i), " ")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
