package vt

import (
	"image/color"
	"strings"

	uv "github.com/charmbracelet/ultraviolet"
)

// Cell is one grid position.
//
// A wide character occupies two cells: the first holds the content with
// Width 2 and the second is a continuation cell with empty Content and
// Width 0.
type Cell = uv.Cell

// Attrs is the rendition applied to written cells. A nil color means the
// terminal default.
type Attrs = uv.Style

// BlankCell is the default empty cell.
var BlankCell = uv.EmptyCell

func blankWith(bg color.Color) Cell {
	return Cell{Content: " ", Width: 1, Style: Attrs{Bg: bg}}
}

// IsBlank reports whether c holds no character. It may still carry a
// background color.
func IsBlank(c Cell) bool {
	return c.Width == 1 && c.Content == " "
}

// IsContinuation reports whether c is the right half of a wide character.
func IsContinuation(c Cell) bool {
	return c.Width == 0
}

// HasAttr reports whether every bit of attr (uv.AttrBold and friends) is
// set in a.
func HasAttr(a Attrs, attr uint8) bool {
	return a.Attrs&attr == attr
}

func blankRow(cols int, bg color.Color) []Cell {
	row := make([]Cell, cols)
	fill(row, blankWith(bg))
	return row
}

func fill(row []Cell, c Cell) {
	for i := range row {
		row[i] = c
	}
}

// RowText returns the characters of row, continuation cells contributing
// nothing.
func RowText(row []Cell) string {
	var b strings.Builder
	b.Grow(len(row))
	for _, c := range row {
		b.WriteString(c.Content)
	}
	return b.String()
}
