package vt

import (
	"strconv"
	"testing"
)

func row(s string) []Cell {
	cells := make([]Cell, 0, len(s))
	for _, r := range s {
		cells = append(cells, Cell{Content: string(r), Width: 1})
	}
	return cells
}

func TestScrollback_Default(t *testing.T) {
	sb := NewScrollback(0)
	if sb.MaxLines() != DefaultScrollback {
		t.Errorf("expected default capacity %d, got %d", DefaultScrollback, sb.MaxLines())
	}
	if sb.Len() != 0 || sb.Lines() != nil || sb.Line(0) != nil {
		t.Error("expected empty scrollback")
	}
}

func TestScrollback_FIFOEviction(t *testing.T) {
	sb := NewScrollback(5)
	for i := range 23 {
		sb.PushLine(row(strconv.Itoa(i)))
	}
	if sb.Len() != 5 {
		t.Fatalf("expected 5 rows, got %d", sb.Len())
	}
	for i, line := range sb.Lines() {
		if got, want := RowText(line), strconv.Itoa(18+i); got != want {
			t.Errorf("row %d: expected %q, got %q", i, want, got)
		}
	}
	if got := RowText(sb.Line(0)); got != "18" {
		t.Errorf("expected oldest row 18, got %q", got)
	}
	if sb.Line(5) != nil || sb.Line(-1) != nil {
		t.Error("expected nil for out of range rows")
	}
}

func TestScrollback_PushCopies(t *testing.T) {
	sb := NewScrollback(3)
	line := row("abc")
	sb.PushLine(line)
	line[0].Content = "z"
	if got := RowText(sb.Line(0)); got != "abc" {
		t.Errorf("expected pushed row to be copied, got %q", got)
	}
}

func TestScrollback_Clear(t *testing.T) {
	sb := NewScrollback(3)
	for range 5 {
		sb.PushLine(row("x"))
	}
	sb.Clear()
	if sb.Len() != 0 {
		t.Fatalf("expected empty after Clear, got %d", sb.Len())
	}
	sb.PushLine(row("y"))
	if sb.Len() != 1 || RowText(sb.Line(0)) != "y" {
		t.Error("expected scrollback usable after Clear")
	}
}

func TestScrollback_SetMaxLines(t *testing.T) {
	sb := NewScrollback(10)
	for i := range 8 {
		sb.PushLine(row(strconv.Itoa(i)))
	}

	sb.SetMaxLines(3)
	if sb.Len() != 3 {
		t.Fatalf("expected 3 rows after shrinking, got %d", sb.Len())
	}
	if got := RowText(sb.Line(0)); got != "5" {
		t.Errorf("expected newest rows kept, oldest is %q", got)
	}

	sb.SetMaxLines(6)
	sb.PushLine(row("8"))
	if sb.Len() != 4 || RowText(sb.Line(3)) != "8" {
		t.Errorf("expected growth to keep rows, got %d rows", sb.Len())
	}
}
