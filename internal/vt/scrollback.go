package vt

// DefaultScrollback is the scrollback capacity used when none is configured.
const DefaultScrollback = 10000

// Scrollback holds rows that have scrolled off the top of the screen, oldest
// first. It is a ring buffer: once full, each push evicts the oldest row.
type Scrollback struct {
	lines    [][]Cell
	maxLines int
	// head is the index of the oldest row
	head int
	// tail is where the next row goes
	tail int
	full bool
}

// NewScrollback returns a scrollback holding at most maxLines rows. A
// maxLines of 0 or less selects DefaultScrollback.
func NewScrollback(maxLines int) *Scrollback {
	if maxLines <= 0 {
		maxLines = DefaultScrollback
	}
	return &Scrollback{
		lines:    make([][]Cell, maxLines),
		maxLines: maxLines,
	}
}

// PushLine appends a copy of line as the newest row, evicting the oldest row
// when full.
func (sb *Scrollback) PushLine(line []Cell) {
	lineCopy := make([]Cell, len(line))
	copy(lineCopy, line)

	sb.lines[sb.tail] = lineCopy
	sb.tail = (sb.tail + 1) % sb.maxLines
	if sb.full {
		sb.head = (sb.head + 1) % sb.maxLines
	}
	if sb.tail == sb.head {
		sb.full = true
	}
}

// Len returns the number of rows held.
func (sb *Scrollback) Len() int {
	if sb.full {
		return sb.maxLines
	}
	if sb.tail >= sb.head {
		return sb.tail - sb.head
	}
	return sb.maxLines - sb.head + sb.tail
}

// Line returns row index, 0 being the oldest, or nil when out of range. The
// returned slice must not be modified.
func (sb *Scrollback) Line(index int) []Cell {
	if index < 0 || index >= sb.Len() {
		return nil
	}
	return sb.lines[(sb.head+index)%sb.maxLines]
}

// Lines returns all rows from oldest to newest. The rows are shared with
// the buffer and must not be modified.
func (sb *Scrollback) Lines() [][]Cell {
	length := sb.Len()
	if length == 0 {
		return nil
	}
	result := make([][]Cell, length)
	for i := range length {
		result[i] = sb.lines[(sb.head+i)%sb.maxLines]
	}
	return result
}

// Clear removes every row.
func (sb *Scrollback) Clear() {
	sb.head = 0
	sb.tail = 0
	sb.full = false
	clear(sb.lines)
}

// MaxLines returns the capacity.
func (sb *Scrollback) MaxLines() int {
	return sb.maxLines
}

// SetMaxLines changes the capacity, keeping the newest rows that fit.
func (sb *Scrollback) SetMaxLines(maxLines int) {
	if maxLines <= 0 {
		maxLines = DefaultScrollback
	}
	if maxLines == sb.maxLines {
		return
	}

	oldLen := sb.Len()
	newLines := make([][]Cell, maxLines)
	newLen := min(oldLen, maxLines)
	start := oldLen - newLen
	for i := range newLen {
		newLines[i] = sb.lines[(sb.head+start+i)%sb.maxLines]
	}

	sb.lines = newLines
	sb.maxLines = maxLines
	sb.head = 0
	sb.tail = newLen % maxLines
	sb.full = newLen == maxLines
}
