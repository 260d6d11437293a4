package vt

import (
	"fmt"
	"strconv"
	"strings"
)

// ActionKind identifies the variant carried by an [Action].
type ActionKind uint8

const (
	// ActionUnsupported is a complete sequence the emulator does not implement.
	// Raw holds the bytes of the sequence.
	ActionUnsupported ActionKind = iota
	// ActionPrint writes Text at the cursor.
	ActionPrint
	ActionLineFeed
	ActionCarriageReturn
	ActionBackspace
	ActionTab
	ActionBell
	// ActionCursorMove moves the cursor Count cells in direction Dir.
	ActionCursorMove
	// ActionCursorPosition moves the cursor to the zero-based Row and Col.
	ActionCursorPosition
	// ActionCursorColumn moves the cursor to the zero-based Col of the current row.
	ActionCursorColumn
	// ActionCursorRow moves the cursor to the zero-based Row keeping the column.
	ActionCursorRow
	// ActionEraseInLine erases part of the cursor row according to Mode.
	ActionEraseInLine
	// ActionEraseInDisplay erases part of the screen according to Mode.
	ActionEraseInDisplay
	// ActionEraseChars blanks Count cells starting at the cursor.
	ActionEraseChars
	ActionInsertChars
	ActionDeleteChars
	ActionInsertLines
	ActionDeleteLines
	// ActionScrollUp scrolls the scroll region up by Count rows.
	ActionScrollUp
	// ActionScrollDown scrolls the scroll region down by Count rows.
	ActionScrollDown
	// ActionSetAttributes applies the SGR parameters in Params to the pen.
	ActionSetAttributes
	// ActionSetScrollRegion sets the zero-based inclusive Top and Bottom
	// margins. Bottom is -1 when the sequence omitted it.
	ActionSetScrollRegion
	ActionSaveCursor
	ActionRestoreCursor
	// ActionIndex moves the cursor down one row, scrolling at the bottom margin.
	ActionIndex
	// ActionReverseIndex moves the cursor up one row, scrolling at the top margin.
	ActionReverseIndex
	// ActionNextLine is a carriage return followed by an index.
	ActionNextLine
	// ActionSetMode sets (Set true) or resets the DEC private modes in Params.
	ActionSetMode
	// ActionSetTitle carries the window title from OSC 0, 1 or 2.
	ActionSetTitle
	// ActionDesignateCharset designates Charset into slot Slot (0 = G0, 1 = G1).
	ActionDesignateCharset
	ActionShiftOut
	ActionShiftIn
	// ActionFullReset resets the terminal to its initial state (RIS).
	ActionFullReset
)

var actionNames = [...]string{
	ActionUnsupported:      "Unsupported",
	ActionPrint:            "Print",
	ActionLineFeed:         "LineFeed",
	ActionCarriageReturn:   "CarriageReturn",
	ActionBackspace:        "Backspace",
	ActionTab:              "Tab",
	ActionBell:             "Bell",
	ActionCursorMove:       "CursorMove",
	ActionCursorPosition:   "CursorPosition",
	ActionCursorColumn:     "CursorColumn",
	ActionCursorRow:        "CursorRow",
	ActionEraseInLine:      "EraseInLine",
	ActionEraseInDisplay:   "EraseInDisplay",
	ActionEraseChars:       "EraseChars",
	ActionInsertChars:      "InsertChars",
	ActionDeleteChars:      "DeleteChars",
	ActionInsertLines:      "InsertLines",
	ActionDeleteLines:      "DeleteLines",
	ActionScrollUp:         "ScrollUp",
	ActionScrollDown:       "ScrollDown",
	ActionSetAttributes:    "SetAttributes",
	ActionSetScrollRegion:  "SetScrollRegion",
	ActionSaveCursor:       "SaveCursor",
	ActionRestoreCursor:    "RestoreCursor",
	ActionIndex:            "Index",
	ActionReverseIndex:     "ReverseIndex",
	ActionNextLine:         "NextLine",
	ActionSetMode:          "SetMode",
	ActionSetTitle:         "SetTitle",
	ActionDesignateCharset: "DesignateCharset",
	ActionShiftOut:         "ShiftOut",
	ActionShiftIn:          "ShiftIn",
	ActionFullReset:        "FullReset",
}

func (k ActionKind) String() string {
	if int(k) < len(actionNames) {
		return actionNames[k]
	}
	return "ActionKind(" + strconv.Itoa(int(k)) + ")"
}

// Direction is the direction of a relative cursor movement.
type Direction uint8

const (
	DirUp Direction = iota
	DirDown
	DirForward
	DirBackward
	// DirNextLine moves down and to the first column (CNL).
	DirNextLine
	// DirPrevLine moves up and to the first column (CPL).
	DirPrevLine
)

func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	case DirForward:
		return "forward"
	case DirBackward:
		return "backward"
	case DirNextLine:
		return "next-line"
	case DirPrevLine:
		return "prev-line"
	}
	return "dir(" + strconv.Itoa(int(d)) + ")"
}

// Erase modes shared by EL and ED.
const (
	EraseToEnd      = 0
	EraseToStart    = 1
	EraseAll        = 2
	EraseScrollback = 3 // ED only
)

// DEC private modes understood by the screen.
const (
	ModeAutowrap       = 7
	ModeCursorBlink    = 12
	ModeCursorVisible  = 25
	ModeBracketedPaste = 2004
)

// Charset identifies a character set that can be designated into G0 or G1.
type Charset uint8

const (
	CharsetASCII Charset = iota
	CharsetUK
	CharsetDECSpecial
)

// Action is a single terminal action produced by the [Scanner]. It is a tagged
// variant: Kind selects which of the remaining fields are meaningful.
type Action struct {
	Kind ActionKind

	// Text is the printable run for ActionPrint and the title for ActionSetTitle.
	Text string
	// Raw holds the sequence bytes of ActionUnsupported.
	Raw []byte
	// Params holds SGR parameters for ActionSetAttributes and mode numbers
	// for ActionSetMode.
	Params []int

	Dir   Direction
	Count int
	Row   int
	Col   int
	Mode  int
	Set   bool

	Top    int
	Bottom int

	Slot    int
	Charset Charset
}

// String returns a compact human readable form used by diagnostics and the
// scan command.
func (a Action) String() string {
	switch a.Kind {
	case ActionPrint:
		return fmt.Sprintf("Print(%q)", a.Text)
	case ActionSetTitle:
		return fmt.Sprintf("SetTitle(%q)", a.Text)
	case ActionUnsupported:
		return fmt.Sprintf("Unsupported(%q)", a.Raw)
	case ActionCursorMove:
		return fmt.Sprintf("CursorMove(%s, %d)", a.Dir, a.Count)
	case ActionCursorPosition:
		return fmt.Sprintf("CursorPosition(%d, %d)", a.Row, a.Col)
	case ActionCursorColumn:
		return fmt.Sprintf("CursorColumn(%d)", a.Col)
	case ActionCursorRow:
		return fmt.Sprintf("CursorRow(%d)", a.Row)
	case ActionEraseInLine, ActionEraseInDisplay:
		return fmt.Sprintf("%s(%d)", a.Kind, a.Mode)
	case ActionEraseChars, ActionInsertChars, ActionDeleteChars,
		ActionInsertLines, ActionDeleteLines, ActionScrollUp, ActionScrollDown:
		return fmt.Sprintf("%s(%d)", a.Kind, a.Count)
	case ActionSetAttributes:
		return "SetAttributes(" + joinInts(a.Params) + ")"
	case ActionSetScrollRegion:
		return fmt.Sprintf("SetScrollRegion(%d, %d)", a.Top, a.Bottom)
	case ActionSetMode:
		return fmt.Sprintf("SetMode(%s, %t)", joinInts(a.Params), a.Set)
	case ActionDesignateCharset:
		return fmt.Sprintf("DesignateCharset(G%d, %s)", a.Slot, a.Charset)
	}
	return a.Kind.String()
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, p := range v {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ";")
}

func unsupported(raw []byte) Action {
	return Action{Kind: ActionUnsupported, Raw: append([]byte(nil), raw...)}
}
