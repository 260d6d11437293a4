package vt_test

import (
	"math/rand/v2"
	"reflect"
	"strings"
	"testing"

	"github.com/Gaurav-Gosain/emuterm/internal/vt"
)

// scan feeds each chunk in turn and flushes at the end.
func scan(chunks ...string) []vt.Action {
	s := vt.NewScanner()
	var out []vt.Action
	for _, c := range chunks {
		for a := range s.Feed([]byte(c)) {
			out = append(out, a)
		}
	}
	for a := range s.Flush() {
		out = append(out, a)
	}
	return out
}

func names(actions []vt.Action) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.String()
	}
	return out
}

func expectActions(t *testing.T, input string, want ...string) {
	t.Helper()
	got := names(scan(input))
	if !reflect.DeepEqual(got, want) {
		t.Errorf("scan(%q)\n got: %q\nwant: %q", input, got, want)
	}
}

// =============================================================================
// Basic Dispatch Tests
// =============================================================================

func TestScanner_TextAndControls(t *testing.T) {
	expectActions(t, "hello\r\n", `Print("hello")`, "CarriageReturn", "LineFeed")
	expectActions(t, "a\tb\bc\a", `Print("a")`, "Tab", `Print("b")`, "Backspace", `Print("c")`, "Bell")
	expectActions(t, "\x0b\x0c", "LineFeed", "LineFeed")
}

func TestScanner_UnknownControlIsUnsupported(t *testing.T) {
	expectActions(t, "x\x05y", `Print("x")`, `Unsupported("\x05")`, `Print("y")`)
}

func TestScanner_NulAndDelIgnored(t *testing.T) {
	expectActions(t, "a\x00b\x7fc", `Print("abc")`)
}

func TestScanner_CursorSequences(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"\x1b[5;10H", "CursorPosition(4, 9)"},
		{"\x1b[H", "CursorPosition(0, 0)"},
		{"\x1b[;5H", "CursorPosition(0, 4)"},
		{"\x1b[7f", "CursorPosition(6, 0)"},
		{"\x1b[A", "CursorMove(up, 1)"},
		{"\x1b[0A", "CursorMove(up, 1)"},
		{"\x1b[3B", "CursorMove(down, 3)"},
		{"\x1b[2C", "CursorMove(forward, 2)"},
		{"\x1b[D", "CursorMove(backward, 1)"},
		{"\x1b[2E", "CursorMove(next-line, 2)"},
		{"\x1b[F", "CursorMove(prev-line, 1)"},
		{"\x1b[12G", "CursorColumn(11)"},
		{"\x1b[3d", "CursorRow(2)"},
		{"\x1b7", "SaveCursor"},
		{"\x1b8", "RestoreCursor"},
		{"\x1b[s", "SaveCursor"},
		{"\x1b[u", "RestoreCursor"},
		{"\x1bD", "Index"},
		{"\x1bM", "ReverseIndex"},
		{"\x1bE", "NextLine"},
		{"\x1bc", "FullReset"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			expectActions(t, tt.input, tt.want)
		})
	}
}

func TestScanner_EraseAndEdit(t *testing.T) {
	expectActions(t, "\x1b[J", "EraseInDisplay(0)")
	expectActions(t, "\x1b[2J", "EraseInDisplay(2)")
	expectActions(t, "\x1b[3J", "EraseInDisplay(3)")
	expectActions(t, "\x1b[1K", "EraseInLine(1)")
	expectActions(t, "\x1b[3K", `Unsupported("\x1b[3K")`)
	expectActions(t, "\x1b[4X", "EraseChars(4)")
	expectActions(t, "\x1b[@", "InsertChars(1)")
	expectActions(t, "\x1b[2P", "DeleteChars(2)")
	expectActions(t, "\x1b[L", "InsertLines(1)")
	expectActions(t, "\x1b[5M", "DeleteLines(5)")
	expectActions(t, "\x1b[S", "ScrollUp(1)")
	expectActions(t, "\x1b[2T", "ScrollDown(2)")
}

func TestScanner_Attributes(t *testing.T) {
	expectActions(t, "\x1b[1;31m", "SetAttributes(1;31)")
	expectActions(t, "\x1b[m", "SetAttributes()")
	expectActions(t, "\x1b[;1m", "SetAttributes(0;1)")
	expectActions(t, "\x1b[38;5;196m", "SetAttributes(38;5;196)")
}

func TestScanner_ScrollRegion(t *testing.T) {
	expectActions(t, "\x1b[2;10r", "SetScrollRegion(1, 9)")
	expectActions(t, "\x1b[r", "SetScrollRegion(0, -1)")
	expectActions(t, "\x1b[5r", "SetScrollRegion(4, -1)")
}

func TestScanner_Modes(t *testing.T) {
	expectActions(t, "\x1b[?25l", "SetMode(25, false)")
	expectActions(t, "\x1b[?25;2004h", "SetMode(25;2004, true)")
	expectActions(t, "\x1b[?1049h", `Unsupported("\x1b[?1049h")`)
	expectActions(t, "\x1b[>c", `Unsupported("\x1b[>c")`)
	expectActions(t, "\x1b[6n", `Unsupported("\x1b[6n")`)
	expectActions(t, "\x1b[2 q", `Unsupported("\x1b[2 q")`)
	expectActions(t, "\x1b=", `Unsupported("\x1b=")`)
	expectActions(t, "a\x1b\\b", `Print("a")`, `Unsupported("\x1b\\")`, `Print("b")`)
}

func TestScanner_Charsets(t *testing.T) {
	expectActions(t, "\x1b(0", "DesignateCharset(G0, dec-special)")
	expectActions(t, "\x1b)B", "DesignateCharset(G1, ascii)")
	expectActions(t, "\x1b(A", "DesignateCharset(G0, uk)")
	expectActions(t, "\x1b(K", `Unsupported("\x1b(K")`)
	expectActions(t, "\x0e\x0f", "ShiftOut", "ShiftIn")
}

// =============================================================================
// OSC and DCS Tests
// =============================================================================

func TestScanner_OSCTitle(t *testing.T) {
	expectActions(t, "\x1b]0;hi there\x07", `SetTitle("hi there")`)
	expectActions(t, "\x1b]2;x\x1b\\", `SetTitle("x")`)
	expectActions(t, "\x1b]1;icon\x07", `SetTitle("icon")`)
	expectActions(t, "\x1b]8;;http://x\x07", `Unsupported("\x1b]8;;http://x")`)
}

func TestScanner_OSCAbortedByEscape(t *testing.T) {
	expectActions(t, "\x1b]0;t\x1b[2J", `Unsupported("\x1b]0;t")`, "EraseInDisplay(2)")
}

func TestScanner_OSCPayloadIsCapped(t *testing.T) {
	actions := scan("\x1b]0;" + strings.Repeat("a", 5000) + "\x07ok")
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(actions))
	}
	if actions[0].Kind != vt.ActionSetTitle {
		t.Fatalf("expected SetTitle, got %s", actions[0].Kind)
	}
	if got := len(actions[0].Text); got != vt.MaxSequenceBytes-2 {
		t.Errorf("expected title of %d bytes, got %d", vt.MaxSequenceBytes-2, got)
	}
	if actions[1].Text != "ok" {
		t.Errorf("expected text after the OSC to survive, got %v", actions[1])
	}
}

func TestScanner_DCSIsConsumed(t *testing.T) {
	expectActions(t, "\x1bPq#0;2;0\x1b\\ok", `Unsupported("\x1bPq#0;2;0\x1b\\")`, `Print("ok")`)
	expectActions(t, "\x1b_Gx\x1b\\", `Unsupported("\x1b_Gx\x1b\\")`)
}

// =============================================================================
// Malformed Input Tests
// =============================================================================

func TestScanner_ColonAbortsSequence(t *testing.T) {
	expectActions(t, "\x1b[38:2:1:2:3mX", `Unsupported("\x1b[38:2:1:2:3m")`, `Print("X")`)
}

func TestScanner_NonDigitInParams(t *testing.T) {
	expectActions(t, "\x1b[1!2mX", `Unsupported("\x1b[1!2m")`, `Print("X")`)
	expectActions(t, "\x1b[1?5hX", `Unsupported("\x1b[1?5h")`, `Print("X")`)
}

func TestScanner_CancelAbortsSequence(t *testing.T) {
	expectActions(t, "\x1b[12\x18A", `Unsupported("\x1b[12")`, `Print("A")`)
	expectActions(t, "\x1b]0;x\x1aB", `Unsupported("\x1b]0;x")`, `Print("B")`)
}

func TestScanner_EscapeRestartsSequence(t *testing.T) {
	expectActions(t, "\x1b[1\x1b[2J", `Unsupported("\x1b[1")`, "EraseInDisplay(2)")
	expectActions(t, "\x1b\x1b[K", `Unsupported("\x1b")`, "EraseInLine(0)")
}

func TestScanner_ControlInsideCSIExecutes(t *testing.T) {
	expectActions(t, "\x1b[2\rK", "CarriageReturn", "EraseInLine(2)")
}

func TestScanner_ParamClamping(t *testing.T) {
	actions := scan("\x1b[99999999C")
	if len(actions) != 1 || actions[0].Count != vt.MaxParamValue {
		t.Fatalf("expected count clamped to %d, got %v", vt.MaxParamValue, actions)
	}

	params := strings.TrimSuffix(strings.Repeat("1;", 40), ";")
	actions = scan("\x1b[" + params + "m")
	if len(actions) != 1 || actions[0].Kind != vt.ActionSetAttributes {
		t.Fatalf("expected a single SetAttributes, got %v", actions)
	}
	if len(actions[0].Params) != vt.MaxParams {
		t.Errorf("expected %d params, got %d", vt.MaxParams, len(actions[0].Params))
	}
}

func TestScanner_ExtraParamsIgnored(t *testing.T) {
	expectActions(t, "\x1b[3;4;5A", "CursorMove(up, 3)")
	expectActions(t, "\x1b[1;2;3;4H", "CursorPosition(0, 1)")
}

// =============================================================================
// UTF-8 Tests
// =============================================================================

func TestScanner_UTF8(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   string
	}{
		{"whole", []string{"héllo"}, "héllo"},
		{"split", []string{"h\xc3", "\xa9"}, "hé"},
		{"split four bytes", []string{"\xf0\x9f", "\x98", "\x80!"}, "😀!"},
		{"invalid byte", []string{"a\xffb"}, "a�b"},
		{"truncated", []string{"\xe2\x82A"}, "�A"},
		{"stray continuation", []string{"\x80"}, "�"},
		{"overlong", []string{"\xe0\x80\x80"}, "�"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions := scan(tt.chunks...)
			if len(actions) != 1 || actions[0].Kind != vt.ActionPrint {
				t.Fatalf("expected one Print, got %v", actions)
			}
			if actions[0].Text != tt.want {
				t.Errorf("expected %q, got %q", tt.want, actions[0].Text)
			}
		})
	}
}

func TestScanner_TruncatedRuneBeforeControl(t *testing.T) {
	actions := scan("\xc3\r")
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %v", actions)
	}
	if actions[0].Text != "�" || actions[1].Kind != vt.ActionCarriageReturn {
		t.Errorf("unexpected actions %v", actions)
	}
}

// =============================================================================
// Streaming Tests
// =============================================================================

var streamCorpus = strings.Join([]string{
	"\x1b[?25l\x1b[H\x1b[2J",
	"\x1b[1;31mError:\x1b[0m something failed\r\n",
	"\x1b]0;vim README.md\x07",
	"wide 日本語 text and émoji 😀\r\n",
	"\x1b[38;5;208morange\x1b[48;2;10;20;30m bg\x1b[m\r\n",
	"\x1b[5;20r\x1b[20;1H\n\n\x1b[r",
	"\x1bPq#0;2;0;0;0\x1b\\",
	"\x1b(0lqqk\x1b(B\r\n",
	"\x1b[38:2:1:2:3mcolon\x1b[m",
	"bad \xff utf8 \xe2\x82",
	"\x1b[12\x18cancel\x1b[K\x1b7\x1b8\x1b[?2004h",
	strings.Repeat("x", 5000),
	"\x1b[3;4;5;6;7;8;9;10;11;12;13;14;15;16;17;18;19;20;21;22;23;24;25;26;27;28;29;30;31;32;33;34;35;36m",
}, "")

func TestScanner_ChunkBoundaryIndependence(t *testing.T) {
	whole := scan(streamCorpus)

	single := make([]string, 0, len(streamCorpus))
	for i := range len(streamCorpus) {
		single = append(single, streamCorpus[i:i+1])
	}
	if got := scan(single...); !reflect.DeepEqual(got, whole) {
		t.Fatalf("1-byte chunks differ from a single feed\n got: %v\nwant: %v", got, whole)
	}

	rng := rand.New(rand.NewPCG(1, 2))
	for trial := range 50 {
		var chunks []string
		rest := streamCorpus
		for len(rest) > 0 {
			n := min(1+rng.IntN(64), len(rest))
			chunks = append(chunks, rest[:n])
			rest = rest[n:]
		}
		if got := scan(chunks...); !reflect.DeepEqual(got, whole) {
			t.Fatalf("trial %d: random chunks differ from a single feed", trial)
		}
	}
}

func TestScanner_PartialSequenceIsBuffered(t *testing.T) {
	s := vt.NewScanner()
	for a := range s.Feed([]byte("\x1b[3")) {
		t.Fatalf("unexpected action %v before the sequence completed", a)
	}
	if !s.Pending() {
		t.Error("expected scanner to report pending state")
	}
	var got []vt.Action
	for a := range s.Feed([]byte("1m")) {
		got = append(got, a)
	}
	if len(got) != 1 || got[0].String() != "SetAttributes(31)" {
		t.Errorf("expected SetAttributes(31), got %v", got)
	}
	if s.Pending() {
		t.Error("expected scanner to be idle")
	}
}

func TestScanner_EarlyBreakKeepsRemainder(t *testing.T) {
	s := vt.NewScanner()
	var first []vt.Action
	for a := range s.Feed([]byte("ab\r\ncd\r")) {
		first = append(first, a)
		break
	}
	if len(first) != 1 || first[0].String() != `Print("ab")` {
		t.Fatalf("expected first action Print(\"ab\"), got %v", first)
	}

	var rest []vt.Action
	for a := range s.Flush() {
		rest = append(rest, a)
	}
	want := []string{"CarriageReturn", "LineFeed", `Print("cd")`, "CarriageReturn"}
	if got := names(rest); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestScanner_Reset(t *testing.T) {
	s := vt.NewScanner()
	for range s.Feed([]byte("abc\x1b[12")) {
	}
	s.Reset()
	if s.Pending() {
		t.Fatal("expected Reset to clear pending state")
	}
	var got []vt.Action
	for a := range s.Feed([]byte("m")) {
		got = append(got, a)
	}
	for a := range s.Flush() {
		got = append(got, a)
	}
	if len(got) != 1 || got[0].String() != `Print("m")` {
		t.Errorf("expected plain text after Reset, got %v", got)
	}
}
