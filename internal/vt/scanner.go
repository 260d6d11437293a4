package vt

import (
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
)

const (
	// MaxParams is the number of CSI parameters kept. Further parameters are
	// accepted and ignored.
	MaxParams = 32
	// MaxParamValue caps a single numeric parameter.
	MaxParamValue = 65535
	// MaxSequenceBytes caps the raw bytes (and OSC payload) retained for one
	// sequence. Longer sequences are still consumed to their terminator.
	MaxSequenceBytes = 4096
	// maxTextRun is the number of bytes buffered in one Print action.
	maxTextRun = 4096

	maxIntermediates = 4

	missingParam = -1
)

type scanState uint8

const (
	stateGround scanState = iota
	stateEscape
	stateEscapeIntermediate
	stateCsiEntry
	stateCsiParam
	stateCsiIntermediate
	stateCsiIgnore
	stateOscString
	stateOscEscape
	stateDcsPassthrough
	stateDcsEscape
)

var stateNames = [...]string{
	stateGround:             "Ground",
	stateEscape:             "Escape",
	stateEscapeIntermediate: "EscapeIntermediate",
	stateCsiEntry:           "CsiEntry",
	stateCsiParam:           "CsiParam",
	stateCsiIntermediate:    "CsiIntermediate",
	stateCsiIgnore:          "CsiIgnore",
	stateOscString:          "OscString",
	stateOscEscape:          "OscEscape",
	stateDcsPassthrough:     "DcsPassthrough",
	stateDcsEscape:          "DcsEscape",
}

func (s scanState) String() string { return stateNames[s] }

// Scanner is the byte level lexer that turns terminal output into [Action]s.
//
// A Scanner carries partial sequences between calls, so the same stream split
// at arbitrary boundaries produces the same actions. Printable text is held
// back until a non-text byte arrives or [Scanner.Flush] is called, which
// makes the emitted Print runs independent of how the input was chunked.
//
// A Scanner is not safe for concurrent use.
type Scanner struct {
	state scanState

	// input not yet consumed by an iterator
	queue []byte
	qpos  int
	// actions produced but not yet yielded
	out []Action

	// raw bytes of the sequence being scanned, capped at MaxSequenceBytes
	seq []byte

	params    []int
	cur       int
	haveParam bool
	sawSep    bool
	marker    byte
	inter     []byte
	payload   []byte

	text strings.Builder

	utf8Buf  [utf8.UTFMax]byte
	utf8Len  int
	utf8Need int
}

// NewScanner returns a scanner in the ground state.
func NewScanner() *Scanner {
	return &Scanner{
		params:  make([]int, 0, MaxParams),
		seq:     make([]byte, 0, 64),
		inter:   make([]byte, 0, maxIntermediates),
		payload: make([]byte, 0, 256),
	}
}

// Feed queues p and returns a lazy sequence of the actions it completes.
// Bytes are consumed as the sequence is iterated; stopping early leaves the
// remainder queued for the next Feed or Flush.
func (s *Scanner) Feed(p []byte) iter.Seq[Action] {
	if s.qpos > 0 {
		n := copy(s.queue, s.queue[s.qpos:])
		s.queue = s.queue[:n]
		s.qpos = 0
	}
	s.queue = append(s.queue, p...)
	return s.drain(false)
}

// Flush consumes any queued input and emits the pending text run. Incomplete
// escape sequences and partial UTF-8 runes stay buffered.
func (s *Scanner) Flush() iter.Seq[Action] {
	return s.drain(true)
}

// Pending reports whether the scanner holds unconsumed input, buffered text,
// or a partial sequence.
func (s *Scanner) Pending() bool {
	return s.qpos < len(s.queue) || len(s.out) > 0 || s.text.Len() > 0 ||
		s.utf8Need > 0 || s.state != stateGround
}

// Reset discards all buffered state and returns to the ground state.
func (s *Scanner) Reset() {
	s.state = stateGround
	s.queue = s.queue[:0]
	s.qpos = 0
	s.out = s.out[:0]
	s.text.Reset()
	s.utf8Len, s.utf8Need = 0, 0
	s.clearSequence()
}

func (s *Scanner) drain(flush bool) iter.Seq[Action] {
	return func(yield func(Action) bool) {
		for {
			for len(s.out) > 0 {
				a := s.out[0]
				s.out = s.out[1:]
				if !yield(a) {
					return
				}
			}
			if s.qpos < len(s.queue) {
				b := s.queue[s.qpos]
				s.qpos++
				s.advance(b)
				continue
			}
			s.queue = s.queue[:0]
			s.qpos = 0
			if flush && s.text.Len() > 0 {
				s.flushText()
				continue
			}
			return
		}
	}
}

func (s *Scanner) emit(a Action) {
	s.flushText()
	s.out = append(s.out, a)
}

func (s *Scanner) flushText() {
	if s.text.Len() == 0 {
		return
	}
	s.out = append(s.out, Action{Kind: ActionPrint, Text: s.text.String()})
	s.text.Reset()
}

func (s *Scanner) addRune(r rune) {
	s.text.WriteRune(r)
	if s.text.Len() >= maxTextRun {
		s.flushText()
	}
}

func (s *Scanner) record(b byte) {
	if len(s.seq) < MaxSequenceBytes {
		s.seq = append(s.seq, b)
	}
}

func (s *Scanner) clearSequence() {
	s.seq = s.seq[:0]
	s.params = s.params[:0]
	s.cur = 0
	s.haveParam = false
	s.sawSep = false
	s.marker = 0
	s.inter = s.inter[:0]
	s.payload = s.payload[:0]
}

func (s *Scanner) enter(st scanState) {
	s.state = st
}

// abort reports the sequence scanned so far as unsupported and returns to the
// ground state.
func (s *Scanner) abort() {
	s.emit(unsupported(s.seq))
	s.clearSequence()
	s.state = stateGround
}

func (s *Scanner) advance(b byte) {
	switch s.state {
	case stateGround:
		s.ground(b)
	case stateEscape:
		s.escape(b)
	case stateEscapeIntermediate:
		s.escapeIntermediate(b)
	case stateCsiEntry, stateCsiParam, stateCsiIntermediate, stateCsiIgnore:
		s.csi(b)
	case stateOscString:
		s.osc(b)
	case stateOscEscape:
		s.oscEscape(b)
	case stateDcsPassthrough:
		s.dcs(b)
	case stateDcsEscape:
		s.dcsEscape(b)
	}
}

func (s *Scanner) ground(b byte) {
	if s.utf8Need > 0 {
		if b >= 0x80 && b <= 0xBF {
			s.utf8Buf[s.utf8Len] = b
			s.utf8Len++
			if s.utf8Len == s.utf8Need {
				r, _ := utf8.DecodeRune(s.utf8Buf[:s.utf8Len])
				s.utf8Len, s.utf8Need = 0, 0
				s.addRune(r)
			}
			return
		}
		// Truncated rune: replace it and handle b on its own.
		s.utf8Len, s.utf8Need = 0, 0
		s.addRune(utf8.RuneError)
	}

	switch {
	case b >= ansi.SP && b < ansi.DEL:
		s.addRune(rune(b))
	case b == ansi.ESC:
		s.flushText()
		s.clearSequence()
		s.record(b)
		s.enter(stateEscape)
	case b < ansi.SP:
		s.execute(b)
	case b == ansi.DEL:
		// ignored
	case b >= 0xC2 && b <= 0xDF:
		s.startRune(b, 2)
	case b >= 0xE0 && b <= 0xEF:
		s.startRune(b, 3)
	case b >= 0xF0 && b <= 0xF4:
		s.startRune(b, 4)
	default:
		// stray continuation or invalid lead byte
		s.addRune(utf8.RuneError)
	}
}

func (s *Scanner) startRune(b byte, need int) {
	s.utf8Buf[0] = b
	s.utf8Len = 1
	s.utf8Need = need
}

// execute handles a C0 control byte. ESC, CAN and SUB are handled by the
// callers because their meaning depends on the state.
func (s *Scanner) execute(b byte) {
	switch b {
	case ansi.NUL:
	case ansi.BEL:
		s.emit(Action{Kind: ActionBell})
	case ansi.BS:
		s.emit(Action{Kind: ActionBackspace})
	case ansi.HT:
		s.emit(Action{Kind: ActionTab})
	case ansi.LF, ansi.VT, ansi.FF:
		s.emit(Action{Kind: ActionLineFeed})
	case ansi.CR:
		s.emit(Action{Kind: ActionCarriageReturn})
	case ansi.SO:
		s.emit(Action{Kind: ActionShiftOut})
	case ansi.SI:
		s.emit(Action{Kind: ActionShiftIn})
	case ansi.CAN, ansi.SUB:
	default:
		s.emit(unsupported([]byte{b}))
	}
}

// interrupt handles bytes that cut a sequence short. It reports whether b was
// consumed.
func (s *Scanner) interrupt(b byte) bool {
	switch {
	case b == ansi.CAN || b == ansi.SUB:
		s.abort()
		return true
	case b == ansi.ESC:
		s.abort()
		s.record(b)
		s.enter(stateEscape)
		return true
	case b < ansi.SP:
		s.execute(b)
		return true
	case b == ansi.DEL:
		return true
	case b >= 0x80:
		s.abort()
		s.ground(b)
		return true
	}
	return false
}

func (s *Scanner) escape(b byte) {
	if s.interrupt(b) {
		return
	}
	s.record(b)

	switch {
	case b == '[':
		s.enter(stateCsiEntry)
		return
	case b == ']':
		s.enter(stateOscString)
		return
	case b == 'P', b == 'X', b == '^', b == '_':
		// DCS, SOS, PM and APC strings are consumed and reported unsupported.
		s.enter(stateDcsPassthrough)
		return
	case b >= 0x20 && b <= 0x2F:
		s.inter = append(s.inter, b)
		s.enter(stateEscapeIntermediate)
		return
	}

	var a Action
	switch b {
	case '7':
		a = Action{Kind: ActionSaveCursor}
	case '8':
		a = Action{Kind: ActionRestoreCursor}
	case 'D':
		a = Action{Kind: ActionIndex}
	case 'E':
		a = Action{Kind: ActionNextLine}
	case 'M':
		a = Action{Kind: ActionReverseIndex}
	case 'c':
		a = Action{Kind: ActionFullReset}
	default:
		a = unsupported(s.seq)
	}
	s.emit(a)
	s.clearSequence()
	s.state = stateGround
}

func (s *Scanner) escapeIntermediate(b byte) {
	if s.interrupt(b) {
		return
	}
	s.record(b)
	if b >= 0x20 && b <= 0x2F {
		if len(s.inter) < maxIntermediates {
			s.inter = append(s.inter, b)
		}
		return
	}

	a := unsupported(s.seq)
	if len(s.inter) == 1 && (s.inter[0] == '(' || s.inter[0] == ')') {
		slot := 0
		if s.inter[0] == ')' {
			slot = 1
		}
		switch b {
		case 'B':
			a = Action{Kind: ActionDesignateCharset, Slot: slot, Charset: CharsetASCII}
		case 'A':
			a = Action{Kind: ActionDesignateCharset, Slot: slot, Charset: CharsetUK}
		case '0':
			a = Action{Kind: ActionDesignateCharset, Slot: slot, Charset: CharsetDECSpecial}
		}
	}
	s.emit(a)
	s.clearSequence()
	s.state = stateGround
}

func (s *Scanner) csi(b byte) {
	if s.interrupt(b) {
		return
	}
	s.record(b)

	if b >= 0x40 && b <= 0x7E {
		if s.state == stateCsiIgnore {
			s.abort()
			return
		}
		s.endParam()
		s.emit(s.dispatchCsi(b))
		s.clearSequence()
		s.state = stateGround
		return
	}

	switch s.state {
	case stateCsiIgnore:
		return
	case stateCsiEntry:
		if b >= 0x3C && b <= 0x3F {
			s.marker = b
			s.enter(stateCsiParam)
			return
		}
		s.enter(stateCsiParam)
	case stateCsiIntermediate:
		if b >= 0x20 && b <= 0x2F {
			if len(s.inter) < cap(s.inter) {
				s.inter = append(s.inter, b)
			}
			return
		}
		s.enter(stateCsiIgnore)
		return
	}

	// stateCsiParam
	switch {
	case b >= '0' && b <= '9':
		s.haveParam = true
		s.cur = min(s.cur*10+int(b-'0'), MaxParamValue)
	case b == ';':
		s.pushParam()
		s.sawSep = true
	case b >= 0x20 && b <= 0x2F:
		s.endParam()
		s.inter = append(s.inter, b)
		s.enter(stateCsiIntermediate)
	default:
		// ':' sub-parameters, misplaced private markers
		s.enter(stateCsiIgnore)
	}
}

// endParam closes the last parameter. "CSI 5;H" has an empty second
// parameter while "CSI H" has none.
func (s *Scanner) endParam() {
	if s.haveParam || s.sawSep {
		s.pushParam()
	}
}

func (s *Scanner) pushParam() {
	v := missingParam
	if s.haveParam {
		v = s.cur
	}
	if len(s.params) < MaxParams {
		s.params = append(s.params, v)
	}
	s.haveParam = false
	s.cur = 0
}

func (s *Scanner) param(i, def int) int {
	if i >= len(s.params) || s.params[i] == missingParam {
		return def
	}
	return s.params[i]
}

// count returns parameter i as a repeat count: absent or zero means one.
func (s *Scanner) count(i int) int {
	n := s.param(i, 1)
	if n < 1 {
		return 1
	}
	return n
}

func (s *Scanner) dispatchCsi(final byte) Action {
	if len(s.inter) > 0 {
		return unsupported(s.seq)
	}

	if s.marker == '?' {
		if final != 'h' && final != 'l' || len(s.params) == 0 {
			return unsupported(s.seq)
		}
		modes := make([]int, 0, len(s.params))
		for _, m := range s.params {
			switch m {
			case ModeAutowrap, ModeCursorBlink, ModeCursorVisible, ModeBracketedPaste:
				modes = append(modes, m)
			default:
				return unsupported(s.seq)
			}
		}
		return Action{Kind: ActionSetMode, Params: modes, Set: final == 'h'}
	}
	if s.marker != 0 {
		return unsupported(s.seq)
	}

	switch final {
	case 'A':
		return Action{Kind: ActionCursorMove, Dir: DirUp, Count: s.count(0)}
	case 'B', 'e':
		return Action{Kind: ActionCursorMove, Dir: DirDown, Count: s.count(0)}
	case 'C', 'a':
		return Action{Kind: ActionCursorMove, Dir: DirForward, Count: s.count(0)}
	case 'D':
		return Action{Kind: ActionCursorMove, Dir: DirBackward, Count: s.count(0)}
	case 'E':
		return Action{Kind: ActionCursorMove, Dir: DirNextLine, Count: s.count(0)}
	case 'F':
		return Action{Kind: ActionCursorMove, Dir: DirPrevLine, Count: s.count(0)}
	case 'G', '`':
		return Action{Kind: ActionCursorColumn, Col: s.count(0) - 1}
	case 'd':
		return Action{Kind: ActionCursorRow, Row: s.count(0) - 1}
	case 'H', 'f':
		return Action{Kind: ActionCursorPosition, Row: s.count(0) - 1, Col: s.count(1) - 1}
	case 'J':
		mode := s.param(0, EraseToEnd)
		if mode > EraseScrollback {
			return unsupported(s.seq)
		}
		return Action{Kind: ActionEraseInDisplay, Mode: mode}
	case 'K':
		mode := s.param(0, EraseToEnd)
		if mode > EraseAll {
			return unsupported(s.seq)
		}
		return Action{Kind: ActionEraseInLine, Mode: mode}
	case 'X':
		return Action{Kind: ActionEraseChars, Count: s.count(0)}
	case '@':
		return Action{Kind: ActionInsertChars, Count: s.count(0)}
	case 'P':
		return Action{Kind: ActionDeleteChars, Count: s.count(0)}
	case 'L':
		return Action{Kind: ActionInsertLines, Count: s.count(0)}
	case 'M':
		return Action{Kind: ActionDeleteLines, Count: s.count(0)}
	case 'S':
		return Action{Kind: ActionScrollUp, Count: s.count(0)}
	case 'T':
		return Action{Kind: ActionScrollDown, Count: s.count(0)}
	case 'm':
		params := make([]int, len(s.params))
		for i, p := range s.params {
			if p == missingParam {
				p = 0
			}
			params[i] = p
		}
		return Action{Kind: ActionSetAttributes, Params: params}
	case 'r':
		bottom := s.param(1, 0) - 1
		if bottom < 0 {
			bottom = -1
		}
		return Action{Kind: ActionSetScrollRegion, Top: s.count(0) - 1, Bottom: bottom}
	case 's':
		if len(s.params) == 0 {
			return Action{Kind: ActionSaveCursor}
		}
	case 'u':
		if len(s.params) == 0 {
			return Action{Kind: ActionRestoreCursor}
		}
	}
	return unsupported(s.seq)
}

func (s *Scanner) osc(b byte) {
	switch {
	case b == ansi.BEL:
		s.dispatchOsc()
		return
	case b == ansi.ESC:
		s.enter(stateOscEscape)
		return
	case b == ansi.CAN || b == ansi.SUB:
		s.abort()
		return
	case b < ansi.SP:
		// other controls are ignored inside strings
		return
	}
	s.record(b)
	if len(s.payload) < MaxSequenceBytes {
		s.payload = append(s.payload, b)
	}
}

func (s *Scanner) oscEscape(b byte) {
	if b == '\\' {
		s.record(ansi.ESC)
		s.record(b)
		s.dispatchOsc()
		return
	}
	// ESC that is not a string terminator: the OSC is abandoned and the
	// escape starts a new sequence.
	s.abort()
	s.record(ansi.ESC)
	s.enter(stateEscape)
	s.escape(b)
}

func (s *Scanner) dispatchOsc() {
	a := unsupported(s.seq)
	cmd, text, ok := strings.Cut(string(s.payload), ";")
	if ok {
		switch cmd {
		case "0", "1", "2":
			a = Action{Kind: ActionSetTitle, Text: strings.ToValidUTF8(text, string(utf8.RuneError))}
		}
	}
	s.emit(a)
	s.clearSequence()
	s.state = stateGround
}

func (s *Scanner) dcs(b byte) {
	switch b {
	case ansi.ESC:
		s.enter(stateDcsEscape)
	case ansi.CAN, ansi.SUB:
		s.abort()
	default:
		s.record(b)
	}
}

func (s *Scanner) dcsEscape(b byte) {
	if b == '\\' {
		s.record(ansi.ESC)
		s.record(b)
		s.abort()
		return
	}
	s.abort()
	s.record(ansi.ESC)
	s.enter(stateEscape)
	s.escape(b)
}
