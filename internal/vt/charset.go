package vt

// decSpecial maps the DEC Special Graphics set onto box drawing runes.
var decSpecial = map[rune]rune{
	'`': '◆', 'a': '▒', 'b': '␉', 'c': '␌', 'd': '␍', 'e': '␊',
	'f': '°', 'g': '±', 'h': '␤', 'i': '␋', 'j': '┘', 'k': '┐',
	'l': '┌', 'm': '└', 'n': '┼', 'o': '⎺', 'p': '⎻', 'q': '─',
	'r': '⎼', 's': '⎽', 't': '├', 'u': '┤', 'v': '┴', 'w': '┬',
	'x': '│', 'y': '≤', 'z': '≥', '{': 'π', '|': '≠', '}': '£',
	'~': '·',
}

// translate maps r through charset cs.
func translate(cs Charset, r rune) rune {
	switch cs {
	case CharsetUK:
		if r == '#' {
			return '£'
		}
	case CharsetDECSpecial:
		if m, ok := decSpecial[r]; ok {
			return m
		}
	}
	return r
}

func (c Charset) String() string {
	switch c {
	case CharsetASCII:
		return "ascii"
	case CharsetUK:
		return "uk"
	case CharsetDECSpecial:
		return "dec-special"
	}
	return "unknown"
}
