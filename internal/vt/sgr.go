package vt

import (
	"image/color"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/charmbracelet/x/ansi"
)

// applySGR merges Select Graphic Rendition parameters into pen. An empty
// parameter list is a reset. A malformed extended color ends processing of
// the remaining parameters.
func applySGR(params []int, pen *Attrs) {
	if len(params) == 0 {
		*pen = Attrs{}
		return
	}

	ps := ansi.ToParams(params)
	for i := 0; i < len(ps); i++ {
		param, _, _ := ps.Param(i, 0)
		switch param {
		case 0: // Reset
			*pen = Attrs{}
		case 1: // Bold
			pen.Attrs |= uv.AttrBold
		case 2: // Dim/Faint
			pen.Attrs |= uv.AttrFaint
		case 3: // Italic
			pen.Attrs |= uv.AttrItalic
		case 4: // Underline
			pen.Underline = uv.UnderlineSingle
		case 21: // Double underline
			pen.Underline = uv.UnderlineDouble
		case 5: // Slow blink
			pen.Attrs |= uv.AttrBlink
		case 6: // Rapid blink
			pen.Attrs |= uv.AttrRapidBlink
		case 7: // Reverse
			pen.Attrs |= uv.AttrReverse
		case 8: // Conceal
			pen.Attrs |= uv.AttrConceal
		case 9: // Crossed-out
			pen.Attrs |= uv.AttrStrikethrough
		case 22: // Normal intensity
			pen.Attrs &^= uv.AttrBold | uv.AttrFaint
		case 23:
			pen.Attrs &^= uv.AttrItalic
		case 24:
			pen.Underline = uv.UnderlineNone
		case 25:
			pen.Attrs &^= uv.AttrBlink | uv.AttrRapidBlink
		case 27:
			pen.Attrs &^= uv.AttrReverse
		case 28:
			pen.Attrs &^= uv.AttrConceal
		case 29:
			pen.Attrs &^= uv.AttrStrikethrough
		case 30, 31, 32, 33, 34, 35, 36, 37:
			pen.Fg = ansi.BasicColor(param - 30)
		case 38, 48, 58: // Extended foreground, background, underline color
			c, n, ok := readColor(ps[i:])
			if n == 0 {
				return
			}
			i += n - 1
			if !ok {
				continue
			}
			switch param {
			case 38:
				pen.Fg = c
			case 48:
				pen.Bg = c
			case 58:
				pen.UnderlineColor = c
			}
		case 39:
			pen.Fg = nil
		case 40, 41, 42, 43, 44, 45, 46, 47:
			pen.Bg = ansi.BasicColor(param - 40)
		case 49:
			pen.Bg = nil
		case 59:
			pen.UnderlineColor = nil
		case 90, 91, 92, 93, 94, 95, 96, 97: // Bright foreground
			pen.Fg = ansi.BasicColor(param - 90 + 8)
		case 100, 101, 102, 103, 104, 105, 106, 107: // Bright background
			pen.Bg = ansi.BasicColor(param - 100 + 8)
		}
	}
}

// readColor reads an extended color starting at the 38/48/58 selector. It
// returns the number of parameters consumed, zero when the color is
// incomplete, and ok false when a component is out of range.
func readColor(params ansi.Params) (c color.Color, n int, ok bool) {
	n = ansi.ReadStyleColor(params, &c)
	if n == 0 {
		return nil, 0, false
	}
	for _, p := range params[2:min(n, len(params))] {
		if p.Param(0) > 255 {
			return nil, n, false
		}
	}
	if c == color.Transparent {
		c = nil
	}
	return c, n, true
}
