// Package theme resolves named color themes into the palette used to draw
// a screen on the host terminal.
package theme

import (
	"errors"
	"fmt"
	"image/color"
	"sync"

	"github.com/charmbracelet/x/ansi"
	tint "github.com/lrstanley/bubbletint/v2"
	"github.com/lucasb-eyer/go-colorful"
)

// ErrUnknown is returned for theme names the registry does not know.
var ErrUnknown = errors.New("unknown theme")

// Palette holds the default colors and the 16 ANSI colors of a theme.
type Palette struct {
	Fg, Bg color.Color
	Cursor color.Color
	ANSI   [16]color.Color
}

var (
	registryMu   sync.Mutex
	registryOnce sync.Once
)

// Lookup returns the palette of the theme with the given id.
func Lookup(id string) (*Palette, error) {
	registryMu.Lock()
	defer registryMu.Unlock()

	registryOnce.Do(func() {
		tint.NewDefaultRegistry()
	})
	if !tint.SetTintID(id) {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, id)
	}
	t := tint.Current()
	if t == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, id)
	}
	return &Palette{
		Fg:     t.Fg,
		Bg:     t.Bg,
		Cursor: t.Cursor,
		ANSI: [16]color.Color{
			t.Black,        // 0
			t.Red,          // 1
			t.Green,        // 2
			t.Yellow,       // 3
			t.Blue,         // 4
			t.Purple,       // 5
			t.Cyan,         // 6
			t.White,        // 7
			t.BrightBlack,  // 8
			t.BrightRed,    // 9
			t.BrightGreen,  // 10
			t.BrightYellow, // 11
			t.BrightBlue,   // 12
			t.BrightPurple, // 13
			t.BrightCyan,   // 14
			t.BrightWhite,  // 15
		},
	}, nil
}

// Default returns the xterm palette.
func Default() *Palette {
	return &Palette{
		Fg:     mustHex("#e5e5e5"),
		Bg:     mustHex("#000000"),
		Cursor: mustHex("#00ff00"),
		ANSI: [16]color.Color{
			mustHex("#000000"), mustHex("#cd0000"), mustHex("#00cd00"), mustHex("#cdcd00"),
			mustHex("#0000ee"), mustHex("#cd00cd"), mustHex("#00cdcd"), mustHex("#e5e5e5"),
			mustHex("#7f7f7f"), mustHex("#ff0000"), mustHex("#00ff00"), mustHex("#ffff00"),
			mustHex("#5c5cff"), mustHex("#ff00ff"), mustHex("#00ffff"), mustHex("#ffffff"),
		},
	}
}

// Map replaces the 16 ANSI colors, in basic or indexed form, with the
// palette's. Other colors pass through.
func (p *Palette) Map(c color.Color) color.Color {
	if p == nil {
		return c
	}
	switch v := c.(type) {
	case ansi.BasicColor:
		if int(v) < len(p.ANSI) && p.ANSI[v] != nil {
			return p.ANSI[v]
		}
	case ansi.IndexedColor:
		if int(v) < len(p.ANSI) && p.ANSI[v] != nil {
			return p.ANSI[v]
		}
	}
	return c
}

func mustHex(s string) color.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}
