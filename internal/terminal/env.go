package terminal

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/colorprofile"
)

var (
	localEnvOnce   sync.Once
	localTermType  string
	localColorTerm string
)

// TerminalEnv returns TERM and COLORTERM values for shells started by this
// process. Detection runs once.
func TerminalEnv() (termType, colorTerm string) {
	localEnvOnce.Do(func() {
		// colorprofile handles TERM, COLORTERM, NO_COLOR, CLICOLOR, terminfo and tmux
		profile := colorprofile.Detect(os.Stdout, os.Environ())
		localTermType, localColorTerm = profileToEnv(profile, os.Getenv("TERM"))
	})
	return localTermType, localColorTerm
}

// profileToEnv converts a colorprofile.Profile to TERM and COLORTERM values.
// colorTerm may be empty.
func profileToEnv(profile colorprofile.Profile, parentTerm string) (termType, colorTerm string) {
	switch profile {
	case colorprofile.TrueColor:
		// Preserve the parent TERM if it already advertises colors
		if parentTerm != "" && (strings.Contains(parentTerm, "256color") ||
			strings.Contains(parentTerm, "truecolor") ||
			parentTerm == "xterm-direct" ||
			parentTerm == "alacritty" ||
			parentTerm == "kitty" ||
			strings.HasPrefix(parentTerm, "kitty-")) {
			termType = parentTerm
		} else {
			termType = "xterm-256color"
		}
		colorTerm = "truecolor"

	case colorprofile.ANSI256:
		switch {
		case strings.Contains(parentTerm, "256color"):
			termType = parentTerm
		case strings.HasPrefix(parentTerm, "screen"):
			termType = "screen-256color"
		case strings.HasPrefix(parentTerm, "tmux"):
			termType = "tmux-256color"
		default:
			termType = "xterm-256color"
		}

	case colorprofile.ANSI:
		if parentTerm != "" && parentTerm != "dumb" {
			termType = parentTerm
		} else {
			termType = "xterm"
		}

	case colorprofile.Ascii, colorprofile.NoTTY:
		termType = "dumb"

	default:
		termType = "xterm-256color"
	}

	return termType, colorTerm
}

// withTermEnv returns env with TERM and COLORTERM replaced. An empty
// colorTerm removes COLORTERM.
func withTermEnv(env []string, termType, colorTerm string) []string {
	out := make([]string, 0, len(env)+2)
	for _, kv := range env {
		if strings.HasPrefix(kv, "TERM=") || strings.HasPrefix(kv, "COLORTERM=") {
			continue
		}
		out = append(out, kv)
	}
	out = append(out, "TERM="+termType)
	if colorTerm != "" {
		out = append(out, "COLORTERM="+colorTerm)
	}
	return out
}
