// Package config loads and saves the emuterm configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Gaurav-Gosain/emuterm/internal/logging"
	"github.com/Gaurav-Gosain/emuterm/internal/session"
	"github.com/Gaurav-Gosain/emuterm/internal/terminal"
	"github.com/Gaurav-Gosain/emuterm/internal/theme"
	"github.com/Gaurav-Gosain/emuterm/internal/vt"
	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
)

const (
	// PathEnv overrides the configuration file location.
	PathEnv = "EMUTERM_CONFIG"

	appName        = "emuterm"
	configFileName = "config.toml"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config is the on-disk configuration.
type Config struct {
	Shell    ShellSection    `toml:"shell"`
	Terminal TerminalSection `toml:"terminal"`
	Render   RenderSection   `toml:"render"`
	Log      LogSection      `toml:"log"`
}

// ShellSection configures the process started in the terminal.
type ShellSection struct {
	Program     string   `toml:"program" comment:"Shell to run (empty = $SHELL or the first shell found)"`
	Args        []string `toml:"args" comment:"Arguments passed to the shell"`
	Dir         string   `toml:"dir" comment:"Working directory (empty = current directory)"`
	Env         []string `toml:"env" comment:"Extra KEY=VALUE pairs added to the inherited environment"`
	GracePeriod string   `toml:"grace_period" comment:"Time between SIGHUP and SIGKILL when closing"`
}

// TerminalSection configures the emulated screen.
type TerminalSection struct {
	Rows       int    `toml:"rows" comment:"Screen rows (0 = host terminal size)"`
	Cols       int    `toml:"cols" comment:"Screen columns (0 = host terminal size)"`
	Scrollback int    `toml:"scrollback" comment:"Scrollback capacity in rows"`
	Term       string `toml:"term" comment:"TERM for the shell (empty = detect from the host)"`
	ColorTerm  string `toml:"colorterm" comment:"COLORTERM for the shell, used when term is set"`
}

// RenderSection configures drawing on the host terminal.
type RenderSection struct {
	Foreground string `toml:"foreground" comment:"Default foreground as #rrggbb (empty = host default)"`
	Background string `toml:"background" comment:"Default background as #rrggbb (empty = host default)"`
	Theme      string `toml:"theme" comment:"Color theme id; its colors apply where foreground and background are empty"`
}

// LogSection configures diagnostics.
type LogSection struct {
	Level string `toml:"level" comment:"debug, info, warn or error"`
	File  string `toml:"file" comment:"Log file (empty = stderr)"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Shell: ShellSection{
			GracePeriod: session.DefaultGracePeriod.String(),
		},
		Terminal: TerminalSection{
			Scrollback: vt.DefaultScrollback,
		},
		Render: RenderSection{
			Foreground: "#e5e5e5",
			Background: "#1c1c1c",
		},
		Log: LogSection{
			Level: "info",
		},
	}
}

// GetConfigPath returns the configuration file path: $EMUTERM_CONFIG, or
// config.toml under the XDG config directory.
func GetConfigPath() (string, error) {
	if p := os.Getenv(PathEnv); p != "" {
		return p, nil
	}
	return xdg.ConfigFile(filepath.Join(appName, configFileName))
}

// Load reads path on top of the defaults. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("parsing %s:%d:%d: %w", path, row, col, err)
		}
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadUserConfig loads the user's configuration, writing the defaults to
// disk when no file exists yet.
func LoadUserConfig() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("could not determine config path: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := Save(cfg, path); err != nil {
			log.Debug("could not write default config", "path", path, "err", err)
		}
		return cfg, nil
	}
	return Load(path)
}

// Save writes cfg to path with a short header.
func Save(cfg *Config, path string) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# emuterm configuration\n")
	sb.WriteString("# Location: " + path + "\n\n")
	sb.Write(data)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Overrides holds command line values. Zero values leave the file's value
// in place.
type Overrides struct {
	Shell      string
	Args       []string
	Dir        string
	Rows, Cols int
	Scrollback int
	LogLevel   string
	LogFile    string
}

// ApplyOverrides copies the set fields of o into cfg.
func ApplyOverrides(o Overrides, cfg *Config) {
	if o.Shell != "" {
		cfg.Shell.Program = o.Shell
		cfg.Shell.Args = nil
	}
	if len(o.Args) > 0 {
		cfg.Shell.Args = o.Args
	}
	if o.Dir != "" {
		cfg.Shell.Dir = o.Dir
	}
	if o.Rows > 0 {
		cfg.Terminal.Rows = o.Rows
	}
	if o.Cols > 0 {
		cfg.Terminal.Cols = o.Cols
	}
	if o.Scrollback > 0 {
		cfg.Terminal.Scrollback = o.Scrollback
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.LogFile != "" {
		cfg.Log.File = o.LogFile
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := c.gracePeriod(); err != nil {
		return err
	}
	t := c.Terminal
	if t.Rows < 0 || t.Rows > session.MaxDim || t.Cols < 0 || t.Cols > session.MaxDim {
		return fmt.Errorf("%w: terminal size %dx%d", ErrInvalid, t.Rows, t.Cols)
	}
	if t.Scrollback < 0 {
		return fmt.Errorf("%w: scrollback %d is negative", ErrInvalid, t.Scrollback)
	}
	if _, err := c.RenderOptions(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := log.ParseLevel(strings.ToLower(c.Log.Level)); c.Log.Level != "" && err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.Log.Level)
	}
	for _, kv := range c.Shell.Env {
		if !strings.Contains(kv, "=") {
			return fmt.Errorf("%w: env entry %q is not KEY=VALUE", ErrInvalid, kv)
		}
	}
	return nil
}

func (c *Config) gracePeriod() (time.Duration, error) {
	if c.Shell.GracePeriod == "" {
		return session.DefaultGracePeriod, nil
	}
	d, err := time.ParseDuration(c.Shell.GracePeriod)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: grace_period %q", ErrInvalid, c.Shell.GracePeriod)
	}
	return d, nil
}

// SessionConfig converts the shell settings for session.Spawn. rows and
// cols are used when the file leaves the size unset.
func (c *Config) SessionConfig(rows, cols int) session.Config {
	grace, _ := c.gracePeriod()
	sc := session.Config{
		Shell:       c.Shell.Program,
		Args:        c.Shell.Args,
		Dir:         c.Shell.Dir,
		Rows:        rows,
		Cols:        cols,
		GracePeriod: grace,
	}
	if c.Terminal.Rows > 0 {
		sc.Rows = c.Terminal.Rows
	}
	if c.Terminal.Cols > 0 {
		sc.Cols = c.Terminal.Cols
	}
	if len(c.Shell.Env) > 0 {
		sc.Env = append(os.Environ(), c.Shell.Env...)
	}
	return sc
}

// TerminalConfig returns the controller configuration.
func (c *Config) TerminalConfig(rows, cols int) terminal.Config {
	return terminal.Config{
		Config:     c.SessionConfig(rows, cols),
		Scrollback: c.Terminal.Scrollback,
		Term:       c.Terminal.Term,
		ColorTerm:  c.Terminal.ColorTerm,
	}
}

// RenderOptions parses the render colors and resolves the theme.
func (c *Config) RenderOptions() (terminal.RenderOptions, error) {
	var opts terminal.RenderOptions
	if c.Render.Theme != "" {
		p, err := theme.Lookup(c.Render.Theme)
		if err != nil {
			return opts, err
		}
		opts.Palette = p
		opts.DefaultFg, opts.DefaultBg = p.Fg, p.Bg
	}

	fg, err := terminal.ParseColor(c.Render.Foreground)
	if err != nil {
		return opts, err
	}
	if fg != nil {
		opts.DefaultFg = fg
	}
	bg, err := terminal.ParseColor(c.Render.Background)
	if err != nil {
		return opts, err
	}
	if bg != nil {
		opts.DefaultBg = bg
	}
	return opts, nil
}

// LogOptions returns the logger settings.
func (c *Config) LogOptions() logging.Options {
	return logging.Options{
		Level:      c.Log.Level,
		File:       c.Log.File,
		Prefix:     appName,
		Timestamps: c.Log.File != "",
	}
}
