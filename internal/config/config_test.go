package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/Gaurav-Gosain/emuterm/internal/config"
	"github.com/Gaurav-Gosain/emuterm/internal/session"
	"github.com/Gaurav-Gosain/emuterm/internal/vt"
)

// =============================================================================
// Defaults
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}
	if cfg.Terminal.Scrollback != vt.DefaultScrollback {
		t.Errorf("Scrollback = %d, want %d", cfg.Terminal.Scrollback, vt.DefaultScrollback)
	}
	if cfg.Shell.GracePeriod != "2s" {
		t.Errorf("GracePeriod = %q, want 2s", cfg.Shell.GracePeriod)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}

	opts, err := cfg.RenderOptions()
	if err != nil {
		t.Fatalf("RenderOptions() error = %v", err)
	}
	if opts.DefaultFg == nil || opts.DefaultBg == nil {
		t.Error("expected default render colors")
	}
}

// =============================================================================
// Load / Save
// =============================================================================

func TestLoadMissingFile(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Terminal.Scrollback != vt.DefaultScrollback {
		t.Errorf("expected defaults, got scrollback %d", cfg.Terminal.Scrollback)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[shell]
program = "/bin/zsh"
args = ["-l"]

[terminal]
scrollback = 500
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Shell.Program != "/bin/zsh" || !slices.Equal(cfg.Shell.Args, []string{"-l"}) {
		t.Errorf("shell = %+v", cfg.Shell)
	}
	if cfg.Terminal.Scrollback != 500 {
		t.Errorf("Scrollback = %d, want 500", cfg.Terminal.Scrollback)
	}
	// Untouched keys keep their defaults
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		invalid bool
	}{
		{"syntax", "[terminal\nrows = 1", false},
		{"type mismatch", "[terminal]\nrows = \"tall\"", false},
		{"negative scrollback", "[terminal]\nscrollback = -1", true},
		{"bad duration", "[shell]\ngrace_period = \"soon\"", true},
		{"bad color", "[render]\nforeground = \"white\"", true},
		{"unknown theme", "[render]\ntheme = \"no-such-theme-exists\"", true},
		{"bad level", "[log]\nlevel = \"loud\"", true},
		{"bad env", "[shell]\nenv = [\"NOEQUALS\"]", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.data), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := config.Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, config.ErrInvalid); got != tt.invalid {
				t.Errorf("errors.Is(ErrInvalid) = %v, want %v (err: %v)", got, tt.invalid, err)
			}
			if !strings.Contains(err.Error(), path) {
				t.Errorf("error %q does not name the file", err)
			}
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := config.DefaultConfig()
	cfg.Shell.Program = "/bin/sh"
	cfg.Terminal.Term = "xterm-256color"

	if err := config.Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# emuterm configuration") {
		t.Errorf("missing header: %q", string(data)[:40])
	}

	loaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Shell.Program != "/bin/sh" || loaded.Terminal.Term != "xterm-256color" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestGetConfigPath(t *testing.T) {
	want := filepath.Join(t.TempDir(), "custom.toml")
	t.Setenv(config.PathEnv, want)

	got, err := config.GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if got != want {
		t.Errorf("GetConfigPath() = %q, want %q", got, want)
	}
}

func TestLoadUserConfigCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emuterm", "config.toml")
	t.Setenv(config.PathEnv, path)

	cfg, err := config.LoadUserConfig()
	if err != nil {
		t.Fatalf("LoadUserConfig() error = %v", err)
	}
	if cfg.Terminal.Scrollback != vt.DefaultScrollback {
		t.Errorf("Scrollback = %d", cfg.Terminal.Scrollback)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("default config not written: %v", err)
	}
}

// =============================================================================
// Conversion
// =============================================================================

func TestApplyOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Shell.Args = []string{"-l"}

	config.ApplyOverrides(config.Overrides{
		Shell:      "/bin/fish",
		Rows:       30,
		Scrollback: 42,
		LogLevel:   "debug",
	}, cfg)

	if cfg.Shell.Program != "/bin/fish" {
		t.Errorf("Program = %q", cfg.Shell.Program)
	}
	// Arguments belong to the replaced shell
	if cfg.Shell.Args != nil {
		t.Errorf("Args = %v, want nil", cfg.Shell.Args)
	}
	if cfg.Terminal.Rows != 30 || cfg.Terminal.Cols != 0 {
		t.Errorf("size = %dx%d", cfg.Terminal.Rows, cfg.Terminal.Cols)
	}
	if cfg.Terminal.Scrollback != 42 || cfg.Log.Level != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}

	// Zero overrides change nothing
	before := *cfg
	config.ApplyOverrides(config.Overrides{}, cfg)
	if cfg.Shell.Program != before.Shell.Program || cfg.Terminal != before.Terminal {
		t.Error("empty overrides modified config")
	}
}

func TestSessionConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Shell.Program = "/bin/sh"
	cfg.Shell.GracePeriod = "500ms"
	cfg.Terminal.Cols = 100

	sc := cfg.SessionConfig(24, 80)
	if sc.Shell != "/bin/sh" || sc.Rows != 24 || sc.Cols != 100 {
		t.Errorf("SessionConfig() = %+v", sc)
	}
	if sc.GracePeriod != 500*time.Millisecond {
		t.Errorf("GracePeriod = %v", sc.GracePeriod)
	}
	if sc.Env != nil {
		t.Error("Env should inherit when no extras are configured")
	}

	cfg.Shell.Env = []string{"EMUTERM_TEST=1"}
	sc = cfg.SessionConfig(24, 80)
	if !slices.Contains(sc.Env, "EMUTERM_TEST=1") {
		t.Errorf("Env missing extra entry: %v", sc.Env)
	}

	tc := cfg.TerminalConfig(24, 80)
	if tc.Scrollback != cfg.Terminal.Scrollback || tc.Shell != "/bin/sh" {
		t.Errorf("TerminalConfig() = %+v", tc)
	}

	cfg.Shell.GracePeriod = ""
	if got := cfg.SessionConfig(1, 1).GracePeriod; got != session.DefaultGracePeriod {
		t.Errorf("empty grace period = %v, want default", got)
	}
}

func TestLogOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Log.File = "/tmp/emuterm.log"
	opts := cfg.LogOptions()
	if opts.Level != "info" || opts.File != "/tmp/emuterm.log" || !opts.Timestamps {
		t.Errorf("LogOptions() = %+v", opts)
	}
}

// =============================================================================
// Watch
// =============================================================================

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := config.Save(config.DefaultConfig(), path); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *config.Config, 8)
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- config.Watch(ctx, path, func(cfg *config.Config, err error) {
			if err == nil {
				reloaded <- cfg
			}
		})
	}()

	// Keep rewriting until the watcher is registered and reports the change
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(300 * time.Millisecond)
	defer tick.Stop()
	data := "[terminal]\nscrollback = 77\n"
	for {
		select {
		case cfg := <-reloaded:
			if cfg.Terminal.Scrollback != 77 {
				continue
			}
			cancel()
			select {
			case err := <-watchErr:
				if err != nil {
					t.Errorf("Watch() error = %v", err)
				}
			case <-time.After(5 * time.Second):
				t.Error("Watch did not return after cancel")
			}
			return
		case <-tick.C:
			if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
				t.Fatal(err)
			}
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}
