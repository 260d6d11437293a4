package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gaurav-Gosain/emuterm/internal/config"
	"github.com/Gaurav-Gosain/emuterm/internal/input"
	"github.com/Gaurav-Gosain/emuterm/internal/logging"
	"github.com/Gaurav-Gosain/emuterm/internal/terminal"
	"github.com/Gaurav-Gosain/emuterm/internal/vt"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	// frameInterval caps the redraw rate of the host terminal.
	frameInterval = time.Second / 60
	// titleInterval is how often the foreground process is polled for
	// the host window title.
	titleInterval = time.Second
)

type runOptions struct {
	shell      string
	dir        string
	rows, cols int
	scrollback int
}

func (o *runOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.shell, "shell", "", "Shell to run (default: from config or $SHELL)")
	cmd.Flags().StringVar(&o.dir, "dir", "", "Working directory for the shell")
	cmd.Flags().IntVar(&o.rows, "rows", 0, "Screen rows (default: host terminal height)")
	cmd.Flags().IntVar(&o.cols, "cols", 0, "Screen columns (default: host terminal width)")
	cmd.Flags().IntVar(&o.scrollback, "scrollback", 0, "Scrollback capacity in rows")
}

// loadConfig loads --config, or the user configuration.
func loadConfig() (*config.Config, string, error) {
	if configPath != "" {
		cfg, err := config.Load(configPath)
		return cfg, configPath, err
	}
	path, err := config.GetConfigPath()
	if err != nil {
		return nil, "", fmt.Errorf("could not determine config path: %w", err)
	}
	cfg, err := config.LoadUserConfig()
	return cfg, path, err
}

// newLogger builds the root logger from cfg and the global flags.
func newLogger(cfg *config.Config) (*log.Logger, io.Closer, error) {
	opts := cfg.LogOptions()
	if logFile != "" {
		opts.File = logFile
		opts.Timestamps = true
	}
	if debugMode {
		opts.Level = "debug"
	}
	return logging.New(opts)
}

func runAttach(ctx context.Context, opts runOptions, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	overrides := config.Overrides{
		Shell:      opts.shell,
		Dir:        opts.dir,
		Rows:       opts.rows,
		Cols:       opts.cols,
		Scrollback: opts.scrollback,
	}
	if len(args) > 0 {
		overrides.Shell, overrides.Args = args[0], args[1:]
	}
	config.ApplyOverrides(overrides, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	if interactive && cfg.Log.File == "" && logFile == "" {
		// stderr shares the screen we are drawing on
		logger = logging.Discard()
	}

	renderOpts, err := cfg.RenderOptions()
	if err != nil {
		return err
	}

	rows, cols, err := input.TerminalSize(os.Stdout)
	if err != nil {
		rows, cols = 24, 80
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	t, err := terminal.New(ctx, cfg.TerminalConfig(rows, cols), terminal.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to start shell: %w", err)
	}
	logger.Info("attached", "config", path, "rows", rows, "cols", cols)

	reader := input.NewRawInputReader(os.Stdin, 0)
	if err := reader.Start(); err != nil {
		_ = t.Terminate(context.Background())
		return err
	}

	if interactive {
		_, _ = io.WriteString(os.Stdout, ansi.SetModeAltScreenSaveCursor+ansi.EraseEntireScreen)
	}

	go forwardInput(t, reader, logger)
	go watchConfig(ctx, path, overrides, t, logger)
	if cfg.Terminal.Rows == 0 && cfg.Terminal.Cols == 0 {
		go followHostSize(ctx, t, logger)
	}

	renderLoop(ctx, t, reader, renderOpts, logger)

	termCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = t.Terminate(termCtx)
	_ = reader.Stop()

	if interactive {
		_ = terminal.ResetTerminal(os.Stdout)
	}

	st, err := t.Wait()
	if err != nil {
		return err
	}
	logger.Info("detached", "status", st)
	if !st.Success() && st.Signal == nil {
		return fmt.Errorf("shell exited: %s", st)
	}
	return nil
}

// forwardInput copies host input to the shell until the input closes.
func forwardInput(t *terminal.Terminal, reader *input.RawInputReader, logger *log.Logger) {
	for chunk := range reader.ReadBytes() {
		if _, err := t.Write(chunk); err != nil {
			logger.Debug("input dropped", "err", err)
			return
		}
	}
	if err := reader.Err(); err != nil {
		logger.Warn("input closed", "err", err)
	}
}

// followHostSize resizes the terminal whenever the host terminal changes.
func followHostSize(ctx context.Context, t *terminal.Terminal, logger *log.Logger) {
	for range resizeEvents(ctx) {
		rows, cols, err := input.TerminalSize(os.Stdout)
		if err != nil {
			continue
		}
		snap := t.Snapshot()
		if snap.Rows == rows && snap.Cols == cols {
			continue
		}
		if err := t.Resize(rows, cols); err != nil {
			logger.Debug("resize failed", "err", err)
		}
	}
}

// watchConfig applies scrollback changes from the configuration file.
// Command line overrides keep winning over the reloaded file.
func watchConfig(ctx context.Context, path string, overrides config.Overrides, t *terminal.Terminal, logger *log.Logger) {
	err := config.Watch(ctx, path, func(cfg *config.Config, err error) {
		if err != nil {
			logger.Warn("config reload failed", "err", err)
			return
		}
		scrollback := reloadedScrollback(cfg, overrides)
		logger.Info("config reloaded", "scrollback", scrollback)
		t.SetScrollback(scrollback)
	})
	if err != nil {
		logger.Debug("config watch disabled", "err", err)
	}
}

// reloadedScrollback returns the scrollback limit a reloaded cfg resolves to
// once the command line overrides are applied again.
func reloadedScrollback(cfg *config.Config, overrides config.Overrides) int {
	config.ApplyOverrides(overrides, cfg)
	return cfg.Terminal.Scrollback
}

// renderLoop draws snapshots until the shell exits, the user detaches, or
// ctx is cancelled.
func renderLoop(ctx context.Context, t *terminal.Terminal, reader *input.RawInputReader, opts terminal.RenderOptions, logger *log.Logger) {
	changed := t.Subscribe()
	defer t.Unsubscribe(changed)

	frame := time.NewTicker(frameInterval)
	defer frame.Stop()
	titleTick := time.NewTicker(titleInterval)
	defer titleTick.Stop()

	var (
		dirty   = true
		lastSeq uint64
		title   string
		prev    *vt.Snapshot
	)
	draw := func() {
		snap := t.Snapshot()
		if snap.Seq == lastSeq {
			return
		}
		lastSeq = snap.Seq
		if err := terminal.SyncHostModes(os.Stdout, prev, snap); err != nil {
			logger.Debug("mode sync failed", "err", err)
		}
		prev = snap
		if err := terminal.Render(os.Stdout, snap, opts); err != nil {
			logger.Debug("render failed", "err", err)
		}
		if snap.Title != "" && snap.Title != title {
			title = snap.Title
			_, _ = io.WriteString(os.Stdout, ansi.SetWindowTitle(title))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-reader.Detached():
			logger.Debug("detach requested")
			return
		case <-t.Done():
			draw()
			return
		case <-changed:
			dirty = true
		case <-frame.C:
			if dirty {
				draw()
				dirty = false
			}
		case <-titleTick.C:
			if t.Title() != "" {
				continue
			}
			fg, err := t.ForegroundProcess(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Debug("foreground process unavailable", "err", err)
				}
				continue
			}
			if fg.Name != title {
				title = fg.Name
				_, _ = io.WriteString(os.Stdout, ansi.SetWindowTitle(title))
			}
		}
	}
}
