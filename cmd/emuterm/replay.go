package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Gaurav-Gosain/emuterm/internal/logging"
	"github.com/Gaurav-Gosain/emuterm/internal/terminal"
	"github.com/Gaurav-Gosain/emuterm/internal/vt"
	"github.com/spf13/cobra"
)

type replayOptions struct {
	rows, cols     int
	scrollback     int
	chunk          int
	ansi           bool
	withScrollback bool
}

func newReplayCmd() *cobra.Command {
	var opts replayOptions
	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Render a captured byte stream",
		Long: `Feed a raw capture of terminal output through the emulator and print
the resulting screen. Use - to read from stdin.`,
		Example: `  # Capture and replay a session
  script -q -c 'ls --color' session.raw
  emuterm replay session.raw --ansi

  # Feed one byte at a time
  emuterm replay session.raw --chunk 1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return replay(cmd.OutOrStdout(), data, opts)
		},
	}
	cmd.Flags().IntVar(&opts.rows, "rows", 24, "Screen rows")
	cmd.Flags().IntVar(&opts.cols, "cols", 80, "Screen columns")
	cmd.Flags().IntVar(&opts.scrollback, "scrollback", vt.DefaultScrollback, "Scrollback capacity in rows")
	cmd.Flags().IntVar(&opts.chunk, "chunk", 0, "Feed the capture in chunks of this many bytes (0 = all at once)")
	cmd.Flags().BoolVar(&opts.ansi, "ansi", false, "Print colors and attributes")
	cmd.Flags().BoolVar(&opts.withScrollback, "with-scrollback", false, "Print scrollback rows before the screen")
	return cmd
}

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan FILE",
		Short: "Print the actions the scanner produces for a capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return scan(cmd.OutOrStdout(), data)
		},
	}
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("reading capture: %w", err)
	}
	return data, nil
}

func replay(w io.Writer, data []byte, opts replayOptions) error {
	if opts.rows < 1 || opts.cols < 1 {
		return fmt.Errorf("invalid size %dx%d", opts.rows, opts.cols)
	}

	emu := vt.NewEmulator(opts.rows, opts.cols, opts.scrollback)
	if debugMode {
		logger, closer, err := logging.New(logging.Options{
			Level:      "debug",
			File:       logFile,
			Prefix:     "emuterm",
			Timestamps: logFile != "",
		})
		if err != nil {
			return err
		}
		defer closer.Close()
		emu.SetLogger(logger)
		defer func() {
			logger.Debug("replay finished", "unsupported", emu.Unsupported())
		}()
	}

	size := opts.chunk
	if size <= 0 {
		size = len(data)
	}
	for len(data) > 0 {
		n := min(size, len(data))
		if _, err := emu.Write(data[:n]); err != nil {
			return err
		}
		data = data[n:]
	}

	if opts.withScrollback {
		for _, line := range emu.Screen().Scrollback().Lines() {
			if _, err := fmt.Fprintln(w, strings.TrimRight(vt.RowText(line), " ")); err != nil {
				return err
			}
		}
	}

	snap := emu.Snapshot()
	if opts.ansi {
		return terminal.RenderText(w, snap)
	}
	text := snap.Text()
	if text == "" {
		return nil
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

func scan(w io.Writer, data []byte) error {
	s := vt.NewScanner()
	for a := range s.Feed(data) {
		if _, err := fmt.Fprintln(w, a); err != nil {
			return err
		}
	}
	for a := range s.Flush() {
		if _, err := fmt.Fprintln(w, a); err != nil {
			return err
		}
	}
	return nil
}
