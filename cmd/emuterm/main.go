// Package main implements emuterm, a terminal emulator core that runs a
// shell on a pseudo-terminal and maintains its screen.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

// Global flags
var (
	debugMode  bool
	logFile    string
	configPath string
)

func main() {
	var runOpts runOptions

	rootCmd := &cobra.Command{
		Use:   "emuterm",
		Short: "Terminal emulator core",
		Long: `emuterm - terminal emulator core

Runs a shell on a pseudo-terminal, interprets its output into a screen
buffer with scrollback, and draws that screen on the host terminal.`,
		Example: `  # Attach to your shell
  emuterm

  # Run a specific program at a fixed size
  emuterm run --rows 24 --cols 80 -- htop

  # Render a captured byte stream
  emuterm replay session.raw --cols 120

  # Show the scanner's view of a capture
  emuterm scan session.raw`,
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAttach(cmd.Context(), runOpts, args)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to file")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default: $XDG_CONFIG_HOME/emuterm/config.toml)")
	runOpts.bind(rootCmd)

	runCmd := &cobra.Command{
		Use:   "run [-- program [args...]]",
		Short: "Attach the host terminal to a shell",
		Long: `Attach the host terminal to a shell

Press Ctrl+] then d to leave. Ctrl+] twice sends a literal Ctrl+].`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAttach(cmd.Context(), runOpts, args)
		},
	}
	runOpts.bind(runCmd)

	rootCmd.AddCommand(runCmd, newReplayCmd(), newScanCmd(), newConfigCmd())

	// Execute with fang
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(fmt.Sprintf("%s\nCommit: %s\nBuilt: %s\nBy: %s", version, commit, date, builtBy)),
	); err != nil {
		os.Exit(1)
	}
}
