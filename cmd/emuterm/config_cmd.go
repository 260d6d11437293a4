package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/Gaurav-Gosain/emuterm/internal/config"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage emuterm configuration",
		Long:  `Manage the emuterm configuration file and settings`,
	}

	configPathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	configShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			return showConfig(cmd.OutOrStdout(), cfg)
		},
	}

	configEditCmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit configuration in $EDITOR",
		Long: `Open the emuterm configuration file in your default editor

The editor is determined by checking $EDITOR, $VISUAL, or common editors
like vim, vi, nano, and emacs in that order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return editConfigFile()
		},
	}

	var force bool
	configResetCmd := &cobra.Command{
		Use:     "reset",
		Aliases: []string{"init"},
		Short:   "Reset configuration to defaults",
		Long: `Reset the emuterm configuration file to default settings

This will overwrite your existing configuration after confirmation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return resetConfigToDefaults(cmd.InOrStdin(), cmd.OutOrStdout(), force)
		},
	}
	configResetCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite without asking")

	configCmd.AddCommand(configPathCmd, configShowCmd, configEditCmd, configResetCmd)
	return configCmd
}

func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	path, err := config.GetConfigPath()
	if err != nil {
		return "", fmt.Errorf("could not determine config path: %w", err)
	}
	return path, nil
}

func showConfig(w io.Writer, cfg *config.Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// editConfigFile opens the config file in $EDITOR
func editConfigFile() error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("Config file doesn't exist, creating default at: %s\n", path)
		if err := config.Save(config.DefaultConfig(), path); err != nil {
			return fmt.Errorf("could not create config file: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		for _, e := range []string{"vim", "vi", "nano", "emacs"} {
			if _, err := exec.LookPath(e); err == nil {
				editor = e
				break
			}
		}
	}
	if editor == "" {
		return fmt.Errorf("no editor found. Please set $EDITOR environment variable")
	}

	cmd := exec.Command(editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}

	if _, err := config.Load(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	return nil
}

// resetConfigToDefaults writes the default configuration, asking before it
// overwrites an existing file.
func resetConfigToDefaults(in io.Reader, out io.Writer, force bool) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil && !force {
		fmt.Fprintf(out, "Warning: This will overwrite your existing configuration at:\n")
		fmt.Fprintf(out, "  %s\n\n", path)
		fmt.Fprintf(out, "Are you sure you want to reset to defaults? (yes/no): ")

		response, _ := bufio.NewReader(in).ReadString('\n')
		response = strings.ToLower(strings.TrimSpace(response))
		if response != "yes" && response != "y" {
			fmt.Fprintln(out, "Reset cancelled.")
			return nil
		}
	}

	if err := config.Save(config.DefaultConfig(), path); err != nil {
		return err
	}

	fmt.Fprintf(out, "Configuration reset to defaults\n")
	fmt.Fprintf(out, "  Location: %s\n", path)
	fmt.Fprintln(out, "\nYou can customize it with: emuterm config edit")
	return nil
}
