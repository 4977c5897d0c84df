package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/holon-run/ltdi/pkg/config"
	ltdilog "github.com/holon-run/ltdi/pkg/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	logFile    string
)

// cfg is loaded once by the root command before any subcommand runs.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "ltdi",
	Short: "Show small dialogs from scripts and long-running programs",
	Long: `ltdi shows message windows, button choices, text input forms and file
pickers. Every dialog runs in its own worker process, so the caller never
has to own a GUI event loop.

Results are printed on standard output. A dialog the user closes exits
with status 1.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := loaded.ApplyEnv(os.Getenv); err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			level, err := ltdilog.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			loaded.LogLevel = string(level)
		}
		cfg = loaded

		logCfg := ltdilog.DefaultConfig()
		logCfg.Level = ltdilog.LogLevel(cfg.LogLevel)
		logCfg.File = logFile
		if err := ltdilog.Init(logCfg); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = ltdilog.Sync()
	},
}

// exitError ends the process with Code after printing nothing further.
type exitError struct {
	Code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// errCancelled is returned by dialog commands the user dismissed.
var errCancelled = &exitError{Code: 1}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: $XDG_CONFIG_HOME/ltdi/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "progress", "Log level: debug, info, progress, minimal, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of standard error")
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return 2
}
