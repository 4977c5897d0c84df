package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/holon-run/ltdi/pkg/preflight"
	"github.com/spf13/cobra"
)

var (
	doctorRequireDisplay  bool
	doctorRequireTerminal bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check whether dialogs can be shown here",
	Long: `Run environment checks: the worker executable, a graphical display, a
controlling terminal, the configured renderer and the state directory.

A missing display or terminal is a warning unless required; any failed
check exits non-zero.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		exe, err := workerExecutable(cfg)
		if err != nil {
			return err
		}
		checker := preflight.NewChecker(preflight.Config{
			Worker:          exe,
			Renderer:        cfg.Renderer,
			StateDir:        cfg.ResolveStateDir(),
			RequireDisplay:  doctorRequireDisplay,
			RequireTerminal: doctorRequireTerminal,
		})

		results := checker.Results(cmd.Context())
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, r := range results {
			fmt.Fprintf(w, "%s\t%s\t%s\n", r.Level, r.Name, r.Message)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		return preflight.Summarize(results)
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorRequireDisplay, "require-display", false, "Fail when no graphical display is available")
	doctorCmd.Flags().BoolVar(&doctorRequireTerminal, "require-terminal", false, "Fail when standard input is not a terminal")
	rootCmd.AddCommand(doctorCmd)
}
