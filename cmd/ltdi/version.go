package main

import (
	"fmt"
	"runtime"

	"github.com/holon-run/ltdi/pkg/renderer"
	"github.com/spf13/cobra"
)

// These variables are set via ldflags during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information for the ltdi CLI.

This shows the version number, git commit SHA, build date and the
renderers compiled into this binary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ltdi version %s\n", Version)
		if Commit != "" && Commit != "unknown" {
			fmt.Fprintf(out, "commit: %s\n", Commit)
		}
		if BuildDate != "" && BuildDate != "unknown" {
			fmt.Fprintf(out, "built at: %s\n", BuildDate)
		}
		fmt.Fprintf(out, "platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "renderers: %v\n", renderer.Names())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
