package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flagsClear bool

var flagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "List the flag files of open message windows",
	Long: `List the flag files that keep message windows open, one path per line.
Deleting a flag file closes its window; --clear deletes them all.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags, err := openFlags(cfg)
		if err != nil {
			return err
		}
		if flagsClear {
			n, err := flags.Sweep()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "closed %d message window(s)\n", n)
			return nil
		}
		live, err := flags.Live()
		if err != nil {
			return err
		}
		for _, path := range live {
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
		return nil
	},
}

func init() {
	flagsCmd.Flags().BoolVar(&flagsClear, "clear", false, "Delete every flag file, closing all message windows")
	rootCmd.AddCommand(flagsCmd)
}
