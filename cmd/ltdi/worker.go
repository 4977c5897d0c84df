package main

import (
	"fmt"
	"io"

	ltdilog "github.com/holon-run/ltdi/pkg/log"
	"github.com/holon-run/ltdi/pkg/protocol"
	"github.com/holon-run/ltdi/pkg/renderer"
	"github.com/holon-run/ltdi/pkg/router"
	"github.com/holon-run/ltdi/pkg/worker"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:    worker.Subcommand + " PAYLOAD",
	Short:  "Render one dialog and print the encoded reply",
	Hidden: true,
	Long: `Run the worker side of a single dialog. PAYLOAD is the JSON-encoded
request. The reply is written to standard output as one JSON line; message
requests write nothing and return once their flag file is deleted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		r, err := renderer.Select(cfg.Renderer)
		if err != nil {
			ltdilog.Error("no renderer", "renderer", cfg.Renderer, "error", err)
			return writeUnavailable(cmd.OutOrStdout(), args[0], err)
		}

		rt := router.New(r, router.WithFlagInterval(cfg.PollInterval))
		return rt.Serve(ctx, args[0], cmd.OutOrStdout())
	},
}

// writeUnavailable replies missing_dependency when no renderer can be
// built. Message requests never reply.
func writeUnavailable(out io.Writer, payload string, cause error) error {
	if req, err := protocol.DecodeRequest(payload); err == nil && !req.Function.Blocking() {
		return nil
	}
	data, err := protocol.EncodeReply(protocol.Fail(protocol.KindMissingDependency, cause.Error()))
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out, string(data)); err != nil {
		return fmt.Errorf("failed to write reply: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
