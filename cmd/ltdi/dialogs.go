package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/holon-run/ltdi/pkg/config"
	"github.com/holon-run/ltdi/pkg/dialog"
	"github.com/holon-run/ltdi/pkg/flagfile"
	ltdilog "github.com/holon-run/ltdi/pkg/log"
	"github.com/holon-run/ltdi/pkg/protocol"
	"github.com/holon-run/ltdi/pkg/wait"
	"github.com/holon-run/ltdi/pkg/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// dialogFlags are the look and placement flags shared by every dialog
// command.
type dialogFlags struct {
	title     string
	icon      string
	iconDock  string
	left      int
	right     int
	top       int
	bottom    int
	minWidth  int
	minHeight int
	noProbe   bool
}

func (f *dialogFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.title, "title", "", "Window title")
	fs.StringVar(&f.icon, "icon", "", "Icon name (alert, clock, cloud, error, find, gear, info, light, lock, question, warning) or image path")
	fs.StringVar(&f.iconDock, "icon-dock", "", "Application icon path; with --icon, both are image paths")
	fs.IntVar(&f.left, "left", 0, "Offset in pixels from the left screen edge")
	fs.IntVar(&f.right, "right", 0, "Offset in pixels from the right screen edge")
	fs.IntVar(&f.top, "top", 0, "Offset in pixels from the top screen edge")
	fs.IntVar(&f.bottom, "bottom", 0, "Offset in pixels from the bottom screen edge")
	fs.IntVar(&f.minWidth, "min-width", 0, "Minimum window width in pixels")
	fs.IntVar(&f.minHeight, "min-height", 0, "Minimum window height in pixels")
	fs.BoolVar(&f.noProbe, "no-probe", false, "Skip the environment check before the first dialog")
}

// options turns the flags that were set into dialog options.
func (f *dialogFlags) options(fs *pflag.FlagSet) []dialog.Option {
	var opts []dialog.Option
	if f.title != "" {
		opts = append(opts, dialog.WithTitle(f.title))
	}
	switch {
	case f.iconDock != "":
		opts = append(opts, dialog.WithIconFiles(f.icon, f.iconDock))
	case f.icon != "":
		opts = append(opts, dialog.WithIcon(f.icon))
	}
	offsets := []struct {
		name string
		val  int
		opt  func(int) dialog.Option
	}{
		{"left", f.left, dialog.Left},
		{"right", f.right, dialog.Right},
		{"top", f.top, dialog.Top},
		{"bottom", f.bottom, dialog.Bottom},
	}
	for _, o := range offsets {
		if fs.Changed(o.name) {
			opts = append(opts, o.opt(o.val))
		}
	}
	if f.minWidth > 0 {
		opts = append(opts, dialog.MinWidth(f.minWidth))
	}
	if f.minHeight > 0 {
		opts = append(opts, dialog.MinHeight(f.minHeight))
	}
	return opts
}

// workerExecutable returns the configured worker, or this binary.
func workerExecutable(c config.Config) (string, error) {
	if c.Worker != "" {
		return c.Worker, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate ltdi executable: %w", err)
	}
	return exe, nil
}

// openFlags opens the state directory, falling back to the working
// directory when it cannot be created.
func openFlags(c config.Config) (*flagfile.Manager, error) {
	dir := c.ResolveStateDir()
	flags, err := flagfile.Open(dir)
	if err == nil {
		return flags, nil
	}
	ltdilog.Warn("cannot use state directory, falling back to the working directory", "dir", dir, "error", err)
	return flagfile.Open(".")
}

func newClient(c config.Config, skipProbe bool) (*dialog.Client, error) {
	exe, err := workerExecutable(c)
	if err != nil {
		return nil, err
	}
	flags, err := openFlags(c)
	if err != nil {
		return nil, err
	}

	var env []string
	env = append(env, worker.Env(config.EnvRenderer, c.Renderer)...)
	env = append(env, worker.Env(config.EnvLogLevel, c.LogLevel)...)
	if c.PollInterval > 0 {
		env = append(env, worker.Env(config.EnvPollInterval, c.PollInterval.String())...)
	}
	launcher := worker.NewProcessLauncher(worker.Config{
		Executable:    exe,
		Env:           env,
		DiagnosticLog: c.WorkerLog,
	})

	return dialog.New(dialog.Config{
		Launcher:  launcher,
		Flags:     flags,
		Pauser:    wait.SleepPauser{Interval: c.PollInterval},
		SkipProbe: skipProbe,
	})
}

// signalContext is cancelled on interrupt so a blocked dialog's worker is
// killed with the caller.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

var messageFlags dialogFlags

var messageCmd = &cobra.Command{
	Use:   "message [TEXT]",
	Short: "Show a message window and return immediately",
	Long: `Show a non-blocking message window. Any message window already open is
closed first, so at most one is visible at a time.

Without TEXT, open message windows are closed and nothing is shown.`,
	Example: `  ltdi message "Building..."
  ltdi message --icon clock --top 20 --right 20 "Still working"
  ltdi message`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := ""
		if len(args) == 1 {
			text = args[0]
		}
		client, err := newClient(cfg, messageFlags.noProbe)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()
		return client.Message(ctx, text, messageFlags.options(cmd.Flags())...)
	},
}

var (
	buttonFlags   dialogFlags
	buttonChoices []string
)

var buttonCmd = &cobra.Command{
	Use:   "button [TEXT]",
	Short: "Ask the user to click one of several buttons",
	Long: `Show TEXT with one button per --choice and print the zero-based index of
the button clicked. Closing the window prints -1 and exits with status 1.
Without --choice the buttons are OK and Cancel.`,
	Example: `  ltdi button "Overwrite the file?" --choice Yes --choice No
  ltdi button --icon question "Continue?"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := ""
		if len(args) == 1 {
			text = args[0]
		}
		client, err := newClient(cfg, buttonFlags.noProbe)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		idx, err := client.ButtonDialog(ctx, text, buttonChoices, buttonFlags.options(cmd.Flags())...)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), idx)
		if idx == protocol.Cancelled {
			return errCancelled
		}
		return nil
	},
}

var (
	inputFlags  dialogFlags
	inputLabels []string
	inputValues []string
	inputMasked []bool
)

var inputCmd = &cobra.Command{
	Use:   "input [TEXT]",
	Short: "Ask the user to fill in one or more text fields",
	Long: `Show a form with one text field per --label (or per --value) and print
each value on its own line once the user confirms. --label, --value and
--masked must have the same count when more than one is given. A masked
field hides what is typed.

Closing the window prints nothing and exits with status 1.`,
	Example: `  ltdi input "Your name?"
  ltdi input "Log in" --label User --label Password --value "$USER" --value "" --masked=false,true`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := ""
		if len(args) == 1 {
			text = args[0]
		}
		client, err := newClient(cfg, inputFlags.noProbe)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		result, err := client.InputDialog(ctx, text, dialog.InputFields{
			Labels:        inputLabels,
			InitialValues: inputValues,
			Masked:        inputMasked,
		}, inputFlags.options(cmd.Flags())...)
		if err != nil {
			return err
		}
		if result.Cancelled {
			return errCancelled
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(result.Values, "\n"))
		return nil
	},
}

var (
	folderFlags dialogFlags
	fileFlags   dialogFlags
)

var folderCmd = &cobra.Command{
	Use:   "folder [INITIAL]",
	Short: "Ask the user to choose a folder",
	Long: `Open a folder picker starting at INITIAL (default: the working directory)
and print the absolute path chosen. Cancelling exits with status 1.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPicker(cmd, args, folderFlags, func(ctx context.Context, c *dialog.Client, initial string, opts []dialog.Option) (string, error) {
			return c.GetFolder(ctx, initial, opts...)
		})
	},
}

var fileCmd = &cobra.Command{
	Use:   "file [INITIAL]",
	Short: "Ask the user to choose an existing file",
	Long: `Open a file picker starting in INITIAL (default: the working directory)
and print the absolute path chosen. Cancelling exits with status 1.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPicker(cmd, args, fileFlags, func(ctx context.Context, c *dialog.Client, initial string, opts []dialog.Option) (string, error) {
			return c.GetFilename(ctx, initial, opts...)
		})
	},
}

type pickFunc func(ctx context.Context, c *dialog.Client, initial string, opts []dialog.Option) (string, error)

func runPicker(cmd *cobra.Command, args []string, flags dialogFlags, pick pickFunc) error {
	initial := ""
	if len(args) == 1 {
		initial = args[0]
	}
	client, err := newClient(cfg, flags.noProbe)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	path, err := pick(ctx, client, initial, flags.options(cmd.Flags()))
	if err != nil {
		return err
	}
	if path == "" {
		return errCancelled
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func init() {
	messageFlags.register(messageCmd.Flags())

	buttonFlags.register(buttonCmd.Flags())
	buttonCmd.Flags().StringArrayVarP(&buttonChoices, "choice", "c", nil, "Button label, repeatable, in display order")

	inputFlags.register(inputCmd.Flags())
	inputCmd.Flags().StringArrayVarP(&inputLabels, "label", "l", nil, "Field label, repeatable")
	inputCmd.Flags().StringArrayVarP(&inputValues, "value", "v", nil, "Initial field value, repeatable")
	inputCmd.Flags().BoolSliceVar(&inputMasked, "masked", nil, "Comma-separated per-field masking, e.g. false,true")

	folderFlags.register(folderCmd.Flags())
	fileFlags.register(fileCmd.Flags())

	rootCmd.AddCommand(messageCmd, buttonCmd, inputCmd, folderCmd, fileCmd)
}
