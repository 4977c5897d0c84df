// Package dialog is the caller side of ltdi. Every dialog runs in its own
// worker process; blocking calls keep servicing the caller through a
// wait.Pauser until the worker replies, and message windows are closed by
// deleting their flag file.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/holon-run/ltdi/pkg/flagfile"
	ltdilog "github.com/holon-run/ltdi/pkg/log"
	"github.com/holon-run/ltdi/pkg/protocol"
	"github.com/holon-run/ltdi/pkg/wait"
	"github.com/holon-run/ltdi/pkg/worker"
)

// Config wires a Client.
type Config struct {
	// Launcher starts workers. Required.
	Launcher worker.Launcher
	// Flags owns the message flag files. Required.
	Flags *flagfile.Manager
	// Pauser runs between polls of a blocking call. Defaults to sleeping
	// for wait.DefaultInterval.
	Pauser wait.Pauser
	// SkipProbe disables the environment check made before the first dialog.
	SkipProbe bool
}

// Client shows dialogs. It is safe for concurrent use.
type Client struct {
	launcher  worker.Launcher
	flags     *flagfile.Manager
	pauser    wait.Pauser
	skipProbe bool

	probeMu  sync.Mutex
	probed   bool
	probeErr error
}

// New returns a client.
func New(cfg Config) (*Client, error) {
	if cfg.Launcher == nil {
		return nil, fmt.Errorf("dialog: launcher is required")
	}
	if cfg.Flags == nil {
		return nil, fmt.Errorf("dialog: flag file manager is required")
	}
	p := cfg.Pauser
	if p == nil {
		p = wait.SleepPauser{Interval: wait.DefaultInterval}
	}
	return &Client{
		launcher:  cfg.Launcher,
		flags:     cfg.Flags,
		pauser:    p,
		skipProbe: cfg.SkipProbe,
	}, nil
}

// InputFields describes the text fields of an input dialog. Any of the
// slices may be empty; the non-empty ones must have the same length.
type InputFields struct {
	Labels        []string
	InitialValues []string
	Masked        []bool
}

// InputResult is what the user typed, in field order.
type InputResult struct {
	Values    []string
	Cancelled bool
}

// Text returns the single value of a one-field dialog.
func (r InputResult) Text() string {
	if len(r.Values) == 0 {
		return ""
	}
	return r.Values[0]
}

// Message replaces any open message window with one showing text, and
// returns without waiting. An empty text only closes what is open.
//
// The open window is closed first, even when the new one is then rejected
// or cannot be shown.
func (c *Client) Message(ctx context.Context, text string, opts ...Option) error {
	if _, err := c.flags.Sweep(); err != nil {
		return err
	}
	if text == "" {
		return nil
	}

	req := build(protocol.FuncMessage, text, opts)
	if err := req.Placement.Validate(); err != nil {
		return err
	}
	if err := c.Probe(ctx); err != nil {
		return err
	}

	path, err := c.flags.Replace()
	if err != nil {
		return err
	}
	req.FlagFile = path
	if err := c.launcher.Start(ctx, req); err != nil {
		if rmErr := c.flags.Remove(path); rmErr != nil {
			ltdilog.Warn("failed to remove orphaned flag file", "path", path, "error", rmErr)
		}
		return crashed(err)
	}
	ltdilog.Debug("message window dispatched", "flagfile", path)
	return nil
}

// CloseMessage closes every open message window.
func (c *Client) CloseMessage(context.Context) error {
	_, err := c.flags.Sweep()
	return err
}

// ButtonDialog shows text with one button per choice and returns the
// index clicked, or protocol.Cancelled (-1) if the window was closed.
// No choices means OK and Cancel.
func (c *Client) ButtonDialog(ctx context.Context, text string, choices []string, opts ...Option) (int, error) {
	req := build(protocol.FuncButtonDialog, text, opts)
	req.Choices = choices
	if len(req.Choices) == 0 {
		req.Choices = append([]string(nil), protocol.DefaultChoices...)
	}

	reply, err := c.call(ctx, req)
	if err != nil {
		return 0, err
	}
	idx, err := reply.Int()
	if err != nil {
		return 0, crashed(err)
	}
	if idx < protocol.Cancelled || idx >= len(req.Choices) {
		return 0, crashed(fmt.Errorf("button index %d out of range for %d choices", idx, len(req.Choices)))
	}
	return idx, nil
}

// InputDialog shows labeled text fields and returns their values once the
// user confirms. Values are all or nothing.
func (c *Client) InputDialog(ctx context.Context, text string, fields InputFields, opts ...Option) (InputResult, error) {
	req := build(protocol.FuncInputDialog, text, opts)
	req.Labels = fields.Labels
	req.InitialValues = fields.InitialValues
	req.Masked = fields.Masked
	normalized, err := req.Fields()
	if err != nil {
		return InputResult{}, err
	}

	reply, err := c.call(ctx, req)
	if err != nil {
		return InputResult{}, err
	}
	values, cancelled, err := reply.Input()
	if err != nil {
		return InputResult{}, crashed(err)
	}
	if cancelled {
		return InputResult{Cancelled: true}, nil
	}
	if len(values) != len(normalized) {
		return InputResult{}, crashed(fmt.Errorf("got %d values for %d fields", len(values), len(normalized)))
	}
	return InputResult{Values: values}, nil
}

// GetFolder asks for a folder, starting at initial. It returns "" if the
// user cancelled.
func (c *Client) GetFolder(ctx context.Context, initial string, opts ...Option) (string, error) {
	return c.pick(ctx, protocol.FuncGetFolder, initial, opts)
}

// GetFilename asks for an existing file, starting at initial. It returns ""
// if the user cancelled.
func (c *Client) GetFilename(ctx context.Context, initial string, opts ...Option) (string, error) {
	return c.pick(ctx, protocol.FuncGetFilename, initial, opts)
}

func (c *Client) pick(ctx context.Context, fn protocol.Function, initial string, opts []Option) (string, error) {
	req := build(fn, "", opts)
	req.InitialFolder = initial
	reply, err := c.call(ctx, req)
	if err != nil {
		return "", err
	}
	path, err := reply.String()
	if err != nil {
		return "", crashed(err)
	}
	return path, nil
}

// Probe reports whether the worker can show dialogs. The first conclusive
// answer is remembered for the life of the client.
func (c *Client) Probe(ctx context.Context) error {
	if c.skipProbe {
		return nil
	}
	c.probeMu.Lock()
	defer c.probeMu.Unlock()
	if c.probed {
		return c.probeErr
	}

	_, err := c.exchange(ctx, &protocol.Request{Function: protocol.FuncProbe})
	if ctx.Err() != nil {
		return err
	}
	c.probed, c.probeErr = true, err
	if err != nil {
		ltdilog.Warn("dialog environment check failed", "error", err)
	}
	return err
}

func (c *Client) call(ctx context.Context, req *protocol.Request) (protocol.Reply, error) {
	if err := req.Validate(); err != nil {
		return protocol.Reply{}, err
	}
	if err := c.Probe(ctx); err != nil {
		return protocol.Reply{}, err
	}
	return c.exchange(ctx, req)
}

// exchange runs one worker and decodes its reply, pausing between polls.
func (c *Client) exchange(ctx context.Context, req *protocol.Request) (protocol.Reply, error) {
	var out []byte
	loop := wait.New(c.pauser)
	err := loop.Run(ctx, func() error {
		var err error
		out, err = c.launcher.Run(ctx, req)
		return err
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return protocol.Reply{}, ctxErr
		}
		return protocol.Reply{}, crashed(err)
	}
	ltdilog.Debug("worker replied", "function", req.Function, "polls", loop.Pauses())

	reply, err := protocol.DecodeReply(out)
	if err != nil {
		return protocol.Reply{}, crashed(err)
	}
	if reply.Failed() {
		return protocol.Reply{}, reply.Err()
	}
	return reply, nil
}

// IsCancelled reports whether err only means the wait was abandoned.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
