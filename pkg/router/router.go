// Package router is the worker side of the protocol: it decodes one
// request, drives the renderer, and writes exactly one reply.
package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/holon-run/ltdi/pkg/flagfile"
	ltdilog "github.com/holon-run/ltdi/pkg/log"
	"github.com/holon-run/ltdi/pkg/protocol"
	"github.com/holon-run/ltdi/pkg/renderer"
	"go.uber.org/zap"
)

// WatchFunc returns a context that ends once the flag file at path is gone.
type WatchFunc func(ctx context.Context, path string, interval time.Duration) (context.Context, context.CancelFunc)

// Router dispatches requests to a renderer.
type Router struct {
	renderer renderer.Renderer
	interval time.Duration
	watch    WatchFunc
}

// Option configures a Router.
type Option func(*Router)

// WithFlagInterval sets how often a message window checks its flag file.
func WithFlagInterval(d time.Duration) Option {
	return func(rt *Router) { rt.interval = d }
}

// WithWatch replaces the flag file watcher.
func WithWatch(w WatchFunc) Option {
	return func(rt *Router) { rt.watch = w }
}

// New returns a router that renders with r.
func New(r renderer.Renderer, opts ...Option) *Router {
	rt := &Router{
		renderer: r,
		interval: flagfile.PollInterval,
		watch:    flagfile.WatchPath,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Serve handles the encoded request payload and writes the reply to out.
// Message requests write nothing.
func (rt *Router) Serve(ctx context.Context, payload string, out io.Writer) error {
	var reply protocol.Reply
	emit := true

	req, err := protocol.DecodeRequest(payload)
	if err != nil {
		reply = protocol.FailWith(err, protocol.KindInvalidArgument)
	} else {
		reply, emit = rt.Handle(ctx, req)
	}
	if !emit {
		return nil
	}

	data, err := protocol.EncodeReply(reply)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out, string(data)); err != nil {
		return fmt.Errorf("failed to write reply: %w", err)
	}
	return nil
}

// Handle renders req and returns the reply. emit is false for message
// requests, which end silently when their flag file goes away.
func (rt *Router) Handle(ctx context.Context, req *protocol.Request) (reply protocol.Reply, emit bool) {
	logger := ltdilog.With("function", req.Function, "renderer", rt.renderer.Name())

	if err := req.Placement.Validate(); err != nil {
		return protocol.FailWith(err, protocol.KindInvalidArgument), req.Function.Blocking()
	}

	switch req.Function {
	case protocol.FuncProbe:
		if err := rt.renderer.Probe(ctx); err != nil {
			return protocol.Fail(protocol.KindMissingDependency, err.Error()), true
		}
		return ok(""), true

	case protocol.FuncButtonDialog:
		idx, err := rt.renderer.Buttons(ctx, req)
		if err != nil {
			return rendererFailure(err), true
		}
		if idx < protocol.Cancelled || idx >= len(req.Choices) {
			return protocol.Fail(protocol.KindRendererError, fmt.Sprintf("button index %d out of range for %d choices", idx, len(req.Choices))), true
		}
		logger.Debugw("button dialog closed", "index", idx)
		return ok(idx), true

	case protocol.FuncInputDialog:
		fields, err := req.Fields()
		if err != nil {
			return protocol.FailWith(err, protocol.KindLengthMismatch), true
		}
		values, confirmed, err := rt.renderer.Input(ctx, req, fields)
		if err != nil {
			return rendererFailure(err), true
		}
		if !confirmed {
			return ok(protocol.Cancelled), true
		}
		if len(values) != len(fields) {
			return protocol.Fail(protocol.KindRendererError, fmt.Sprintf("renderer returned %d values for %d fields", len(values), len(fields))), true
		}
		if len(values) == 1 {
			return ok(values[0]), true
		}
		return ok(values), true

	case protocol.FuncGetFolder:
		return rt.pick(ctx, req, rt.renderer.PickFolder), true

	case protocol.FuncGetFilename:
		return rt.pick(ctx, req, rt.renderer.PickFile), true

	case protocol.FuncMessage:
		rt.message(ctx, req, logger)
		return protocol.Reply{}, false
	}

	return protocol.Fail(protocol.KindInvalidArgument, fmt.Sprintf("unknown function %q", req.Function)), true
}

func (rt *Router) pick(ctx context.Context, req *protocol.Request, fn func(context.Context, *protocol.Request) (string, error)) protocol.Reply {
	path, err := fn(ctx, req)
	if err != nil {
		return rendererFailure(err)
	}
	return ok(path)
}

func (rt *Router) message(ctx context.Context, req *protocol.Request, logger *zap.SugaredLogger) {
	if req.FlagFile == "" {
		logger.Warnw("message request without flag file")
		return
	}
	wctx, cancel := rt.watch(ctx, req.FlagFile, rt.interval)
	defer cancel()

	err := rt.renderer.Message(wctx, req)
	if wctx.Err() == nil {
		// Closed by the user; the flag must not outlive the window.
		if rmErr := flagfile.RemovePath(req.FlagFile); rmErr != nil {
			logger.Warnw("failed to remove flag file", "flagfile", req.FlagFile, "error", rmErr)
		}
	}
	if err != nil {
		logger.Warnw("message window failed", "error", err)
		return
	}
	logger.Debugw("message window closed", "flagfile", req.FlagFile)
}

func rendererFailure(err error) protocol.Reply {
	if errors.Is(err, renderer.ErrUnavailable) {
		return protocol.Fail(protocol.KindMissingDependency, err.Error())
	}
	return protocol.FailWith(err, protocol.KindRendererError)
}

func ok(v any) protocol.Reply {
	r, err := protocol.OK(v)
	if err != nil {
		return protocol.Fail(protocol.KindRendererError, err.Error())
	}
	return r
}
