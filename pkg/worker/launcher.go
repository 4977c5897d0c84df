// Package worker spawns the short-lived child process that renders one
// dialog. The encoded request is the single trailing argument; the child's
// standard output is the encoded reply and its standard error is diagnostic
// only, never handed back to the caller.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	ltdilog "github.com/holon-run/ltdi/pkg/log"
	"github.com/holon-run/ltdi/pkg/protocol"
)

// Subcommand is the hidden CLI subcommand that runs the worker side.
const Subcommand = "worker"

// Launcher starts one worker process per request.
type Launcher interface {
	// Run starts a worker and blocks until it exits, returning its full
	// standard output.
	Run(ctx context.Context, req *protocol.Request) ([]byte, error)
	// Start starts a worker and returns without waiting for it.
	Start(ctx context.Context, req *protocol.Request) error
}

// Config describes how to invoke the worker executable.
type Config struct {
	// Executable is a path or a name looked up in PATH.
	Executable string
	// Args precede the encoded request. Defaults to [Subcommand].
	Args []string
	// Env is appended to the inherited environment.
	Env []string
	// DiagnosticLog, when set, receives the worker's standard error.
	DiagnosticLog string
}

// StartError means no worker ran at all.
type StartError struct {
	Executable string
	Err        error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("failed to start worker %s: %v", e.Executable, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// ExitError means the worker ran but exited unsuccessfully.
type ExitError struct {
	Code   int
	Output []byte
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("worker exited with status %d", e.Code)
}

// ProcessLauncher runs workers as OS processes.
type ProcessLauncher struct {
	cfg Config
}

// NewProcessLauncher returns a launcher for cfg.
func NewProcessLauncher(cfg Config) *ProcessLauncher {
	if cfg.Args == nil {
		cfg.Args = []string{Subcommand}
	}
	return &ProcessLauncher{cfg: cfg}
}

// Resolve returns the absolute path of the worker executable.
func (l *ProcessLauncher) Resolve() (string, error) {
	return Resolve(l.cfg.Executable)
}

// Resolve finds a worker executable by path or in PATH.
func Resolve(executable string) (string, error) {
	if executable == "" {
		return "", &StartError{Executable: "(none)", Err: errors.New("no worker executable configured")}
	}
	path, err := exec.LookPath(executable)
	if err != nil {
		return "", &StartError{Executable: executable, Err: err}
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return path, nil
}

func (l *ProcessLauncher) command(req *protocol.Request) (*exec.Cmd, io.Closer, error) {
	payload, err := protocol.Encode(req)
	if err != nil {
		return nil, nil, err
	}
	path, err := l.Resolve()
	if err != nil {
		return nil, nil, err
	}

	args := append(append([]string(nil), l.cfg.Args...), payload)
	cmd := exec.Command(path, args...)
	cmd.Env = append(os.Environ(), l.cfg.Env...)
	cmd.Stdin = nil

	var closer io.Closer = nopCloser{}
	if l.cfg.DiagnosticLog != "" {
		f, err := os.OpenFile(l.cfg.DiagnosticLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			ltdilog.Warn("cannot open worker diagnostic log, discarding", "path", l.cfg.DiagnosticLog, "error", err)
		} else {
			cmd.Stderr = f
			closer = f
		}
	}
	return cmd, closer, nil
}

// Run implements Launcher.
func (l *ProcessLauncher) Run(ctx context.Context, req *protocol.Request) ([]byte, error) {
	cmd, closer, err := l.command(req)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	ltdilog.Debug("starting worker", "function", req.Function, "path", cmd.Path)
	if err := cmd.Start(); err != nil {
		return nil, &StartError{Executable: cmd.Path, Err: err}
	}

	exited := make(chan struct{})
	defer close(exited)
	go func() {
		select {
		case <-ctx.Done():
			_ = cmd.Process.Kill()
		case <-exited:
		}
	}()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ExitError{Code: exitErr.ExitCode(), Output: stdout.Bytes()}
		}
		return nil, fmt.Errorf("failed waiting for worker: %w", err)
	}
	ltdilog.Debug("worker finished", "function", req.Function, "bytes", stdout.Len())
	return stdout.Bytes(), nil
}

// Start implements Launcher. The worker outlives ctx: it is tied to its
// flag file, not to the caller.
func (l *ProcessLauncher) Start(_ context.Context, req *protocol.Request) error {
	cmd, closer, err := l.command(req)
	if err != nil {
		return err
	}

	ltdilog.Debug("starting detached worker", "function", req.Function, "path", cmd.Path)
	if err := cmd.Start(); err != nil {
		closer.Close()
		return &StartError{Executable: cmd.Path, Err: err}
	}
	go func() {
		defer closer.Close()
		if err := cmd.Wait(); err != nil {
			ltdilog.Debug("detached worker exited", "function", req.Function, "error", err)
			return
		}
		ltdilog.Debug("detached worker exited", "function", req.Function)
	}()
	return nil
}

// Env formats a KEY=VALUE pair for Config.Env, skipping empty values.
func Env(key, value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return []string{key + "=" + value}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
