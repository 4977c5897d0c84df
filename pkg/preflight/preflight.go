package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/holon-run/ltdi/pkg/flagfile"
	ltdilog "github.com/holon-run/ltdi/pkg/log"
	"github.com/holon-run/ltdi/pkg/renderer"
	"github.com/holon-run/ltdi/pkg/worker"
	"golang.org/x/term"
)

// CheckLevel represents the severity level of a preflight check
type CheckLevel int

const (
	// LevelError indicates a critical failure that prevents dialogs from showing
	LevelError CheckLevel = iota
	// LevelWarn indicates a warning that should be addressed but doesn't block dialogs
	LevelWarn
	// LevelInfo indicates informational output
	LevelInfo
)

func (l CheckLevel) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	default:
		return "ok"
	}
}

// CheckResult represents the result of a single preflight check
type CheckResult struct {
	Name    string     // Check name
	Level   CheckLevel // Severity level
	Message string     // Human-readable message
	Error   error      // Underlying error (if any)
}

// Check represents a single preflight check
type Check interface {
	// Name returns the check name
	Name() string
	// Run executes the check and returns a CheckResult
	Run(ctx context.Context) CheckResult
}

// Checker runs a collection of preflight checks
type Checker struct {
	checks  []Check
	skipped bool
	quiet   bool
}

// Config configures the preflight checker
type Config struct {
	// Skip skips all preflight checks
	Skip bool
	// Quiet suppresses info-level messages
	Quiet bool
	// Worker is the worker executable to resolve. Empty skips the check.
	Worker string
	// Renderer is probed when set.
	Renderer string
	// StateDir is checked for write access when set.
	StateDir string
	// RequireDisplay makes a missing display an error instead of a warning.
	RequireDisplay bool
	// RequireTerminal makes a missing terminal an error instead of a warning.
	RequireTerminal bool
}

// NewChecker creates a new preflight checker with the given configuration
func NewChecker(cfg Config) *Checker {
	c := &Checker{
		skipped: cfg.Skip,
		quiet:   cfg.Quiet,
	}

	if cfg.Worker != "" {
		c.checks = append(c.checks, &WorkerCheck{Executable: cfg.Worker})
	}
	c.checks = append(c.checks,
		&DisplayCheck{Required: cfg.RequireDisplay},
		&TerminalCheck{Required: cfg.RequireTerminal},
	)
	if cfg.Renderer != "" {
		c.checks = append(c.checks, &RendererCheck{Renderer: cfg.Renderer})
	}
	if cfg.StateDir != "" {
		c.checks = append(c.checks, &StateDirCheck{Path: cfg.StateDir})
	}

	return c
}

// Results executes every check and returns the results in order.
func (c *Checker) Results(ctx context.Context) []CheckResult {
	results := make([]CheckResult, 0, len(c.checks))
	for _, check := range c.checks {
		results = append(results, check.Run(ctx))
	}
	return results
}

// Run executes all registered checks and returns an error if any critical checks fail
func (c *Checker) Run(ctx context.Context) error {
	if c.skipped {
		ltdilog.Info("preflight checks skipped")
		return nil
	}

	ltdilog.Progress("running preflight checks")

	results := c.Results(ctx)
	warnings := 0
	for _, result := range results {
		switch result.Level {
		case LevelError:
			ltdilog.Error("preflight check failed", "check", result.Name, "message", result.Message)
		case LevelWarn:
			ltdilog.Warn("preflight check warning", "check", result.Name, "message", result.Message)
			warnings++
		case LevelInfo:
			if !c.quiet {
				ltdilog.Info("preflight check", "check", result.Name, "message", result.Message)
			}
		}
	}

	if warnings > 0 {
		ltdilog.Info("preflight warnings", "count", warnings)
	}

	if err := Summarize(results); err != nil {
		return err
	}

	ltdilog.Progress("preflight checks passed")
	return nil
}

// Summarize returns an error listing every failed result, or nil.
func Summarize(results []CheckResult) error {
	var errMsgs []string
	for _, result := range results {
		if result.Level != LevelError {
			continue
		}
		if result.Error != nil {
			errMsgs = append(errMsgs, fmt.Sprintf("%s: %s: %v", result.Name, result.Message, result.Error))
		} else {
			errMsgs = append(errMsgs, fmt.Sprintf("%s: %s", result.Name, result.Message))
		}
	}
	if len(errMsgs) == 0 {
		return nil
	}
	return fmt.Errorf("preflight checks failed:\n  - %s", strings.Join(errMsgs, "\n  - "))
}

// WorkerCheck checks that the worker executable can be found
type WorkerCheck struct {
	Executable string
}

func (c *WorkerCheck) Name() string {
	return "worker"
}

func (c *WorkerCheck) Run(ctx context.Context) CheckResult {
	path, err := worker.Resolve(c.Executable)
	if err != nil {
		return CheckResult{
			Name:    c.Name(),
			Level:   LevelError,
			Message: fmt.Sprintf("worker executable not found: %s", c.Executable),
			Error:   err,
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Level:   LevelInfo,
		Message: fmt.Sprintf("worker executable: %s", path),
	}
}

// DisplayCheck checks whether a graphical session is reachable
type DisplayCheck struct {
	Required bool
	// hasDisplay replaces renderer.HasDisplay in tests.
	hasDisplay func() bool
}

func (c *DisplayCheck) Name() string {
	return "display"
}

func (c *DisplayCheck) Run(ctx context.Context) CheckResult {
	has := renderer.HasDisplay
	if c.hasDisplay != nil {
		has = c.hasDisplay
	}
	if has() {
		return CheckResult{
			Name:    c.Name(),
			Level:   LevelInfo,
			Message: "graphical display available",
		}
	}
	level := LevelWarn
	if c.Required {
		level = LevelError
	}
	return CheckResult{
		Name:    c.Name(),
		Level:   level,
		Message: "no graphical display (DISPLAY and WAYLAND_DISPLAY are unset); dialogs fall back to the terminal",
		Error:   renderer.ErrUnavailable,
	}
}

// TerminalCheck checks whether a controlling terminal is attached
type TerminalCheck struct {
	Required bool
	// isTerminal replaces the standard input check in tests.
	isTerminal func() bool
}

func (c *TerminalCheck) Name() string {
	return "terminal"
}

func (c *TerminalCheck) Run(ctx context.Context) CheckResult {
	is := func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	if c.isTerminal != nil {
		is = c.isTerminal
	}
	if is() {
		return CheckResult{
			Name:    c.Name(),
			Level:   LevelInfo,
			Message: "standard input is a terminal",
		}
	}
	level := LevelWarn
	if c.Required {
		level = LevelError
	}
	return CheckResult{
		Name:    c.Name(),
		Level:   level,
		Message: "standard input is not a terminal; terminal dialogs need a controlling tty",
	}
}

// RendererCheck builds the configured renderer and probes it
type RendererCheck struct {
	Renderer string
}

func (c *RendererCheck) Name() string {
	return "renderer"
}

func (c *RendererCheck) Run(ctx context.Context) CheckResult {
	r, err := renderer.Select(c.Renderer)
	if err != nil {
		return CheckResult{
			Name:    c.Name(),
			Level:   LevelError,
			Message: fmt.Sprintf("renderer %q is not available", c.Renderer),
			Error:   err,
		}
	}
	if err := r.Probe(ctx); err != nil {
		return CheckResult{
			Name:    c.Name(),
			Level:   LevelError,
			Message: fmt.Sprintf("renderer %s cannot show dialogs here", r.Name()),
			Error:   err,
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Level:   LevelInfo,
		Message: fmt.Sprintf("renderer %s is ready", r.Name()),
	}
}

// StateDirCheck checks that message flag files can be created
type StateDirCheck struct {
	Path string
}

func (c *StateDirCheck) Name() string {
	return "state-dir"
}

func (c *StateDirCheck) Run(ctx context.Context) CheckResult {
	m, err := flagfile.Open(c.Path)
	if err != nil {
		return CheckResult{
			Name:    c.Name(),
			Level:   LevelError,
			Message: fmt.Sprintf("cannot use state directory: %s", c.Path),
			Error:   err,
		}
	}

	// Check if directory is writable by creating a temporary file
	testFile := filepath.Join(m.Dir(), fmt.Sprintf(".ltdi-write-test-%d", os.Getpid()))
	f, err := os.Create(testFile)
	if err != nil {
		return CheckResult{
			Name:    c.Name(),
			Level:   LevelError,
			Message: fmt.Sprintf("state directory is not writable: %s", m.Dir()),
			Error:   err,
		}
	}
	f.Close()
	_ = os.Remove(testFile)

	live, err := m.Live()
	if err != nil {
		return CheckResult{
			Name:    c.Name(),
			Level:   LevelWarn,
			Message: fmt.Sprintf("cannot list flag files in %s", m.Dir()),
			Error:   err,
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Level:   LevelInfo,
		Message: fmt.Sprintf("state directory is writable: %s (%d open message windows)", m.Dir(), len(live)),
	}
}
