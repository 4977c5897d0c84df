// Package script is a renderer that answers dialogs from a scripted user
// instead of a screen. The script is a yaml mapping read from LTDI_SCRIPT,
// for example:
//
//	{action: click, index: 1}
//	{action: confirm, values: [alice, secret]}
//	{action: pick, path: /tmp/report.txt}
//	{action: close}
package script

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ltdilog "github.com/holon-run/ltdi/pkg/log"
	"github.com/holon-run/ltdi/pkg/protocol"
	"github.com/holon-run/ltdi/pkg/renderer"
	"gopkg.in/yaml.v3"
)

// EnvScript holds the script for the current worker.
const EnvScript = "LTDI_SCRIPT"

// Actions a scripted user can take.
const (
	ActionClick   = "click"
	ActionConfirm = "confirm"
	ActionPick    = "pick"
	ActionClose   = "close"
	// ActionUnavailable makes every call fail as if no display existed.
	ActionUnavailable = "unavailable"
	// ActionFail makes every call fail with Error.
	ActionFail = "fail"
)

// Script is what the simulated user does with the next dialog.
type Script struct {
	Action string `yaml:"action"`
	// Index is the button clicked.
	Index int `yaml:"index"`
	// Values replace the input fields. Nil keeps the initial values.
	Values []string `yaml:"values"`
	// Path is returned by the pickers. Relative paths are resolved
	// against the request's initial folder.
	Path  string `yaml:"path"`
	Error string `yaml:"error"`
	// Record, when set, is a file every shown message is appended to.
	Record string `yaml:"record"`
}

// Parse reads a script. An empty script closes every dialog.
func Parse(text string) (Script, error) {
	s := Script{Action: ActionClose}
	if strings.TrimSpace(text) == "" {
		return s, nil
	}
	if err := yaml.Unmarshal([]byte(text), &s); err != nil {
		return Script{}, fmt.Errorf("failed to parse %s: %w", EnvScript, err)
	}
	s.Action = strings.ToLower(strings.TrimSpace(s.Action))
	switch s.Action {
	case "":
		s.Action = ActionClose
	case ActionClick, ActionConfirm, ActionPick, ActionClose, ActionUnavailable, ActionFail:
	default:
		return Script{}, fmt.Errorf("unknown %s action %q", EnvScript, s.Action)
	}
	return s, nil
}

// Renderer plays a Script.
type Renderer struct {
	script Script
}

// New returns a renderer that plays s.
func New(s Script) *Renderer {
	return &Renderer{script: s}
}

// FromEnv builds a renderer from LTDI_SCRIPT.
func FromEnv() (renderer.Renderer, error) {
	s, err := Parse(os.Getenv(EnvScript))
	if err != nil {
		return nil, err
	}
	return New(s), nil
}

func init() {
	renderer.Register(renderer.Script, FromEnv)
}

func (r *Renderer) Name() string { return renderer.Script }

func (r *Renderer) Probe(context.Context) error {
	return r.fault()
}

func (r *Renderer) Buttons(_ context.Context, req *protocol.Request) (int, error) {
	if err := r.fault(); err != nil {
		return 0, err
	}
	if r.script.Action != ActionClick {
		return protocol.Cancelled, nil
	}
	if r.script.Index < 0 || r.script.Index >= len(req.Choices) {
		return 0, fmt.Errorf("scripted click on button %d, dialog has %d", r.script.Index, len(req.Choices))
	}
	ltdilog.Debug("scripted click", "choice", req.Choices[r.script.Index])
	return r.script.Index, nil
}

func (r *Renderer) Input(_ context.Context, _ *protocol.Request, fields []protocol.Field) ([]string, bool, error) {
	if err := r.fault(); err != nil {
		return nil, false, err
	}
	if r.script.Action != ActionConfirm {
		return nil, false, nil
	}
	values := make([]string, len(fields))
	for i, f := range fields {
		values[i] = f.Initial
		if i < len(r.script.Values) {
			values[i] = r.script.Values[i]
		}
	}
	return values, true, nil
}

func (r *Renderer) Message(ctx context.Context, req *protocol.Request) error {
	if err := r.fault(); err != nil {
		return err
	}
	if r.script.Record != "" {
		if err := appendLine(r.script.Record, req.Message); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return nil
}

func (r *Renderer) PickFolder(_ context.Context, req *protocol.Request) (string, error) {
	return r.pick(req)
}

func (r *Renderer) PickFile(_ context.Context, req *protocol.Request) (string, error) {
	return r.pick(req)
}

func (r *Renderer) pick(req *protocol.Request) (string, error) {
	if err := r.fault(); err != nil {
		return "", err
	}
	if r.script.Action != ActionPick || r.script.Path == "" {
		return "", nil
	}
	path := r.script.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(req.InitialFolder, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return abs, nil
}

func (r *Renderer) fault() error {
	switch r.script.Action {
	case ActionUnavailable:
		return fmt.Errorf("%w: scripted", renderer.ErrUnavailable)
	case ActionFail:
		msg := r.script.Error
		if msg == "" {
			msg = "scripted failure"
		}
		return &protocol.Error{Kind: protocol.KindRendererError, Detail: msg}
	}
	return nil
}

func appendLine(path, text string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open record file: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, text); err != nil {
		return fmt.Errorf("failed to record message: %w", err)
	}
	return nil
}
