// Package term draws dialogs on the controlling terminal with bubbletea.
// Standard output belongs to the reply, so the program talks to the
// terminal device directly.
package term

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	tea "github.com/charmbracelet/bubbletea"
	ltdilog "github.com/holon-run/ltdi/pkg/log"
	"github.com/holon-run/ltdi/pkg/protocol"
	"github.com/holon-run/ltdi/pkg/renderer"
	xterm "golang.org/x/term"
)

// Renderer shows dialogs as full-screen terminal programs.
type Renderer struct{}

// New returns a terminal renderer.
func New() *Renderer {
	return &Renderer{}
}

func init() {
	renderer.Register(renderer.Term, func() (renderer.Renderer, error) { return New(), nil })
}

func (r *Renderer) Name() string { return renderer.Term }

func (r *Renderer) Probe(context.Context) error {
	in, out, err := openTTY()
	if err != nil {
		return err
	}
	in.Close()
	if out != in {
		out.Close()
	}
	return nil
}

func (r *Renderer) Buttons(ctx context.Context, req *protocol.Request) (int, error) {
	final, err := run(ctx, newButtonModel(req))
	if err != nil {
		return 0, err
	}
	return final.(buttonModel).selected, nil
}

func (r *Renderer) Input(ctx context.Context, req *protocol.Request, fields []protocol.Field) ([]string, bool, error) {
	final, err := run(ctx, newInputModel(req, fields))
	if err != nil {
		return nil, false, err
	}
	m := final.(inputModel)
	if !m.confirmed {
		return nil, false, nil
	}
	return m.values(), true, nil
}

func (r *Renderer) Message(ctx context.Context, req *protocol.Request) error {
	_, err := run(ctx, newMessageModel(req))
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func (r *Renderer) PickFolder(ctx context.Context, req *protocol.Request) (string, error) {
	return pick(ctx, newPathModel(req, true))
}

func (r *Renderer) PickFile(ctx context.Context, req *protocol.Request) (string, error) {
	return pick(ctx, newPathModel(req, false))
}

func pick(ctx context.Context, m pathModel) (string, error) {
	final, err := run(ctx, m)
	if err != nil {
		return "", err
	}
	return final.(pathModel).path, nil
}

func run(ctx context.Context, m tea.Model) (tea.Model, error) {
	in, out, err := openTTY()
	if err != nil {
		return nil, err
	}
	defer in.Close()
	if out != in {
		defer out.Close()
	}

	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
		tea.WithAltScreen(),
	)
	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrInterrupted) {
			return m, nil
		}
		return nil, fmt.Errorf("terminal dialog failed: %w", err)
	}
	return final, nil
}

// openTTY opens the controlling terminal for reading and writing.
func openTTY() (in, out *os.File, err error) {
	if runtime.GOOS == "windows" {
		in, err = os.OpenFile("CONIN$", os.O_RDWR, 0)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: no console: %v", renderer.ErrUnavailable, err)
		}
		out, err = os.OpenFile("CONOUT$", os.O_RDWR, 0)
		if err != nil {
			in.Close()
			return nil, nil, fmt.Errorf("%w: no console: %v", renderer.ErrUnavailable, err)
		}
		return in, out, nil
	}

	f, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: no controlling terminal: %v", renderer.ErrUnavailable, err)
	}
	if !xterm.IsTerminal(int(f.Fd())) {
		f.Close()
		return nil, nil, fmt.Errorf("%w: /dev/tty is not a terminal", renderer.ErrUnavailable)
	}
	ltdilog.Debug("opened controlling terminal")
	return f, f, nil
}
