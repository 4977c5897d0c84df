// Package renderer defines what a worker needs from a dialog toolkit and
// keeps a registry of the toolkits compiled into the binary.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/holon-run/ltdi/pkg/protocol"
)

// Renderer names.
const (
	Auto   = "auto"
	GUI    = "gui"
	Term   = "term"
	Script = "script"
)

// ErrUnavailable means the renderer cannot run in this environment, for
// example because there is no display or no terminal.
var ErrUnavailable = errors.New("renderer unavailable")

// Renderer draws dialogs and reports what the user did. Cancellation is
// not an error: Buttons returns protocol.Cancelled, Input returns ok=false,
// and the pickers return an empty path.
type Renderer interface {
	Name() string
	// Probe reports whether dialogs can be shown, without showing any.
	Probe(ctx context.Context) error
	Buttons(ctx context.Context, req *protocol.Request) (int, error)
	Input(ctx context.Context, req *protocol.Request, fields []protocol.Field) (values []string, ok bool, err error)
	// Message shows req.Message until ctx is done or the user closes it.
	Message(ctx context.Context, req *protocol.Request) error
	PickFolder(ctx context.Context, req *protocol.Request) (string, error)
	PickFile(ctx context.Context, req *protocol.Request) (string, error)
}

// Factory builds a renderer.
type Factory func() (Renderer, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register makes a renderer available under name. It panics on duplicates.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := registry[name]; dup {
		panic("renderer: Register called twice for " + name)
	}
	registry[name] = f
}

// Names lists the registered renderers.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select builds the named renderer. "auto" (or "") picks gui when a
// display is available and term otherwise.
func Select(name string) (Renderer, error) {
	if name == "" || name == Auto {
		name = Term
		if HasDisplay() && registered(GUI) {
			name = GUI
		}
	}
	mu.RLock()
	f, ok := registry[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q is not built in (have %v)", ErrUnavailable, name, Names())
	}
	return f()
}

func registered(name string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := registry[name]
	return ok
}

// HasDisplay reports whether a graphical session looks reachable.
func HasDisplay() bool {
	return hasDisplay(runtime.GOOS, os.Getenv)
}

func hasDisplay(goos string, getenv func(string) string) bool {
	switch goos {
	case "windows", "darwin":
		return true
	}
	return getenv("DISPLAY") != "" || getenv("WAYLAND_DISPLAY") != ""
}
