package renderer

import (
	"context"
	"errors"
	"testing"

	"github.com/holon-run/ltdi/pkg/protocol"
)

type stub struct{ name string }

func (s stub) Name() string { return s.name }

func (stub) Probe(context.Context) error { return nil }

func (stub) Message(context.Context, *protocol.Request) error { return nil }

func (stub) Buttons(context.Context, *protocol.Request) (int, error) {
	return protocol.Cancelled, nil
}

func (stub) Input(context.Context, *protocol.Request, []protocol.Field) ([]string, bool, error) {
	return nil, false, nil
}

func (stub) PickFolder(context.Context, *protocol.Request) (string, error) { return "", nil }

func (stub) PickFile(context.Context, *protocol.Request) (string, error) { return "", nil }

func TestHasDisplay(t *testing.T) {
	env := func(m map[string]string) func(string) string {
		return func(k string) string { return m[k] }
	}
	tests := []struct {
		name string
		goos string
		env  map[string]string
		want bool
	}{
		{"windows", "windows", nil, true},
		{"darwin", "darwin", nil, true},
		{"x11", "linux", map[string]string{"DISPLAY": ":0"}, true},
		{"wayland", "linux", map[string]string{"WAYLAND_DISPLAY": "wayland-0"}, true},
		{"headless", "linux", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasDisplay(tt.goos, env(tt.env)); got != tt.want {
				t.Errorf("hasDisplay() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	Register("stub-select", func() (Renderer, error) { return stub{name: "stub-select"}, nil })

	r, err := Select("stub-select")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if r.Name() != "stub-select" {
		t.Errorf("Name() = %q", r.Name())
	}

	if _, err := Select("nope"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Select(nope) error = %v, want ErrUnavailable", err)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	Register("stub-dup", func() (Renderer, error) { return stub{}, nil })
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	Register("stub-dup", func() (Renderer, error) { return stub{}, nil })
}
