package dialog

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/holon-run/ltdi/pkg/flagfile"
	"github.com/holon-run/ltdi/pkg/protocol"
	"github.com/holon-run/ltdi/pkg/wait"
	"github.com/holon-run/ltdi/pkg/worker"
)

// fakeLauncher answers each function with a canned worker output.
type fakeLauncher struct {
	mu       sync.Mutex
	replies  map[protocol.Function]string
	runErr   error
	startErr error
	delay    time.Duration
	runs     []*protocol.Request
	starts   []*protocol.Request
}

func (f *fakeLauncher) Run(ctx context.Context, req *protocol.Request) ([]byte, error) {
	f.mu.Lock()
	f.runs = append(f.runs, req)
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.runErr != nil {
		return nil, f.runErr
	}
	if req.Function == protocol.FuncProbe {
		if out, ok := f.replies[protocol.FuncProbe]; ok {
			return []byte(out), nil
		}
		return []byte(`["", ""]`), nil
	}
	return []byte(f.replies[req.Function]), nil
}

func (f *fakeLauncher) Start(_ context.Context, req *protocol.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.starts = append(f.starts, req)
	return nil
}

// spawned counts non-probe workers.
func (f *fakeLauncher) spawned() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.starts)
	for _, r := range f.runs {
		if r.Function != protocol.FuncProbe {
			n++
		}
	}
	return n
}

var noPause = wait.PauserFunc(func(context.Context) error { return nil })

func newTestClient(t *testing.T, l *fakeLauncher) (*Client, *flagfile.Manager) {
	t.Helper()
	flags := flagfile.NewManager(memfs.New())
	c, err := New(Config{Launcher: l, Flags: flags, Pauser: noPause})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, flags
}

func TestNewRequiresWiring(t *testing.T) {
	if _, err := New(Config{Flags: flagfile.NewManager(memfs.New())}); err == nil {
		t.Error("New() without launcher should fail")
	}
	if _, err := New(Config{Launcher: &fakeLauncher{}}); err == nil {
		t.Error("New() without flag manager should fail")
	}
}

func TestButtonDialog(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		want     int
		wantErr  error
		wantKind protocol.Kind
	}{
		{name: "click second", reply: `["", 1]`, want: 1},
		{name: "bare value", reply: `2`, want: 2},
		{name: "close", reply: `["", -1]`, want: protocol.Cancelled},
		{name: "out of range", reply: `["", 3]`, wantErr: ErrWorkerCrash},
		{name: "text instead of index", reply: `["", "Yes"]`, wantErr: ErrWorkerCrash},
		{name: "empty output", reply: ``, wantErr: ErrWorkerCrash},
		{name: "garbage", reply: `Traceback (most recent call last)`, wantErr: ErrWorkerCrash},
		{name: "renderer failure", reply: `["renderer_error", "boom"]`, wantKind: protocol.KindRendererError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &fakeLauncher{replies: map[protocol.Function]string{protocol.FuncButtonDialog: tt.reply}}
			c, _ := newTestClient(t, l)
			got, err := c.ButtonDialog(context.Background(), "Pick one", []string{"Yes", "No", "Cancel"})
			switch {
			case tt.wantKind != protocol.KindOK:
				var f *Failure
				if !errors.As(err, &f) || f.Kind != tt.wantKind {
					t.Fatalf("error = %v, want %s failure", err, tt.wantKind)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
			case err != nil:
				t.Fatalf("ButtonDialog() error = %v", err)
			case got != tt.want:
				t.Errorf("ButtonDialog() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestButtonDialogDefaultChoices(t *testing.T) {
	l := &fakeLauncher{replies: map[protocol.Function]string{protocol.FuncButtonDialog: `["", 1]`}}
	c, _ := newTestClient(t, l)
	if _, err := c.ButtonDialog(context.Background(), "Sure?", nil); err != nil {
		t.Fatalf("ButtonDialog() error = %v", err)
	}
	req := l.runs[len(l.runs)-1]
	if !reflect.DeepEqual(req.Choices, protocol.DefaultChoices) {
		t.Errorf("Choices = %v, want defaults", req.Choices)
	}
}

func TestInputDialog(t *testing.T) {
	l := &fakeLauncher{replies: map[protocol.Function]string{protocol.FuncInputDialog: `["", ["1", "2"]]`}}
	c, _ := newTestClient(t, l)

	res, err := c.InputDialog(context.Background(), "", InputFields{
		Labels:        []string{"A", "B"},
		InitialValues: []string{"1", "2"},
		Masked:        []bool{false, true},
	})
	if err != nil {
		t.Fatalf("InputDialog() error = %v", err)
	}
	if res.Cancelled || !reflect.DeepEqual(res.Values, []string{"1", "2"}) {
		t.Errorf("InputDialog() = %+v", res)
	}
}

func TestInputDialogBarePairOfValues(t *testing.T) {
	l := &fakeLauncher{replies: map[protocol.Function]string{protocol.FuncInputDialog: `["1","2"]`}}
	c, _ := newTestClient(t, l)

	res, err := c.InputDialog(context.Background(), "", InputFields{Labels: []string{"A", "B"}})
	if err != nil {
		t.Fatalf("InputDialog() error = %v", err)
	}
	if res.Cancelled || !reflect.DeepEqual(res.Values, []string{"1", "2"}) {
		t.Errorf("InputDialog() = %+v", res)
	}
}

func TestInputDialogSingleAndCancel(t *testing.T) {
	l := &fakeLauncher{replies: map[protocol.Function]string{protocol.FuncInputDialog: `["", "alice"]`}}
	c, _ := newTestClient(t, l)
	res, err := c.InputDialog(context.Background(), "Name?", InputFields{})
	if err != nil || res.Text() != "alice" {
		t.Fatalf("InputDialog() = %+v, %v", res, err)
	}

	l.replies[protocol.FuncInputDialog] = `["", -1]`
	res, err = c.InputDialog(context.Background(), "Name?", InputFields{})
	if err != nil || !res.Cancelled || res.Values != nil {
		t.Errorf("cancelled InputDialog() = %+v, %v", res, err)
	}

	l.replies[protocol.FuncInputDialog] = `["", ["a", "b"]]`
	if _, err := c.InputDialog(context.Background(), "Name?", InputFields{}); !errors.Is(err, ErrWorkerCrash) {
		t.Errorf("wrong value count error = %v, want ErrWorkerCrash", err)
	}
}

func TestInvalidArgumentsNeverSpawn(t *testing.T) {
	l := &fakeLauncher{}
	c, flags := newTestClient(t, l)
	ctx := context.Background()

	_, err := c.InputDialog(ctx, "", InputFields{Labels: []string{"A", "B"}, InitialValues: []string{"1", "2", "3"}})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("length mismatch error = %v, want ErrInvalidArgument", err)
	}
	_, err = c.ButtonDialog(ctx, "x", nil, Left(0), Right(0))
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("left+right error = %v, want ErrInvalidArgument", err)
	}
	err = c.Message(ctx, "x", Top(0), Bottom(0))
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("top+bottom error = %v, want ErrInvalidArgument", err)
	}

	if len(l.runs) != 0 || len(l.starts) != 0 {
		t.Errorf("workers spawned: runs=%d starts=%d", len(l.runs), len(l.starts))
	}
	if live, _ := flags.Live(); len(live) != 0 {
		t.Errorf("flag files created: %v", live)
	}
}

func TestPickersReturnEmptyOnCancel(t *testing.T) {
	l := &fakeLauncher{replies: map[protocol.Function]string{
		protocol.FuncGetFolder:   `["", ""]`,
		protocol.FuncGetFilename: `["", ""]`,
	}}
	c, _ := newTestClient(t, l)

	folder, err := c.GetFolder(context.Background(), "", WithIcon("gear"))
	if err != nil || folder != "" {
		t.Errorf("GetFolder() = %q, %v", folder, err)
	}
	file, err := c.GetFilename(context.Background(), "/tmp")
	if err != nil || file != "" {
		t.Errorf("GetFilename() = %q, %v", file, err)
	}
	if got := l.runs[len(l.runs)-1].InitialFolder; got != "/tmp" {
		t.Errorf("InitialFolder = %q, want /tmp", got)
	}

	l.replies[protocol.FuncGetFolder] = `["", null]`
	if _, err := c.GetFolder(context.Background(), ""); !errors.Is(err, ErrWorkerCrash) {
		t.Errorf("null path error = %v, want ErrWorkerCrash", err)
	}
}

func TestMessageLifecycle(t *testing.T) {
	l := &fakeLauncher{}
	c, flags := newTestClient(t, l)
	ctx := context.Background()

	if err := c.Message(ctx, ""); err != nil {
		t.Fatalf("Message(\"\") error = %v", err)
	}
	if len(l.runs) != 0 || len(l.starts) != 0 {
		t.Fatal("empty message with nothing open should not spawn anything")
	}

	if err := c.Message(ctx, "A", WithTitle("Status")); err != nil {
		t.Fatalf("Message(A) error = %v", err)
	}
	if err := c.Message(ctx, "B"); err != nil {
		t.Fatalf("Message(B) error = %v", err)
	}

	live, err := flags.Live()
	if err != nil {
		t.Fatalf("Live() error = %v", err)
	}
	if len(live) != 1 {
		t.Fatalf("live flag files = %v, want exactly one", live)
	}
	if len(l.starts) != 2 {
		t.Fatalf("starts = %d, want 2", len(l.starts))
	}
	b := l.starts[1]
	if b.Message != "B" || b.FlagFile != live[0] {
		t.Errorf("live flag %q does not belong to B (%+v)", live[0], b)
	}
	if flags.Exists(l.starts[0].FlagFile) {
		t.Error("A's flag file survived")
	}

	if err := c.Message(ctx, ""); err != nil {
		t.Fatalf("Message(\"\") error = %v", err)
	}
	if live, _ := flags.Live(); len(live) != 0 {
		t.Errorf("live flag files after close = %v", live)
	}
	if len(l.starts) != 2 {
		t.Errorf("closing spawned a worker")
	}
}

func TestEmptyMessageClosesDespiteConflictingPlacement(t *testing.T) {
	l := &fakeLauncher{}
	c, flags := newTestClient(t, l)
	ctx := context.Background()

	if err := c.Message(ctx, "A"); err != nil {
		t.Fatalf("Message(A) error = %v", err)
	}
	if err := c.Message(ctx, "", Left(0), Right(0)); err != nil {
		t.Fatalf("Message(\"\", Left, Right) error = %v", err)
	}
	if live, _ := flags.Live(); len(live) != 0 {
		t.Errorf("live flag files after close = %v", live)
	}
}

func TestRejectedMessageStillClosesOpenWindow(t *testing.T) {
	tests := []struct {
		name    string
		replies map[protocol.Function]string
		opts    []Option
		wantErr error
	}{
		{
			name:    "conflicting placement",
			opts:    []Option{Top(0), Bottom(0)},
			wantErr: ErrInvalidArgument,
		},
		{
			name: "environment unavailable",
			replies: map[protocol.Function]string{
				protocol.FuncProbe: `["ModuleNotFoundError", "No module named 'tkinter'"]`,
			},
			wantErr: ErrEnvironment,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &fakeLauncher{replies: tt.replies}
			c, flags := newTestClient(t, l)

			// A window left open by an earlier caller.
			a, err := flags.Replace()
			if err != nil {
				t.Fatalf("Replace() error = %v", err)
			}

			err = c.Message(context.Background(), "B", tt.opts...)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Message(B) error = %v, want %v", err, tt.wantErr)
			}
			if flags.Exists(a) {
				t.Error("open message window survived a rejected replacement")
			}
			if live, _ := flags.Live(); len(live) != 0 {
				t.Errorf("live flag files = %v", live)
			}
			if l.spawned() != 0 {
				t.Errorf("rejected message spawned %d workers", l.spawned())
			}
		})
	}
}

func TestMessageStartFailureRemovesFlag(t *testing.T) {
	l := &fakeLauncher{startErr: &worker.StartError{Executable: "ltdi", Err: errors.New("not found")}}
	c, flags := newTestClient(t, l)

	err := c.Message(context.Background(), "A")
	if !errors.Is(err, ErrWorkerCrash) {
		t.Fatalf("Message() error = %v, want ErrWorkerCrash", err)
	}
	if live, _ := flags.Live(); len(live) != 0 {
		t.Errorf("orphaned flag files = %v", live)
	}
}

func TestCloseMessage(t *testing.T) {
	l := &fakeLauncher{}
	c, flags := newTestClient(t, l)
	if err := c.Message(context.Background(), "A"); err != nil {
		t.Fatal(err)
	}
	if err := c.CloseMessage(context.Background()); err != nil {
		t.Fatalf("CloseMessage() error = %v", err)
	}
	if live, _ := flags.Live(); len(live) != 0 {
		t.Errorf("live flag files = %v", live)
	}
}

func TestProbeOnceAtFirstUse(t *testing.T) {
	l := &fakeLauncher{replies: map[protocol.Function]string{protocol.FuncGetFolder: `["", "/x"]`}}
	c, _ := newTestClient(t, l)
	for i := 0; i < 3; i++ {
		if _, err := c.GetFolder(context.Background(), ""); err != nil {
			t.Fatalf("GetFolder() error = %v", err)
		}
	}
	probes := 0
	for _, r := range l.runs {
		if r.Function == protocol.FuncProbe {
			probes++
		}
	}
	if probes != 1 {
		t.Errorf("probes = %d, want 1", probes)
	}
}

func TestEnvironmentError(t *testing.T) {
	l := &fakeLauncher{replies: map[protocol.Function]string{
		protocol.FuncProbe: `["ModuleNotFoundError", "No module named 'tkinter'"]`,
	}}
	c, _ := newTestClient(t, l)

	_, err := c.ButtonDialog(context.Background(), "x", nil)
	if !errors.Is(err, ErrEnvironment) {
		t.Fatalf("error = %v, want ErrEnvironment", err)
	}
	if !strings.Contains(err.Error(), "tkinter") {
		t.Errorf("error lost its detail: %v", err)
	}
	if err := c.Message(context.Background(), "A"); !errors.Is(err, ErrEnvironment) {
		t.Errorf("Message() error = %v, want ErrEnvironment", err)
	}
	if l.spawned() != 0 {
		t.Errorf("dialogs spawned after a failed probe: %d", l.spawned())
	}
}

func TestSkipProbe(t *testing.T) {
	l := &fakeLauncher{replies: map[protocol.Function]string{protocol.FuncGetFilename: `["", "/x"]`}}
	c, err := New(Config{Launcher: l, Flags: flagfile.NewManager(memfs.New()), Pauser: noPause, SkipProbe: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetFilename(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	if len(l.runs) != 1 || l.runs[0].Function != protocol.FuncGetFilename {
		t.Errorf("runs = %+v, want only the dialog", l.runs)
	}
}

func TestWorkerCrash(t *testing.T) {
	l := &fakeLauncher{runErr: &worker.ExitError{Code: 1}}
	c, err := New(Config{Launcher: l, Flags: flagfile.NewManager(memfs.New()), Pauser: noPause, SkipProbe: true})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.ButtonDialog(context.Background(), "x", nil)
	if !errors.Is(err, ErrWorkerCrash) {
		t.Fatalf("error = %v, want ErrWorkerCrash", err)
	}
	var exit *worker.ExitError
	if !errors.As(err, &exit) || exit.Code != 1 {
		t.Errorf("error = %v, want wrapped ExitError", err)
	}
}

func TestPauserServicedWhileWaiting(t *testing.T) {
	l := &fakeLauncher{
		replies: map[protocol.Function]string{protocol.FuncButtonDialog: `["", 0]`},
		delay:   30 * time.Millisecond,
	}
	var serviced int
	pauser := wait.PauserFunc(func(ctx context.Context) error {
		serviced++
		time.Sleep(time.Millisecond)
		return nil
	})
	c, err := New(Config{Launcher: l, Flags: flagfile.NewManager(memfs.New()), Pauser: pauser, SkipProbe: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.ButtonDialog(context.Background(), "x", nil); err != nil {
		t.Fatal(err)
	}
	if serviced == 0 {
		t.Error("pauser never ran while the worker was busy")
	}
}

func TestContextCancelStopsWaiting(t *testing.T) {
	l := &fakeLauncher{delay: time.Hour}
	c, err := New(Config{Launcher: l, Flags: flagfile.NewManager(memfs.New()), SkipProbe: true,
		Pauser: wait.SleepPauser{Interval: time.Millisecond}})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.ButtonDialog(ctx, "x", nil)
	if !errors.Is(err, context.DeadlineExceeded) || !IsCancelled(err) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
}
