package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/holon-run/ltdi/pkg/protocol"
)

// TestHelperProcess is not a real test: it is the worker executable for the
// tests below, selected through GO_WANT_HELPER_PROCESS.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	req, err := protocol.DecodeRequest(os.Args[len(os.Args)-1])
	if err != nil {
		fmt.Print(`["invalid_argument", "bad request"]`)
		return
	}
	fmt.Fprintln(os.Stderr, "diagnostic from worker")
	switch req.Message {
	case "exit":
		os.Exit(3)
	case "sleep":
		time.Sleep(10 * time.Second)
	case "touch":
		_ = os.WriteFile(req.FlagFile, []byte("started"), 0o644)
	case "env":
		fmt.Printf(`["", %q]`, os.Getenv("LTDI_RENDERER"))
	default:
		fmt.Printf(`["", %q]`, req.Message)
	}
}

func helperLauncher(t *testing.T, extra Config) *ProcessLauncher {
	t.Helper()
	cfg := extra
	cfg.Executable = os.Args[0]
	cfg.Args = []string{"-test.run=TestHelperProcess", "--"}
	cfg.Env = append(cfg.Env, "GO_WANT_HELPER_PROCESS=1")
	return NewProcessLauncher(cfg)
}

func TestRunCapturesStdout(t *testing.T) {
	l := helperLauncher(t, Config{})
	out, err := l.Run(context.Background(), &protocol.Request{Function: protocol.FuncButtonDialog, Message: "hello"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := string(out); got != `["", "hello"]` {
		t.Errorf("Run() output = %q", got)
	}
	if strings.Contains(string(out), "diagnostic") {
		t.Error("stderr leaked into the reply")
	}
}

func TestRunPassesEnv(t *testing.T) {
	l := helperLauncher(t, Config{Env: Env("LTDI_RENDERER", "script")})
	out, err := l.Run(context.Background(), &protocol.Request{Function: protocol.FuncProbe, Message: "env"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := string(out); got != `["", "script"]` {
		t.Errorf("Run() output = %q", got)
	}
}

func TestRunDiagnosticLog(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "worker.log")
	l := helperLauncher(t, Config{DiagnosticLog: logPath})
	if _, err := l.Run(context.Background(), &protocol.Request{Function: protocol.FuncProbe}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "diagnostic from worker") {
		t.Errorf("diagnostic log = %q", data)
	}
}

func TestRunExitError(t *testing.T) {
	l := helperLauncher(t, Config{})
	_, err := l.Run(context.Background(), &protocol.Request{Function: protocol.FuncProbe, Message: "exit"})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Run() error = %v, want *ExitError", err)
	}
	if exitErr.Code != 3 {
		t.Errorf("exit code = %d, want 3", exitErr.Code)
	}
}

func TestRunMissingExecutable(t *testing.T) {
	l := NewProcessLauncher(Config{Executable: filepath.Join(t.TempDir(), "no-such-worker")})
	_, err := l.Run(context.Background(), &protocol.Request{Function: protocol.FuncProbe})
	var startErr *StartError
	if !errors.As(err, &startErr) {
		t.Fatalf("Run() error = %v, want *StartError", err)
	}

	err = l.Start(context.Background(), &protocol.Request{Function: protocol.FuncMessage, FlagFile: "x"})
	if !errors.As(err, &startErr) {
		t.Fatalf("Start() error = %v, want *StartError", err)
	}
}

func TestRunCancelKillsWorker(t *testing.T) {
	l := helperLauncher(t, Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := l.Run(ctx, &protocol.Request{Function: protocol.FuncProbe, Message: "sleep"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("worker was not killed on cancellation")
	}
}

func TestStartDoesNotWait(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "started")
	l := helperLauncher(t, Config{})
	err := l.Start(context.Background(), &protocol.Request{Function: protocol.FuncMessage, Message: "touch", FlagFile: marker})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(marker); err == nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("detached worker never ran")
}

func TestResolve(t *testing.T) {
	if _, err := Resolve(""); err == nil {
		t.Error("Resolve(\"\") should fail")
	}
	path, err := Resolve(os.Args[0])
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !filepath.IsAbs(path) {
		t.Errorf("Resolve() = %q, want absolute", path)
	}
}

func TestEnv(t *testing.T) {
	if got := Env("A", ""); got != nil {
		t.Errorf("Env with empty value = %v", got)
	}
	if got := Env("A", "b"); len(got) != 1 || got[0] != "A=b" {
		t.Errorf("Env() = %v", got)
	}
}
