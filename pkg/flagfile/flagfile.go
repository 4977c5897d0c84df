// Package flagfile keeps message windows alive through sentinel files.
//
// The caller creates one file per message window and deletes it to close the
// window; the worker polls for the file and exits once it is gone. Every new
// message sweeps the files left by earlier ones, so at most one message window
// is live per state directory.
package flagfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	ltdilog "github.com/holon-run/ltdi/pkg/log"
	"github.com/holon-run/ltdi/pkg/pathutil"
)

// Prefix starts the name of every flag file.
const Prefix = "ltdi_message_flag"

const notice = "DELETE THIS FILE TO CLOSE THE MESSAGE WINDOW.\n"

// Manager creates and removes flag files in one directory.
// It is safe for concurrent use.
type Manager struct {
	fs  billy.Filesystem
	pid int

	mu      sync.Mutex
	counter int
}

// NewManager returns a manager over fs. Tests pass a memfs.
func NewManager(fs billy.Filesystem) *Manager {
	return &Manager{fs: fs, pid: os.Getpid()}
}

// Open returns a manager for dir on the OS filesystem, creating dir if needed.
func Open(dir string) (*Manager, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve state dir %s: %w", dir, err)
	}
	if pathutil.IsFilesystemRoot(abs) {
		return nil, fmt.Errorf("refusing to use filesystem root %s as state dir", abs)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state dir %s: %w", abs, err)
	}
	return NewManager(osfs.New(abs)), nil
}

// Dir returns the directory flag files live in.
func (m *Manager) Dir() string {
	return m.fs.Root()
}

// Replace sweeps every existing flag file and then creates a new one,
// returning its path. The sweep always happens before the create.
func (m *Manager) Replace() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.sweep(); err != nil {
		return "", err
	}
	return m.create()
}

// Sweep removes every flag file in the directory and reports how many were
// removed.
func (m *Manager) Sweep() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweep()
}

func (m *Manager) sweep() (int, error) {
	names, err := m.list()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, name := range names {
		err := m.fs.Remove(name)
		switch {
		case err == nil:
			removed++
		case errors.Is(err, os.ErrNotExist):
			// Already gone.
		default:
			return removed, fmt.Errorf("failed to remove flag file %s: %w", name, err)
		}
	}
	if removed > 0 {
		ltdilog.Debug("swept message flag files", "dir", m.Dir(), "count", removed)
	}
	return removed, nil
}

func (m *Manager) create() (string, error) {
	m.counter++
	name := fmt.Sprintf("%s-%d-%d", Prefix, m.pid, m.counter)

	f, err := m.fs.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create flag file %s: %w", name, err)
	}
	if _, err := f.Write([]byte(notice)); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write flag file %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close flag file %s: %w", name, err)
	}
	return m.fs.Join(m.fs.Root(), name), nil
}

// Remove deletes one flag file by path. Removing a missing file is not an
// error.
func (m *Manager) Remove(path string) error {
	name, err := m.rel(path)
	if err != nil {
		return err
	}
	if err := m.fs.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove flag file %s: %w", path, err)
	}
	return nil
}

// Exists reports whether the flag file at path is still present.
func (m *Manager) Exists(path string) bool {
	name, err := m.rel(path)
	if err != nil {
		return false
	}
	return exists(m.fs, name)
}

// Live returns the paths of the flag files currently present, sorted.
func (m *Manager) Live() ([]string, error) {
	names, err := m.list()
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, m.fs.Join(m.fs.Root(), name))
	}
	return paths, nil
}

func (m *Manager) list() ([]string, error) {
	entries, err := m.fs.ReadDir(".")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list state dir %s: %w", m.Dir(), err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), Prefix) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (m *Manager) rel(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return path, nil
	}
	rel, err := filepath.Rel(m.fs.Root(), path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("flag file %s is outside %s", path, m.Dir())
	}
	return rel, nil
}

func exists(fs billy.Basic, name string) bool {
	_, err := fs.Stat(name)
	return err == nil
}
