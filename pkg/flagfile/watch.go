package flagfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// PollInterval is how often a worker checks that its flag file still exists.
const PollInterval = 200 * time.Millisecond

// Watch returns a context that is cancelled on the first poll that finds
// name missing from fs, or when parent ends.
func Watch(parent context.Context, fs billy.Basic, name string, interval time.Duration) (context.Context, context.CancelFunc) {
	if interval <= 0 {
		interval = PollInterval
	}
	ctx, cancel := context.WithCancel(parent)
	go func() {
		defer cancel()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for exists(fs, name) {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return ctx, cancel
}

// WatchPath watches a flag file on the OS filesystem.
func WatchPath(parent context.Context, path string, interval time.Duration) (context.Context, context.CancelFunc) {
	return Watch(parent, osfs.New(filepath.Dir(path)), filepath.Base(path), interval)
}

// RemovePath deletes a flag file on the OS filesystem. A missing file is not
// an error.
func RemovePath(path string) error {
	fs := osfs.New(filepath.Dir(path))
	if err := fs.Remove(filepath.Base(path)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove flag file %s: %w", path, err)
	}
	return nil
}
