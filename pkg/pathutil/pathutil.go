package pathutil

import (
	"os"
	"path/filepath"
	"runtime"
)

// StateDirName is the directory holding message flag files.
const StateDirName = "limitedinteraction"

// DefaultStateDir returns the per-user directory for flag files:
// %TEMP%\limitedinteraction on Windows, $TMPDIR/limitedinteraction on macOS,
// and ~/.limitedinteraction elsewhere.
func DefaultStateDir() (string, error) {
	return stateDir(runtime.GOOS, os.Getenv, os.UserHomeDir)
}

func stateDir(goos string, getenv func(string) string, home func() (string, error)) (string, error) {
	switch {
	case goos == "windows" && getenv("TEMP") != "":
		return filepath.Join(getenv("TEMP"), StateDirName), nil
	case goos == "darwin" && getenv("TMPDIR") != "":
		return filepath.Join(getenv("TMPDIR"), StateDirName), nil
	}
	dir, err := home()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "."+StateDirName), nil
}

// IsFilesystemRoot reports whether path points to filesystem root (POSIX or Windows volume root).
func IsFilesystemRoot(path string) bool {
	clean := filepath.Clean(path)
	if clean == string(filepath.Separator) {
		return true
	}
	volume := filepath.VolumeName(clean)
	return volume != "" && clean == volume+string(filepath.Separator)
}
