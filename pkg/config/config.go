// Package config loads the ltdi configuration file and applies environment
// overrides on top of it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ltdilog "github.com/holon-run/ltdi/pkg/log"
	"github.com/holon-run/ltdi/pkg/pathutil"
	"github.com/holon-run/ltdi/pkg/renderer"
	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvWorker       = "LTDI_WORKER"
	EnvRenderer     = "LTDI_RENDERER"
	EnvStateDir     = "LTDI_STATE_DIR"
	EnvLogLevel     = "LTDI_LOG_LEVEL"
	EnvPollInterval = "LTDI_POLL_INTERVAL"
	EnvWorkerLog    = "LTDI_WORKER_LOG"
)

const (
	CurrentVersion      = "v1"
	DefaultPollInterval = 200 * time.Millisecond
)

// Config is the on-disk configuration.
type Config struct {
	Version string `yaml:"version"`
	// Worker is the executable run for each dialog. Empty means this binary.
	Worker string `yaml:"worker,omitempty"`
	// Renderer is auto, gui, term or script.
	Renderer     string        `yaml:"renderer,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
	StateDir     string        `yaml:"state_dir,omitempty"`
	LogLevel     string        `yaml:"log_level,omitempty"`
	// WorkerLog receives the standard error of every worker.
	WorkerLog string `yaml:"worker_log,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Version:      CurrentVersion,
		Renderer:     renderer.Auto,
		PollInterval: DefaultPollInterval,
		LogLevel:     string(ltdilog.LevelProgress),
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/ltdi/config.yaml, falling back to the
// platform user config directory.
func DefaultPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ltdi", "config.yaml"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config dir: %w", err)
	}
	return filepath.Join(dir, "ltdi", "config.yaml"), nil
}

// Load reads the file at path over the defaults. An empty path means
// DefaultPath, which may be missing; an explicit path must exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if strings.TrimSpace(cfg.Version) == "" {
		cfg.Version = CurrentVersion
	}
	if cfg.Version != CurrentVersion {
		return Config{}, fmt.Errorf("unsupported config version %q in %s", cfg.Version, path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating its directory.
func Save(path string, cfg Config) error {
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Worker, EnvWorker)
	set(&c.Renderer, EnvRenderer)
	set(&c.StateDir, EnvStateDir)
	set(&c.LogLevel, EnvLogLevel)
	set(&c.WorkerLog, EnvWorkerLog)

	if v := strings.TrimSpace(getenv(EnvPollInterval)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPollInterval, v, err)
		}
		c.PollInterval = d
	}
	return c.Validate()
}

// Validate checks field values.
func (c Config) Validate() error {
	switch c.Renderer {
	case "", renderer.Auto, renderer.GUI, renderer.Term, renderer.Script:
	default:
		return fmt.Errorf("renderer must be auto, gui, term or script: %q", c.Renderer)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("poll_interval cannot be negative: %s", c.PollInterval)
	}
	if c.LogLevel != "" {
		if _, err := ltdilog.ParseLevel(c.LogLevel); err != nil {
			return err
		}
	}
	if c.StateDir != "" {
		if abs, err := filepath.Abs(c.StateDir); err == nil && pathutil.IsFilesystemRoot(abs) {
			return fmt.Errorf("state_dir cannot be filesystem root: %q", c.StateDir)
		}
	}
	return nil
}

// ResolveStateDir returns the configured state directory or the platform
// default.
func (c Config) ResolveStateDir() string {
	if c.StateDir != "" {
		return c.StateDir
	}
	dir, err := pathutil.DefaultStateDir()
	if err != nil {
		ltdilog.Warn("no home directory, keeping flag files in the working directory", "error", err)
		return "."
	}
	return dir
}
