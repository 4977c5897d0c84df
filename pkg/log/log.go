// Package log is the process-wide structured logger.
//
// Logs never go to standard output: in a worker process stdout carries the
// encoded reply, so the default sink is standard error, or a file when one
// is configured.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the verbosity of logging
type LogLevel string

const (
	// LevelDebug enables all logs
	LevelDebug LogLevel = "debug"
	// LevelInfo enables info, warning, and error logs
	LevelInfo LogLevel = "info"
	// LevelProgress enables progress, warning, and error logs (default)
	LevelProgress LogLevel = "progress"
	// LevelMinimal enables only warning and error logs
	LevelMinimal LogLevel = "minimal"
	// LevelWarn enables only warning and error logs (alias for minimal)
	LevelWarn LogLevel = "warn"
	// LevelError enables only error logs
	LevelError LogLevel = "error"
)

// global logger instance
var (
	globalLogger  *zap.SugaredLogger
	globalCleanup func()
	globalMutex   sync.RWMutex
)

// Config holds logger configuration
type Config struct {
	Level  LogLevel
	Format string // "console" or "json"
	// File, when set, receives all log output instead of Output.
	File string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:  LevelProgress,
		Format: "console",
	}
}

// ParseLevel validates a level name from a flag or config file.
func ParseLevel(s string) (LogLevel, error) {
	level := LogLevel(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := mapLevelToZapLevel(level); !ok {
		return "", fmt.Errorf("unknown log level %q (want debug, info, progress, minimal, warn or error)", s)
	}
	return level, nil
}

// Init initializes the global logger with the given configuration
func Init(cfg Config) error {
	logger, cleanup, err := build(cfg)
	if err != nil {
		return err
	}

	globalMutex.Lock()
	defer globalMutex.Unlock()
	if globalLogger != nil {
		_ = globalLogger.Sync()
	}
	if globalCleanup != nil {
		globalCleanup()
	}
	globalLogger = logger
	globalCleanup = cleanup
	return nil
}

// mapLevelToZapLevel maps our log level to zap level. Unknown levels map to
// info and report false.
func mapLevelToZapLevel(level LogLevel) (zapcore.Level, bool) {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel, true
	case LevelInfo:
		return zapcore.InfoLevel, true
	case LevelProgress:
		// Progress maps to Info level for now
		return zapcore.InfoLevel, true
	case LevelMinimal, LevelWarn:
		return zapcore.WarnLevel, true
	case LevelError:
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

// buildEncoderConfig creates the encoder configuration for console output
func buildEncoderConfig(color bool) zapcore.EncoderConfig {
	levelEncoder := zapcore.CapitalLevelEncoder
	if color {
		levelEncoder = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.EncoderConfig{
		TimeKey:        "T",
		LevelKey:       "L",
		NameKey:        "N",
		CallerKey:      "C",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "M",
		StacktraceKey:  "S",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    levelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func build(cfg Config) (*zap.SugaredLogger, func(), error) {
	zapLevel, _ := mapLevelToZapLevel(cfg.Level)

	var (
		sink    zapcore.WriteSyncer
		cleanup func()
		color   bool
	)
	switch {
	case cfg.File != "":
		ws, closeFn, err := zap.Open(cfg.File)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
		}
		sink, cleanup = ws, closeFn
	case cfg.Output != nil:
		sink = zapcore.AddSync(cfg.Output)
	default:
		sink = zapcore.Lock(os.Stderr)
		color = true
	}

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(buildEncoderConfig(false))
	} else {
		encoder = zapcore.NewConsoleEncoder(buildEncoderConfig(color))
	}

	core := zapcore.NewCore(encoder, sink, zapLevel)
	logger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger.Sugar(), cleanup, nil
}

// Get returns the global logger
// If not initialized, it initializes with default config
func Get() *zap.SugaredLogger {
	globalMutex.RLock()
	logger := globalLogger
	globalMutex.RUnlock()

	if logger != nil {
		return logger
	}

	// Build outside the lock; Init also takes it.
	loggerToSet, _, err := build(DefaultConfig())
	if err != nil {
		loggerToSet = zap.NewNop().Sugar()
	}

	globalMutex.Lock()
	defer globalMutex.Unlock()

	// Check again in case another goroutine initialized while we were creating
	if globalLogger != nil {
		return globalLogger
	}

	globalLogger = loggerToSet
	return globalLogger
}

// Debug logs a debug message
func Debug(msg string, args ...interface{}) {
	Get().Debugw(msg, args...)
}

// Debugf logs a formatted debug message
func Debugf(template string, args ...interface{}) {
	Get().Debugf(template, args...)
}

// Info logs an info message
func Info(msg string, args ...interface{}) {
	Get().Infow(msg, args...)
}

// Infof logs a formatted info message
func Infof(template string, args ...interface{}) {
	Get().Infof(template, args...)
}

// Progress logs a progress message (maps to Info level)
func Progress(msg string, args ...interface{}) {
	Get().Infow(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...interface{}) {
	Get().Warnw(msg, args...)
}

// Warnf logs a formatted warning message
func Warnf(template string, args ...interface{}) {
	Get().Warnf(template, args...)
}

// Error logs an error message
func Error(msg string, args ...interface{}) {
	Get().Errorw(msg, args...)
}

// Errorf logs a formatted error message
func Errorf(template string, args ...interface{}) {
	Get().Errorf(template, args...)
}

// With returns a logger with additional fields
func With(args ...interface{}) *zap.SugaredLogger {
	return Get().With(args...)
}

// Sync flushes any buffered log entries
func Sync() error {
	globalMutex.RLock()
	logger := globalLogger
	globalMutex.RUnlock()

	if logger != nil {
		return logger.Sync()
	}
	return nil
}

// Reset resets the global logger (mainly for testing)
func Reset() {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	if globalLogger != nil {
		_ = globalLogger.Sync()
	}
	if globalCleanup != nil {
		globalCleanup()
	}
	globalLogger = nil
	globalCleanup = nil
}
