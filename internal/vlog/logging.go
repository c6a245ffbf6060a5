// Package vlog sets up Vectura's structured logging: a slog.Logger
// writing JSON to a size-rotated file, optionally tee'd to stderr.
// Grounded on the teacher's internal/logging package.
package vlog

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls logging setup.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the log file path. Empty disables file logging.
	FilePath string
	// MaxSizeMB is the rotation threshold in megabytes.
	MaxSizeMB int
	// MaxFiles is the number of rotated files retained.
	MaxFiles int
	// WriteToStderr also writes logs to stderr.
	WriteToStderr bool
}

// DefaultConfig returns sensible defaults for file logging under name's
// database directory.
func DefaultConfig(name string) Config {
	return Config{
		Level:         "info",
		FilePath:      DefaultLogPath(name),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// DebugConfig is DefaultConfig with debug-level logging.
func DebugConfig(name string) Config {
	cfg := DefaultConfig(name)
	cfg.Level = "debug"
	return cfg
}

// Setup initializes file-based logging and returns the logger plus a
// cleanup function that flushes and closes the log file.
func Setup(name string, cfg Config) (*slog.Logger, func(), error) {
	if err := EnsureLogDir(name); err != nil {
		return nil, nil, err
	}

	var writer *RotatingWriter
	var output io.Writer = io.Discard
	if cfg.FilePath != "" {
		w, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
		if err != nil {
			return nil, nil, err
		}
		writer = w
		output = writer
	}

	if cfg.WriteToStderr {
		if writer != nil {
			output = io.MultiWriter(writer, os.Stderr)
		} else {
			output = os.Stderr
		}
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})

	logger := slog.New(handler)

	cleanup := func() {
		if writer != nil {
			_ = writer.Sync()
			_ = writer.Close()
		}
	}

	return logger, cleanup, nil
}

// SetupDefault sets up debug-level logging for name and installs it as
// the process-wide default logger.
func SetupDefault(name string) (func(), error) {
	logger, cleanup, err := Setup(name, DebugConfig(name))
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	return cleanup, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromString converts a string level to slog.Level.
func LevelFromString(level string) slog.Level {
	return parseLevel(level)
}
