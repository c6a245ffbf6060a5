package vlog

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory for a named database,
// $HOME/VecturaKit/<name>/logs, falling back to a temp directory if the
// home directory is unavailable.
func DefaultLogDir(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "VecturaKit", name, "logs")
	}
	return filepath.Join(home, "VecturaKit", name, "logs")
}

// DefaultLogPath returns the default log file path for a named database.
func DefaultLogPath(name string) string {
	return filepath.Join(DefaultLogDir(name), "vectura.log")
}

// EnsureLogDir creates the log directory for name if it doesn't exist.
func EnsureLogDir(name string) error {
	return os.MkdirAll(DefaultLogDir(name), 0o700)
}
