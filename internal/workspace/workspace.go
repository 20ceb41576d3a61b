package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/recreate-skps/internal/logfields"
)

// Manager handles the persistent checkout root. Source trees below it survive
// across runs so incremental checkouts can reuse them.
type Manager struct {
	root string
}

// NewManager creates a manager rooted at root (the current directory when empty).
func NewManager(root string) *Manager {
	if root == "" {
		root = "."
	}
	return &Manager{root: root}
}

// Create ensures the root directory exists.
func (m *Manager) Create() error {
	if err := os.MkdirAll(m.root, 0o750); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}
	slog.Debug("Using workspace", logfields.Path(m.root))
	return nil
}

// FS implements the recipe's file operations on the local filesystem.
type FS struct{}

// ResetDir removes path if it exists, then recreates it empty.
func (FS) ResetDir(path string) error {
	if path == "" || filepath.Clean(path) == "/" {
		return fmt.Errorf("refusing to reset %q", path)
	}
	if Exists(path) {
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
		slog.Debug("Removed directory", logfields.Path(path))
	}
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	return nil
}

// Exists reports whether path exists.
func (FS) Exists(path string) bool { return Exists(path) }

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}

// DryRunFS logs directory resets without touching the filesystem.
type DryRunFS struct{}

func (DryRunFS) ResetDir(path string) error {
	slog.Info("Dry run: would reset directory", logfields.Path(path))
	return nil
}

func (DryRunFS) Exists(path string) bool { return Exists(path) }
