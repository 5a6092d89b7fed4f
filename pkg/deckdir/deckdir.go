// Package deckdir encapsulates path knowledge for the .obsdeck/ directory
// that holds persisted credentials and audio presets. It provides a Dir
// value object with accessors for the files inside; no I/O happens until
// Ensure.
package deckdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// Dir is a value object that resolves paths within an .obsdeck/ directory.
type Dir struct {
	root string
}

// New creates a Dir rooted at the given path. The path is converted to an
// absolute path; no I/O is performed.
func New(root string) Dir {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	return Dir{root: abs}
}

// Default returns a Dir under the user's home directory (~/.obsdeck).
func Default() (Dir, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Dir{}, fmt.Errorf("deckdir: resolve home: %w", err)
	}
	return New(filepath.Join(home, ".obsdeck")), nil
}

// Root returns the absolute path to the .obsdeck/ directory.
func (d Dir) Root() string { return d.root }

// CredentialsPath returns the path to the stored connection credentials.
func (d Dir) CredentialsPath() string { return filepath.Join(d.root, "credentials.yaml") }

// PresetsPath returns the path to the audio presets file.
func (d Dir) PresetsPath() string { return filepath.Join(d.root, "presets.yaml") }

// Exists reports whether the root directory exists on disk.
func (d Dir) Exists() bool {
	info, err := os.Stat(d.root)
	return err == nil && info.IsDir()
}

// Ensure creates the directory with owner-only permissions. Credentials
// live here, so group/world access is never granted.
func (d Dir) Ensure() error {
	if err := os.MkdirAll(d.root, 0o700); err != nil {
		return fmt.Errorf("deckdir: create %s: %w", d.root, err)
	}
	return nil
}
