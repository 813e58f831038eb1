// SPDX-License-Identifier: MPL-2.0

// Package tempfiles tracks temporary artifacts (generated descriptors,
// scratch directories) so they are released on every exit path,
// including signal-driven shutdown. As a backstop against registration
// bugs, Cleanup refuses to delete anything outside the system temp
// directory.
package tempfiles

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// Manifest records temporary paths for later removal. It is safe for
// concurrent use.
type Manifest struct {
	mu      sync.Mutex
	paths   []string
	tmpRoot string
}

// NewManifest returns an empty manifest rooted at the system temp
// directory.
func NewManifest() *Manifest {
	return &Manifest{tmpRoot: filepath.Clean(os.TempDir())}
}

// Register adds a path to the manifest. Paths outside the temp root are
// recorded but never deleted; Cleanup reports them instead.
func (m *Manifest) Register(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = append(m.paths, filepath.Clean(path))
}

// CreateTemp creates a tracked temporary file with the given name
// pattern and returns it open for writing.
func (m *Manifest) CreateTemp(pattern string) (*os.File, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	m.Register(f.Name())
	return f, nil
}

// CreateDir creates a tracked temporary directory.
func (m *Manifest) CreateDir(pattern string) (string, error) {
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	m.Register(dir)
	return dir, nil
}

// Len reports how many paths are currently tracked.
func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.paths)
}

// Cleanup removes every tracked path and empties the manifest. It keeps
// going past individual failures and returns them joined. Paths outside
// the temp root are skipped with a warning rather than deleted.
func (m *Manifest) Cleanup() error {
	m.mu.Lock()
	paths := m.paths
	m.paths = nil
	m.mu.Unlock()

	var errs []error
	for _, p := range paths {
		if !m.underTmpRoot(p) {
			log.Warn("refusing to clean path outside temp directory", "path", p)
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

// underTmpRoot requires strict nesting: the temp root itself is never a
// deletable entry, so a corrupted manifest cannot wipe the whole temp
// directory.
func (m *Manifest) underTmpRoot(p string) bool {
	return p != m.tmpRoot && strings.HasPrefix(p, m.tmpRoot+string(filepath.Separator))
}

var defaultManifest = NewManifest()

// Default returns the process-wide manifest used by command plumbing.
func Default() *Manifest { return defaultManifest }
