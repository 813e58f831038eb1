// SPDX-License-Identifier: MPL-2.0

package ports

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/goobits/vm/internal/config"
	"github.com/goobits/vm/internal/lockfile"
)

const registryFileName = "port-registry.json"

// ErrExhausted is returned when no free range of the requested size
// exists below the port ceiling.
var ErrExhausted = errors.New("no free port range available")

// Conflict names one registered project whose range overlaps a
// candidate.
type Conflict struct {
	Project string
	Range   Range
}

// ConflictError reports every overlapping registration, not just the
// first.
type ConflictError struct {
	Requested Range
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	parts := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		parts[i] = fmt.Sprintf("%s (%s)", c.Project, c.Range)
	}
	return fmt.Sprintf("port range %s conflicts with: %s", e.Requested, strings.Join(parts, ", "))
}

// Entry is one project's registration as persisted on disk.
type Entry struct {
	Range string `json:"range"`
	Path  string `json:"path"`
}

// Registry is the persisted project-to-range mapping. All mutating
// operations re-read the file under a lock, apply the change, and
// atomically replace the file, so concurrent vm processes never clobber
// each other.
type Registry struct {
	path    string
	entries map[string]Entry
}

// Load opens the registry in the user state directory, creating an
// empty one on first use.
func Load() (*Registry, error) {
	dir, err := config.UserDir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(filepath.Join(dir, registryFileName))
}

// LoadFrom opens the registry at an explicit path.
func LoadFrom(path string) (*Registry, error) {
	r := &Registry{path: path}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) reload() error {
	r.entries = map[string]Entry{}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read port registry %s: %w", r.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &r.entries); err != nil {
		return fmt.Errorf("parse port registry %s: %w", r.path, err)
	}
	return nil
}

// Get returns the registered range for a project.
func (r *Registry) Get(project string) (Range, bool) {
	entry, ok := r.entries[project]
	if !ok {
		return Range{}, false
	}
	rng, err := ParseRange(entry.Range)
	if err != nil {
		return Range{}, false
	}
	return rng, true
}

// conflicts collects every registration overlapping rng, skipping the
// named project so re-registering the same project is not a
// self-conflict.
func (r *Registry) conflicts(rng Range, exclude string) []Conflict {
	var out []Conflict
	for project, entry := range r.entries {
		if project == exclude {
			continue
		}
		other, err := ParseRange(entry.Range)
		if err != nil {
			continue
		}
		if rng.Overlaps(other) {
			out = append(out, Conflict{Project: project, Range: other})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Project < out[j].Project })
	return out
}

// Register assigns rng to the project, rejecting any overlap with other
// registrations. The registry file is re-read under the lock so a
// concurrent registration since Load cannot be missed.
func (r *Registry) Register(project string, rng Range, projectPath string) error {
	return r.update(func() error {
		if cs := r.conflicts(rng, project); len(cs) > 0 {
			return &ConflictError{Requested: rng, Conflicts: cs}
		}
		r.entries[project] = Entry{Range: rng.String(), Path: projectPath}
		return nil
	})
}

// Unregister removes the project's registration. Removing an absent
// project is not an error.
func (r *Registry) Unregister(project string) error {
	return r.update(func() error {
		delete(r.entries, project)
		return nil
	})
}

func (r *Registry) update(apply func() error) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create registry directory: %w", err)
	}

	lock, err := lockfile.Acquire(r.path + ".lock")
	if err != nil {
		return fmt.Errorf("lock port registry: %w", err)
	}
	defer lock.Unlock()

	if err := r.reload(); err != nil {
		return err
	}
	if err := apply(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(r.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode port registry: %w", err)
	}
	if err := atomic.WriteFile(r.path, bytes.NewReader(append(data, '\n'))); err != nil {
		return fmt.Errorf("write port registry %s: %w", r.path, err)
	}
	return nil
}

// SuggestNext returns the first range of the given size, starting at
// floor and stepping by size, that overlaps no registration.
func (r *Registry) SuggestNext(size, floor int) (Range, error) {
	if size < 1 || floor < 1 {
		return Range{}, fmt.Errorf("%w: size %d, floor %d", ErrRangeInvalid, size, floor)
	}
	for start := floor; start+size-1 <= maxPort; start += size {
		candidate, err := NewRange(start, start+size-1)
		if err != nil {
			break
		}
		if len(r.conflicts(candidate, "")) == 0 {
			return candidate, nil
		}
	}
	return Range{}, fmt.Errorf("%w: no %d-port range free at or above %d", ErrExhausted, size, floor)
}

// ListEntry is one row of List output.
type ListEntry struct {
	Project string
	Range   string
	Path    string
}

// List returns all registrations sorted by project name.
func (r *Registry) List() []ListEntry {
	out := make([]ListEntry, 0, len(r.entries))
	for project, entry := range r.entries {
		out = append(out, ListEntry{Project: project, Range: entry.Range, Path: entry.Path})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Project < out[j].Project })
	return out
}
