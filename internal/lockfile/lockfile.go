// SPDX-License-Identifier: MPL-2.0

// Package lockfile provides a pid-marker file lock for serializing
// access to shared state files such as the port registry. A marker left
// behind by a dead process is reclaimed instead of blocking forever.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
)

// ErrHeld is returned when another live process holds the lock.
var ErrHeld = errors.New("lock held by another process")

// Lock is a held filesystem lock. Release it with Unlock.
type Lock struct {
	path string
}

// Acquire takes the lock at path, creating the marker file exclusively.
// If the marker exists but its recorded pid is no longer alive, the
// stale marker is reclaimed and acquisition retried once.
func Acquire(path string) (*Lock, error) {
	l, err := tryAcquire(path)
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, ErrHeld) {
		return nil, err
	}

	owner, ok := ownerPID(path)
	if ok && processAlive(owner) {
		return nil, fmt.Errorf("%w (pid %d): %s", ErrHeld, owner, path)
	}

	log.Debug("reclaiming stale lock marker", "path", path, "pid", owner)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reclaim stale lock %s: %w", path, err)
	}
	return tryAcquire(path)
}

func tryAcquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrHeld
		}
		return nil, fmt.Errorf("create lock %s: %w", path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write lock %s: %w", path, err)
	}
	return &Lock{path: path}, nil
}

// Unlock removes the marker. Safe to call more than once.
func (l *Lock) Unlock() error {
	if l == nil || l.path == "" {
		return nil
	}
	path := l.path
	l.path = ""
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock %s: %w", path, err)
	}
	return nil
}

// Path returns the marker location, empty after Unlock.
func (l *Lock) Path() string { return l.path }

func ownerPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// processAlive reports whether pid still refers to a running process.
// Signal 0 probes existence without delivering anything.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	// EPERM means alive but owned by someone else.
	return errors.Is(err, syscall.EPERM)
}
