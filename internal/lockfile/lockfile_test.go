// SPDX-License-Identifier: MPL-2.0

package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireAndUnlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.lock")

	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("marker missing after Acquire: %v", err)
	}
	if err := l.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("marker still present after Unlock")
	}
	// Second Unlock is a no-op.
	if err := l.Unlock(); err != nil {
		t.Errorf("repeated Unlock: %v", err)
	}
}

func TestAcquire_HeldByLiveProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.lock")

	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer l.Unlock()

	//The marker pid is our own, which is certainly alive.
	if _, err := Acquire(path); !errors.Is(err, ErrHeld) {
		t.Errorf("second Acquire = %v, want ErrHeld", err)
	}
}

func TestAcquire_ReclaimsStaleMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.lock")

	// A pid that cannot be a live process.
	if err := os.WriteFile(path, []byte("999999999\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire over stale marker: %v", err)
	}
	defer l.Unlock()

	owner, ok := ownerPID(path)
	if !ok || owner != os.Getpid() {
		t.Errorf("marker pid = %d, want %d", owner, os.Getpid())
	}
}

func TestAcquire_ReclaimsGarbageMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.lock")

	if err := os.WriteFile(path, []byte("not-a-pid"), 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire over garbage marker: %v", err)
	}
	l.Unlock()
}
