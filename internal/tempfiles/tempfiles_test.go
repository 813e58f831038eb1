// SPDX-License-Identifier: MPL-2.0

package tempfiles

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCreateTempAndCleanup(t *testing.T) {
	m := NewManifest()

	f, err := m.CreateTemp("runtime-*.yaml")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	name := f.Name()
	f.Close()

	dir, err := m.CreateDir("scratch-*")
	if err != nil {
		t.Fatalf("CreateDir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "inner"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}
	if err := m.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(name); !os.IsNotExist(err) {
		t.Errorf("temp file %s survived cleanup", name)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("temp dir %s survived cleanup", dir)
	}
	if m.Len() != 0 {
		t.Errorf("Len after cleanup = %d, want 0", m.Len())
	}
}

func TestCleanup_SkipsPathsOutsideTempRoot(t *testing.T) {
	m := NewManifest()
	m.tmpRoot = filepath.Join(os.TempDir(), "fenced-root")

	outside := t.TempDir()
	keep := filepath.Join(outside, "keep.txt")
	if err := os.WriteFile(keep, []byte("important"), 0o644); err != nil {
		t.Fatal(err)
	}
	m.Register(keep)

	if err := m.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Errorf("file outside temp root was deleted: %v", err)
	}
}

func TestCleanup_NeverRemovesTempRootItself(t *testing.T) {
	m := NewManifest()
	root := t.TempDir()
	m.tmpRoot = root

	// A corrupted manifest entry naming the temp root itself must not
	// wipe the directory.
	inner := filepath.Join(root, "inner.txt")
	if err := os.WriteFile(inner, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	m.Register(root)

	if err := m.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(inner); err != nil {
		t.Errorf("temp root contents deleted: %v", err)
	}
}

func TestCleanup_Idempotent(t *testing.T) {
	m := NewManifest()
	if err := m.Cleanup(); err != nil {
		t.Fatalf("Cleanup of empty manifest: %v", err)
	}
	if err := m.Cleanup(); err != nil {
		t.Fatalf("second Cleanup: %v", err)
	}
}
