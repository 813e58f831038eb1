// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goobits/vm/internal/testutil"
)

func TestParseYAML_ScalarKinds(t *testing.T) {
	doc, err := ParseYAML("test", []byte(`
str: hello
num: 42
flt: 1.5
yes: true
nothing: null
`))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}

	tests := []struct {
		key  string
		kind Kind
	}{
		{"str", KindString},
		{"num", KindNumber},
		{"flt", KindNumber},
		{"yes", KindBool},
		{"nothing", KindNull},
	}
	for _, tt := range tests {
		v, ok := doc.Field(tt.key)
		if !ok {
			t.Errorf("missing key %q", tt.key)
			continue
		}
		if v.Kind() != tt.kind {
			t.Errorf("%s kind = %s, want %s", tt.key, v.Kind(), tt.kind)
		}
	}
}

func TestParseYAML_InvalidDocument(t *testing.T) {
	_, err := ParseYAML("broken", []byte("a: [1, 2\nb: }"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !errors.Is(err, ErrParse) {
		t.Errorf("error %v is not ErrParse", err)
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error %T is not *ParseError", err)
	}
	if pe.Layer != "broken" {
		t.Errorf("layer = %q, want broken", pe.Layer)
	}
}

func TestParseYAML_EmptyDocumentIsNull(t *testing.T) {
	doc, err := ParseYAML("empty", nil)
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	if !doc.IsNull() {
		t.Errorf("empty document = %s, want null", doc.Render())
	}
}

func TestDefaults_ParsesAndHasExpectedKeys(t *testing.T) {
	layer, err := Defaults()
	if err != nil {
		t.Fatalf("Defaults: %v", err)
	}
	provider, ok := Get(layer.Doc, "provider")
	if !ok || provider.AsString() != "docker" {
		t.Errorf("provider = %v, want docker", provider.Render())
	}
	mem, ok := Get(layer.Doc, "vm.memory")
	if !ok || mem.AsNumber() != 2048 {
		t.Errorf("vm.memory = %v, want 2048", mem.Render())
	}
}

func TestLoad_ProjectOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	project := `
provider: vagrant
vm:
  memory: 4096
services:
  postgresql:
    enabled: true
`
	if err := os.WriteFile(filepath.Join(dir, ProjectFileName), []byte(project), 0o644); err != nil {
		t.Fatal(err)
	}

	resolved, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	provider, _ := Get(resolved, "provider")
	if provider.AsString() != "vagrant" {
		t.Errorf("provider = %q, want vagrant", provider.AsString())
	}
	mem, _ := Get(resolved, "vm.memory")
	if mem.AsNumber() != 4096 {
		t.Errorf("vm.memory = %v, want 4096", mem.AsNumber())
	}
	// Keys only present in defaults survive.
	cpus, ok := Get(resolved, "vm.cpus")
	if !ok || cpus.AsNumber() != 2 {
		t.Errorf("vm.cpus = %v, want 2", cpus.Render())
	}
}

func TestLoad_UnknownPreset(t *testing.T) {
	if _, err := Load(t.TempDir(), "no-such-preset"); err == nil {
		t.Fatal("expected error for unknown preset")
	}
}

func TestLoad_PresetBetweenDefaultsAndProject(t *testing.T) {
	dir := t.TempDir()
	project := `
services:
  redis:
    enabled: false
`
	if err := os.WriteFile(filepath.Join(dir, ProjectFileName), []byte(project), 0o644); err != nil {
		t.Fatal(err)
	}

	resolved, err := Load(dir, "rails")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Preset enables postgresql; project does not touch it.
	pg, _ := Get(resolved, "services.postgresql.enabled")
	if !pg.AsBool() {
		t.Error("preset postgresql.enabled not applied")
	}
	// Project layer overrides the preset's redis.enabled.
	redis, _ := Get(resolved, "services.redis.enabled")
	if redis.AsBool() {
		t.Error("project redis.enabled override not applied")
	}
}

func TestLoad_PresetKeyInProjectFile(t *testing.T) {
	dir := t.TempDir()
	project := "preset: nodejs\n"
	if err := os.WriteFile(filepath.Join(dir, ProjectFileName), []byte(project), 0o644); err != nil {
		t.Fatal(err)
	}

	resolved, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	pkgs, ok := Get(resolved, "packages")
	if !ok || pkgs.Len() == 0 {
		t.Error("nodejs preset named in vm.yaml was not layered in")
	}
}

func TestProjectName(t *testing.T) {
	named, _ := ParseYAML("t", []byte("project:\n  name: myapp\n"))
	if got := ProjectName(named, "/tmp/elsewhere"); got != "myapp" {
		t.Errorf("ProjectName = %q, want myapp", got)
	}
	if got := ProjectName(Null(), "/tmp/checkout"); got != "checkout" {
		t.Errorf("ProjectName fallback = %q, want checkout", got)
	}
}

func TestGet_KeyPath(t *testing.T) {
	doc, _ := ParseYAML("t", []byte("a:\n  b:\n    c: 7\n"))
	v, ok := Get(doc, "a.b.c")
	if !ok || v.AsNumber() != 7 {
		t.Errorf("Get(a.b.c) = %v, %v", v.Render(), ok)
	}
	if _, ok := Get(doc, "a.missing.c"); ok {
		t.Error("Get on missing path reported ok")
	}
}

func TestUserDir_StateDirOverride(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(testutil.SetStateDir(t, dir))

	got, err := UserDir()
	if err != nil {
		t.Fatalf("UserDir: %v", err)
	}
	if got != dir {
		t.Errorf("UserDir = %q, want %q", got, dir)
	}
}

func TestUserDir_DefaultsUnderHome(t *testing.T) {
	t.Cleanup(testutil.MustSetenv(t, "VM_STATE_DIR", ""))
	home := t.TempDir()
	t.Cleanup(testutil.SetHomeDir(t, home))

	got, err := UserDir()
	if err != nil {
		t.Fatalf("UserDir: %v", err)
	}
	if got != filepath.Join(home, ".vm") {
		t.Errorf("UserDir = %q, want %q", got, filepath.Join(home, ".vm"))
	}
}

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := loadSettingsFrom(t.TempDir())
	if err != nil {
		t.Fatalf("loadSettingsFrom: %v", err)
	}
	if s.DefaultProvider != "docker" || s.PortRangeSize != 10 || s.PortFloor != 3000 {
		t.Errorf("unexpected defaults: %+v", s)
	}
}

func TestLoadSettings_FromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
default_provider: tart
allowed_mount_roots:
  - /scratch
port_floor: 4000
`
	if err := os.WriteFile(filepath.Join(dir, "settings.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := loadSettingsFrom(dir)
	if err != nil {
		t.Fatalf("loadSettingsFrom: %v", err)
	}
	if s.DefaultProvider != "tart" {
		t.Errorf("default_provider = %q, want tart", s.DefaultProvider)
	}
	if len(s.AllowedMountRoots) != 1 || s.AllowedMountRoots[0] != "/scratch" {
		t.Errorf("allowed_mount_roots = %v", s.AllowedMountRoots)
	}
	if s.PortFloor != 4000 {
		t.Errorf("port_floor = %d, want 4000", s.PortFloor)
	}
	// Unset keys keep defaults.
	if s.PortRangeSize != 10 {
		t.Errorf("port_range_size = %d, want 10", s.PortRangeSize)
	}
}
