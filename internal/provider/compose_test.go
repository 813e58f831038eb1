// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"bytes"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/goobits/vm/internal/config"
	"github.com/goobits/vm/internal/ports"
	"github.com/goobits/vm/internal/tempfiles"
)

func specFromYAML(t *testing.T, doc string) *RuntimeSpec {
	t.Helper()
	resolved, err := config.ParseYAML("test", []byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	rng, _ := ports.ParseRange("3000-3009")
	return BuildSpec(resolved, "demo", "/home/u/demo", nil, rng, true)
}

func TestBuildSpec(t *testing.T) {
	spec := specFromYAML(t, `
vm:
  box: debian:12
  memory: 4096
  cpus: 4
  user: dev
workspace:
  sync: /code
services:
  postgresql:
    enabled: true
    version: "16"
  redis:
    enabled: false
packages:
  - git
  - curl
`)

	if spec.Image != "debian:12" || spec.MemoryMB != 4096 || spec.CPUs != 4 || spec.User != "dev" {
		t.Errorf("vm fields = %+v", spec)
	}
	if spec.WorkspaceSync != "/code" {
		t.Errorf("sync = %q", spec.WorkspaceSync)
	}
	if len(spec.Services) != 1 || spec.Services[0].Name != "postgresql" || spec.Services[0].Version != "16" {
		t.Errorf("services = %+v", spec.Services)
	}
	if len(spec.Packages) != 2 {
		t.Errorf("packages = %v", spec.Packages)
	}
}

func TestBuildSpec_DefaultsWhenFieldsMissing(t *testing.T) {
	spec := specFromYAML(t, "provider: docker\n")
	if spec.Image != "ubuntu:24.04" || spec.MemoryMB != 2048 || spec.CPUs != 2 {
		t.Errorf("fallbacks not applied: %+v", spec)
	}
}

func TestComposeDescriptor(t *testing.T) {
	spec := specFromYAML(t, `
vm:
  box: ubuntu:24.04
services:
  postgresql:
    enabled: true
`)

	data, err := ComposeDescriptor(spec)
	if err != nil {
		t.Fatalf("ComposeDescriptor: %v", err)
	}

	var doc composeFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("descriptor is not valid YAML: %v", err)
	}
	if doc.Name != "demo" {
		t.Errorf("name = %q", doc.Name)
	}

	dev, ok := doc.Services["dev"]
	if !ok {
		t.Fatal("no dev service")
	}
	if dev.Image != "ubuntu:24.04" || dev.ContainerName != "demo-dev" {
		t.Errorf("dev service = %+v", dev)
	}
	if len(dev.Volumes) != 1 || dev.Volumes[0] != "/home/u/demo:/workspace" {
		t.Errorf("volumes = %v", dev.Volumes)
	}
	if len(dev.Ports) != 1 || dev.Ports[0] != "3000-3009:3000-3009" {
		t.Errorf("ports = %v", dev.Ports)
	}

	pg, ok := doc.Services["postgresql"]
	if !ok {
		t.Fatal("no postgresql service")
	}
	if pg.Image != "postgres" || pg.ContainerName != "demo-postgresql" {
		t.Errorf("postgresql service = %+v", pg)
	}
}

func TestComposeDescriptor_Deterministic(t *testing.T) {
	spec := specFromYAML(t, `
services:
  postgresql:
    enabled: true
  redis:
    enabled: true
  mysql:
    enabled: true
`)

	first, err := ComposeDescriptor(spec)
	if err != nil {
		t.Fatal(err)
	}
	for range 10 {
		again, err := ComposeDescriptor(spec)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("descriptor not deterministic:\n%s\n---\n%s", first, again)
		}
	}
}

func TestWriteComposeDescriptor_TrackedForCleanup(t *testing.T) {
	manifest := tempfiles.NewManifest()
	spec := specFromYAML(t, "provider: docker\n")

	path, err := WriteComposeDescriptor(manifest, spec)
	if err != nil {
		t.Fatalf("WriteComposeDescriptor: %v", err)
	}
	if !strings.Contains(path, "demo-compose-") {
		t.Errorf("descriptor path = %q", path)
	}
	if manifest.Len() != 1 {
		t.Errorf("manifest entries = %d, want 1", manifest.Len())
	}
	if err := manifest.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
}
