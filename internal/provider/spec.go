// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"github.com/goobits/vm/internal/config"
	"github.com/goobits/vm/internal/mount"
	"github.com/goobits/vm/internal/ports"
)

// Service is one enabled auxiliary service from the resolved
// configuration.
type Service struct {
	Name    string
	Version string
}

// RuntimeSpec is everything a backend needs to materialize an
// environment: resolved configuration values, validated mounts, and the
// project's port range. It is the only input executors see; they never
// read configuration documents themselves.
type RuntimeSpec struct {
	Project string

	// Image is the container image or VM box to base the environment
	// on.
	Image string

	MemoryMB int
	CPUs     int
	User     string

	// WorkspaceSync is the in-environment path the project directory is
	// synced to.
	WorkspaceSync string
	ProjectDir    string

	Mounts   []mount.Validated
	Ports    ports.Range
	HasPorts bool

	Services []Service
	Packages []string

	// Recheck, when set, re-validates each mount immediately before its
	// path is embedded in a backend directive. A path that resolves
	// differently than it did at validation time aborts the operation.
	Recheck func(mount.Validated) (mount.Validated, error)
}

// checkedMounts re-runs mount validation at the moment of use. Callers
// embed only the returned mounts in backend directives.
func (s *RuntimeSpec) checkedMounts() ([]mount.Validated, error) {
	if s.Recheck == nil {
		return s.Mounts, nil
	}
	out := make([]mount.Validated, len(s.Mounts))
	for i, m := range s.Mounts {
		rechecked, err := s.Recheck(m)
		if err != nil {
			return nil, err
		}
		out[i] = rechecked
	}
	return out, nil
}

// BuildSpec derives a RuntimeSpec from the resolved configuration.
// Mounts must already have passed validation; the port range comes from
// the registry.
func BuildSpec(resolved config.Value, project, projectDir string, mounts []mount.Validated, portRange ports.Range, hasPorts bool) *RuntimeSpec {
	spec := &RuntimeSpec{
		Project:       project,
		ProjectDir:    projectDir,
		Image:         stringAt(resolved, "vm.box", "ubuntu:24.04"),
		MemoryMB:      intAt(resolved, "vm.memory", 2048),
		CPUs:          intAt(resolved, "vm.cpus", 2),
		User:          stringAt(resolved, "vm.user", "developer"),
		WorkspaceSync: stringAt(resolved, "workspace.sync", "/workspace"),
		Mounts:        mounts,
		Ports:         portRange,
		HasPorts:      hasPorts,
	}

	if services, ok := config.Get(resolved, "services"); ok && services.Kind() == config.KindObject {
		for _, name := range services.Keys() {
			svc, _ := services.Field(name)
			if enabled, ok := svc.Field("enabled"); ok && enabled.AsBool() {
				version := ""
				if v, ok := svc.Field("version"); ok {
					version = v.AsString()
				}
				spec.Services = append(spec.Services, Service{Name: name, Version: version})
			}
		}
	}

	if pkgs, ok := config.Get(resolved, "packages"); ok && pkgs.Kind() == config.KindArray {
		for _, p := range pkgs.Elems() {
			if p.Kind() == config.KindString {
				spec.Packages = append(spec.Packages, p.AsString())
			}
		}
	}

	return spec
}

func stringAt(v config.Value, path, fallback string) string {
	if f, ok := config.Get(v, path); ok && f.Kind() == config.KindString {
		return f.AsString()
	}
	return fallback
}

func intAt(v config.Value, path string, fallback int) int {
	if f, ok := config.Get(v, path); ok && f.Kind() == config.KindNumber {
		return int(f.AsNumber())
	}
	return fallback
}
