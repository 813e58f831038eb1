// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/goobits/vm/internal/tempfiles"
)

// serviceImages maps configured service names to the images the docker
// backend runs for them.
var serviceImages = map[string]string{
	"postgresql": "postgres",
	"redis":      "redis",
	"mysql":      "mysql",
	"mongodb":    "mongo",
}

type composeService struct {
	Image         string   `yaml:"image"`
	ContainerName string   `yaml:"container_name,omitempty"`
	Command       string   `yaml:"command,omitempty"`
	WorkingDir    string   `yaml:"working_dir,omitempty"`
	User          string   `yaml:"user,omitempty"`
	MemLimit      string   `yaml:"mem_limit,omitempty"`
	CPUs          int      `yaml:"cpus,omitempty"`
	Volumes       []string `yaml:"volumes,omitempty"`
	Ports         []string `yaml:"ports,omitempty"`
	Restart       string   `yaml:"restart,omitempty"`
}

type composeFile struct {
	Name     string                    `yaml:"name"`
	Services map[string]composeService `yaml:"services"`
}

// ComposeDescriptor renders the docker compose document for a runtime
// spec. Mounts are re-validated here, at the moment their paths are
// embedded in volume directives. Output is deterministic for a given
// spec: the YAML encoder sorts map keys and every slice is built in a
// fixed order.
func ComposeDescriptor(spec *RuntimeSpec) ([]byte, error) {
	mounts, err := spec.checkedMounts()
	if err != nil {
		return nil, err
	}

	dev := composeService{
		Image:         spec.Image,
		ContainerName: spec.Project + "-dev",
		Command:       "sleep infinity",
		WorkingDir:    spec.WorkspaceSync,
		User:          spec.User,
		MemLimit:      strconv.Itoa(spec.MemoryMB) + "m",
		CPUs:          spec.CPUs,
		Restart:       "unless-stopped",
	}

	if spec.ProjectDir != "" {
		dev.Volumes = append(dev.Volumes, spec.ProjectDir+":"+spec.WorkspaceSync)
	}
	for _, m := range mounts {
		dev.Volumes = append(dev.Volumes, m.Directive())
	}
	if spec.HasPorts {
		r := spec.Ports.String()
		dev.Ports = append(dev.Ports, r+":"+r)
	}

	doc := composeFile{
		Name:     spec.Project,
		Services: map[string]composeService{"dev": dev},
	}

	for _, svc := range spec.Services {
		image, ok := serviceImages[svc.Name]
		if !ok {
			continue
		}
		if svc.Version != "" {
			image += ":" + svc.Version
		}
		doc.Services[svc.Name] = composeService{
			Image:         image,
			ContainerName: spec.Project + "-" + svc.Name,
			Restart:       "unless-stopped",
		}
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode runtime descriptor: %w", err)
	}
	return out, nil
}

// WriteComposeDescriptor materializes the descriptor as a tracked temp
// file that the cleanup manifest removes on every exit path.
func WriteComposeDescriptor(manifest *tempfiles.Manifest, spec *RuntimeSpec) (string, error) {
	data, err := ComposeDescriptor(spec)
	if err != nil {
		return "", err
	}
	f, err := manifest.CreateTemp(spec.Project + "-compose-*.yaml")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("write runtime descriptor: %w", err)
	}
	return f.Name(), nil
}
