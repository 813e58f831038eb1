// SPDX-License-Identifier: MPL-2.0

package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// ProjectFileName is the per-project configuration file.
	ProjectFileName = "vm.yaml"
)

//go:embed defaults.yaml presets/*.yaml
var builtins embed.FS

// Layer is one ordered configuration document. Later layers in a Resolve
// call take precedence over earlier ones.
type Layer struct {
	// Name identifies the layer in errors and warnings (e.g. "defaults",
	// "preset:nodejs", "/path/to/vm.yaml").
	Name string
	// Doc is the parsed document.
	Doc Value
}

// Resolve folds layers in priority order into a single effective Value.
// The result is a pure function of the ordered inputs.
func Resolve(layers ...Layer) Value {
	out := Null()
	for _, l := range layers {
		out = Merge(out, l.Doc)
	}
	return out
}

// Defaults returns the builtin defaults layer.
func Defaults() (Layer, error) {
	data, err := builtins.ReadFile("defaults.yaml")
	if err != nil {
		return Layer{}, fmt.Errorf("read builtin defaults: %w", err)
	}
	doc, err := ParseYAML("defaults", data)
	if err != nil {
		return Layer{}, err
	}
	return Layer{Name: "defaults", Doc: doc}, nil
}

// Preset returns the named builtin preset fragment, or ok=false when no such
// preset exists.
func Preset(name string) (Layer, bool, error) {
	data, err := builtins.ReadFile("presets/" + name + ".yaml")
	if err != nil {
		return Layer{}, false, nil
	}
	layer := "preset:" + name
	doc, err := ParseYAML(layer, data)
	if err != nil {
		return Layer{}, false, err
	}
	return Layer{Name: layer, Doc: doc}, true, nil
}

// PresetNames lists the builtin preset fragments.
func PresetNames() []string {
	entries, err := builtins.ReadDir("presets")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name()[:len(e.Name())-len(".yaml")])
	}
	return names
}

// ProjectLayer loads the project configuration file from dir. A missing file
// is not an error: the returned layer is null and ok is false.
func ProjectLayer(dir string) (Layer, bool, error) {
	path := filepath.Join(dir, ProjectFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Layer{Name: path}, false, nil
	}
	if err != nil {
		return Layer{}, false, fmt.Errorf("read project config: %w", err)
	}
	doc, err := ParseYAML(path, data)
	if err != nil {
		return Layer{}, false, err
	}
	return Layer{Name: path, Doc: doc}, true, nil
}

// Load produces the effective configuration for a project directory:
// builtin defaults, then the optional named preset, then the project file.
// When no preset is passed explicitly, the project file's own "preset"
// key selects one.
func Load(dir, preset string) (Value, error) {
	layers := make([]Layer, 0, 3)

	defaults, err := Defaults()
	if err != nil {
		return Null(), err
	}
	layers = append(layers, defaults)

	project, _, err := ProjectLayer(dir)
	if err != nil {
		return Null(), err
	}
	if preset == "" {
		if v, ok := Get(project.Doc, "preset"); ok && v.Kind() == KindString {
			preset = v.AsString()
		}
	}

	if preset != "" {
		p, ok, err := Preset(preset)
		if err != nil {
			return Null(), err
		}
		if !ok {
			return Null(), fmt.Errorf("unknown preset %q (available: %v)", preset, PresetNames())
		}
		layers = append(layers, p)
	}

	layers = append(layers, project)

	return Resolve(layers...), nil
}

// ProjectName returns the effective project name: the project.name key when
// set, otherwise the base name of the project directory.
func ProjectName(resolved Value, dir string) string {
	if v, ok := Get(resolved, "project.name"); ok && v.Kind() == KindString && v.AsString() != "" {
		return v.AsString()
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return filepath.Base(dir)
	}
	return filepath.Base(abs)
}
