// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// AppName is used for user-scoped state and settings directories.
	AppName = "vm"

	settingsFileName = "settings"
	settingsFileExt  = "yaml"
)

// Settings holds the user-scoped (not per-project) options. They are loaded
// from ~/.vm/settings.yaml when present; every field has a default.
type Settings struct {
	// DefaultProvider is used when neither the project file nor the CLI
	// names a backend.
	DefaultProvider string `mapstructure:"default_provider"`
	// AllowedMountRoots are extra directory prefixes accepted by the mount
	// validator in addition to the builtin allow list.
	AllowedMountRoots []string `mapstructure:"allowed_mount_roots"`
	// WorkspaceRoot is an explicit root under which project checkouts live.
	WorkspaceRoot string `mapstructure:"workspace_root"`
	// PortRangeSize is the default size for suggested port ranges.
	PortRangeSize int `mapstructure:"port_range_size"`
	// PortFloor is the first port considered when suggesting ranges.
	PortFloor int `mapstructure:"port_floor"`
}

// DefaultSettings returns the builtin user settings.
func DefaultSettings() Settings {
	return Settings{
		DefaultProvider: "docker",
		PortRangeSize:   10,
		PortFloor:       3000,
	}
}

// UserDir returns the user-scoped state directory (~/.vm), creating nothing.
func UserDir() (string, error) {
	if override := os.Getenv("VM_STATE_DIR"); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, "."+AppName), nil
}

// LoadSettings reads the user settings file, falling back to defaults when
// it does not exist. Unknown keys are ignored.
func LoadSettings() (Settings, error) {
	dir, err := UserDir()
	if err != nil {
		return DefaultSettings(), err
	}
	return loadSettingsFrom(dir)
}

func loadSettingsFrom(dir string) (Settings, error) {
	defaults := DefaultSettings()

	v := viper.New()
	v.SetDefault("default_provider", defaults.DefaultProvider)
	v.SetDefault("allowed_mount_roots", defaults.AllowedMountRoots)
	v.SetDefault("workspace_root", defaults.WorkspaceRoot)
	v.SetDefault("port_range_size", defaults.PortRangeSize)
	v.SetDefault("port_floor", defaults.PortFloor)

	v.SetConfigName(settingsFileName)
	v.SetConfigType(settingsFileExt)
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return defaults, fmt.Errorf("read user settings: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return defaults, fmt.Errorf("parse user settings: %w", err)
	}
	return s, nil
}
