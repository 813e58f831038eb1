// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goobits/vm/internal/config"
	"github.com/goobits/vm/internal/issue"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the merged configuration for this project",
	RunE: func(cmd *cobra.Command, _ []string) error {
		resolved, err := loadResolved()
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(resolved.Interface())
		if err != nil {
			return fmt.Errorf("render configuration: %w", err)
		}
		fmt.Print(string(out))
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key.path>",
	Short: "Show one value from the merged configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, err := loadResolved()
		if err != nil {
			return err
		}
		v, ok := config.Get(resolved, args[0])
		if !ok {
			return fmt.Errorf("no value at %q", args[0])
		}
		fmt.Println(v.Render())
		return nil
	},
}

var configPresetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List available presets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, name := range config.PresetNames() {
			fmt.Println(name)
		}
		return nil
	},
}

func loadResolved() (config.Value, error) {
	dir, err := os.Getwd()
	if err != nil {
		return config.Null(), err
	}
	resolved, err := config.Load(dir, presetFlag)
	if err != nil {
		return config.Null(), issue.WrapWithRemedy(err, "load configuration", issue.ConfigParseErrorId)
	}
	return resolved, nil
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configPresetsCmd)
}
