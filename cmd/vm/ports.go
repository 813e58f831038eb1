// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goobits/vm/internal/config"
	"github.com/goobits/vm/internal/issue"
	"github.com/goobits/vm/internal/ports"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "Manage the shared port range registry",
}

var portsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show every registered port range",
	RunE: func(cmd *cobra.Command, _ []string) error {
		registry, err := ports.Load()
		if err != nil {
			return issue.WrapWithRemedy(err, "open port registry", issue.PortRegistryCorruptId)
		}
		entries := registry.List()
		if len(entries) == 0 {
			fmt.Println("No port ranges registered yet")
			return nil
		}
		fmt.Println(TitleStyle.Render("Registered port ranges:"))
		for _, e := range entries {
			fmt.Printf("  %s: %s → %s\n", e.Project, ValueStyle.Render(e.Range), e.Path)
		}
		return nil
	},
}

var portsRegisterCmd = &cobra.Command{
	Use:   "register <range>",
	Short: "Register a port range for the current project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rng, err := ports.ParseRange(args[0])
		if err != nil {
			return err
		}
		dir, err := os.Getwd()
		if err != nil {
			return err
		}
		project, err := currentProject(dir)
		if err != nil {
			return err
		}
		registry, err := ports.Load()
		if err != nil {
			return issue.WrapWithRemedy(err, "open port registry", issue.PortRegistryCorruptId)
		}
		if err := registry.Register(project, rng, dir); err != nil {
			return issue.WrapWithRemedy(err, "register port range", issue.PortConflictId)
		}
		fmt.Println(SuccessStyle.Render("Registered ") + ValueStyle.Render(rng.String()) + " for " + project)
		return nil
	},
}

var portsUnregisterCmd = &cobra.Command{
	Use:   "unregister [project]",
	Short: "Release a project's port range",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var project string
		if len(args) == 1 {
			project = args[0]
		} else {
			dir, err := os.Getwd()
			if err != nil {
				return err
			}
			project, err = currentProject(dir)
			if err != nil {
				return err
			}
		}
		registry, err := ports.Load()
		if err != nil {
			return issue.WrapWithRemedy(err, "open port registry", issue.PortRegistryCorruptId)
		}
		if err := registry.Unregister(project); err != nil {
			return err
		}
		fmt.Println(SuccessStyle.Render("Released ") + project)
		return nil
	},
}

var portsSuggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest the next free port range",
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := config.LoadSettings()
		if err != nil {
			fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+err.Error())
		}
		registry, err := ports.Load()
		if err != nil {
			return issue.WrapWithRemedy(err, "open port registry", issue.PortRegistryCorruptId)
		}
		rng, err := registry.SuggestNext(settings.PortRangeSize, settings.PortFloor)
		if err != nil {
			return err
		}
		fmt.Println(rng)
		return nil
	},
}

func currentProject(dir string) (string, error) {
	resolved, err := config.Load(dir, "")
	if err != nil {
		return "", issue.WrapWithRemedy(err, "load configuration", issue.ConfigParseErrorId)
	}
	return config.ProjectName(resolved, dir), nil
}

func init() {
	portsCmd.AddCommand(portsListCmd)
	portsCmd.AddCommand(portsRegisterCmd)
	portsCmd.AddCommand(portsUnregisterCmd)
	portsCmd.AddCommand(portsSuggestCmd)
}
