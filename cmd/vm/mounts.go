// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goobits/vm/internal/config"
	"github.com/goobits/vm/internal/issue"
	"github.com/goobits/vm/internal/mount"
)

var mountsCmd = &cobra.Command{
	Use:   "mounts",
	Short: "Validate mount requests",
}

// mountsCheckCmd runs the full security pipeline on mount directives
// without touching any backend, so users can test a path before putting
// it in vm.yaml.
var mountsCheckCmd = &cobra.Command{
	Use:   "check <source[:guest[:perm]]>[,...]",
	Short: "Check mount directives against the security pipeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.LoadSettings()
		if err != nil {
			fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+err.Error())
		}

		reqs, err := mount.ParseBatch(args[0])
		if err != nil {
			return issue.WrapWithRemedy(err, "parse mount request", issue.MountRejectedId)
		}

		validator := mount.NewValidator(
			mount.WithWorkspaceRoot(settings.WorkspaceRoot),
			mount.WithExtraRoots(settings.AllowedMountRoots),
		)
		validated, err := validator.ValidateAll(reqs)
		if err != nil {
			return issue.WrapWithRemedy(err, "validate mount", issue.MountRejectedId)
		}

		for _, m := range validated {
			fmt.Println(SuccessStyle.Render("ok ") + ValueStyle.Render(m.Directive()))
		}
		return nil
	},
}

// mountsShowCmd lists the mounts the current configuration would
// request, validated.
var mountsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show this project's validated mounts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := config.LoadSettings()
		if err != nil {
			fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+err.Error())
		}
		resolved, err := loadResolved()
		if err != nil {
			return err
		}
		validated, _, err := resolveMounts(resolved, settings)
		if err != nil {
			return issue.WrapWithRemedy(err, "validate mounts", issue.MountRejectedId)
		}
		if len(validated) == 0 {
			fmt.Println("No extra mounts configured")
			return nil
		}
		lines := make([]string, len(validated))
		for i, m := range validated {
			lines[i] = "  " + m.Directive()
		}
		fmt.Println(TitleStyle.Render("Mounts:") + "\n" + strings.Join(lines, "\n"))
		return nil
	},
}

func init() {
	mountsCmd.AddCommand(mountsCheckCmd)
	mountsCmd.AddCommand(mountsShowCmd)
}
