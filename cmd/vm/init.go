// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/goobits/vm/internal/config"
)

const starterTemplate = `project:
  name: %s
provider: %s
%svm:
  memory: 2048
  cpus: 2
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a vm.yaml in the current directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir, err := os.Getwd()
		if err != nil {
			return err
		}
		path := filepath.Join(dir, config.ProjectFileName)
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", config.ProjectFileName)
		}

		answers := struct {
			Provider string
			Preset   string
		}{}
		questions := []*survey.Question{
			{
				Name: "provider",
				Prompt: &survey.Select{
					Message: "Backend:",
					Options: []string{"docker", "vagrant", "tart"},
					Default: "docker",
				},
			},
			{
				Name: "preset",
				Prompt: &survey.Select{
					Message: "Preset:",
					Options: append([]string{"none"}, config.PresetNames()...),
					Default: "none",
				},
			},
		}
		if force {
			answers.Provider = "docker"
			answers.Preset = "none"
		} else if err := survey.Ask(questions, &answers); err != nil {
			return err
		}

		presetLine := ""
		if answers.Preset != "" && answers.Preset != "none" {
			presetLine = "preset: " + answers.Preset + "\n"
		}
		content := fmt.Sprintf(starterTemplate, filepath.Base(dir), answers.Provider, presetLine)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", config.ProjectFileName, err)
		}

		fmt.Println(SuccessStyle.Render("Created ") + ValueStyle.Render(config.ProjectFileName))
		fmt.Println(SubtitleStyle.Render("Next: " + strings.Join([]string{"vm create", "vm ssh"}, ", then ")))
		return nil
	},
}
