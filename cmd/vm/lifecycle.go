// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/goobits/vm/internal/config"
	"github.com/goobits/vm/internal/issue"
	"github.com/goobits/vm/internal/mount"
	"github.com/goobits/vm/internal/ports"
	"github.com/goobits/vm/internal/provider"
	"github.com/goobits/vm/internal/tempfiles"
)

// lifecycleVerbs maps each subcommand onto its canonical verb and help
// text. Synonyms (up, halt, delete...) are accepted as aliases.
var lifecycleVerbs = []struct {
	verb    provider.Verb
	aliases []string
	short   string
}{
	{provider.VerbCreate, nil, "Create the environment for this project"},
	{provider.VerbStart, []string{"up", "boot"}, "Start a stopped environment"},
	{provider.VerbStop, []string{"halt", "down"}, "Stop the environment"},
	{provider.VerbRestart, []string{"reload"}, "Restart the environment"},
	{provider.VerbDestroy, []string{"delete", "rm"}, "Destroy the environment and its state"},
	{provider.VerbStatus, []string{"ps", "info"}, "Show environment status"},
	{provider.VerbSSH, []string{"shell"}, "Open a shell inside the environment"},
	{provider.VerbExec, []string{"run"}, "Run a command inside the environment"},
	{provider.VerbLogs, []string{"log"}, "Show environment logs"},
	{provider.VerbProvision, nil, "Re-apply provisioning to the environment"},
	{provider.VerbKill, nil, "Force-stop the environment"},
	{provider.VerbSuspend, []string{"pause"}, "Suspend the environment, preserving its state"},
}

func addLifecycleCommands(root *cobra.Command) {
	for _, lv := range lifecycleVerbs {
		verb := lv.verb
		c := &cobra.Command{
			Use:     string(verb),
			Aliases: lv.aliases,
			Short:   lv.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runLifecycle(cmd, verb, args)
			},
		}
		if verb == provider.VerbExec {
			c.Use = "exec -- <command> [args...]"
			c.Args = cobra.MinimumNArgs(1)
		}
		root.AddCommand(c)
	}
}

// runLifecycle is the shared pipeline behind every lifecycle verb:
// resolve configuration, validate mounts, settle the port range, build
// the runtime spec, and dispatch through the capability router.
func runLifecycle(cobraCmd *cobra.Command, verb provider.Verb, args []string) error {
	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+err.Error())
	}

	resolved, err := config.Load(dir, presetFlag)
	if err != nil {
		return issue.WrapWithRemedy(err, "load configuration", issue.ConfigParseErrorId)
	}
	project := config.ProjectName(resolved, dir)
	backend := selectBackend(resolved, settings)

	validated, validator, err := resolveMounts(resolved, settings)
	if err != nil {
		return issue.WrapWithRemedy(err, "validate mounts", issue.MountRejectedId)
	}

	portRange, hasPorts, err := settlePorts(verb, project, dir, settings)
	if err != nil {
		return err
	}

	spec := provider.BuildSpec(resolved, project, dir, validated, portRange, hasPorts)
	// Each mount is re-checked at the moment its path lands in a backend
	// directive, not here: the window between validation and use is what
	// the re-check exists to close.
	spec.Recheck = validator.Revalidate

	manifest := tempfiles.Default()
	router := provider.NewRouter(
		provider.WithExecutor(provider.BackendDocker, provider.NewDockerExecutor(manifest)),
		provider.WithExecutor(provider.BackendVagrant, provider.NewVagrantExecutor()),
		provider.WithExecutor(provider.BackendTart, provider.NewTartExecutor()),
	)

	return router.Dispatch(cobraCmd.Context(), provider.Request{
		Verb:    string(verb),
		Backend: backend,
		Spec:    spec,
		Args:    args,
		Force:   force,
	})
}

// selectBackend picks the backend: the --provider flag wins, then the
// project configuration, then the user's default.
func selectBackend(resolved config.Value, settings config.Settings) string {
	if providerFlag != "" {
		return providerFlag
	}
	if v, ok := config.Get(resolved, "provider"); ok && v.Kind() == config.KindString {
		return v.AsString()
	}
	return settings.DefaultProvider
}

// resolveMounts runs every configured mount through the security
// pipeline. The returned validator re-checks each path later, when it
// is actually embedded in a backend directive.
func resolveMounts(resolved config.Value, settings config.Settings) ([]mount.Validated, *mount.Validator, error) {
	validator := mount.NewValidator(
		mount.WithWorkspaceRoot(settings.WorkspaceRoot),
		mount.WithExtraRoots(settings.AllowedMountRoots),
	)

	var reqs []mount.Request
	if raw, ok := config.Get(resolved, "mounts"); ok && raw.Kind() == config.KindArray {
		for _, entry := range raw.Elems() {
			if entry.Kind() != config.KindString {
				continue
			}
			req, err := mount.ParseRequest(entry.AsString())
			if err != nil {
				return nil, nil, err
			}
			reqs = append(reqs, req)
		}
	}
	if len(reqs) == 0 {
		return nil, validator, nil
	}

	validated, err := validator.ValidateAll(reqs)
	if err != nil {
		return nil, nil, err
	}
	return validated, validator, nil
}

// settlePorts resolves the project's port range. create registers a
// fresh range when none exists; other verbs reuse whatever is
// registered and carry on without one otherwise.
func settlePorts(verb provider.Verb, project, dir string, settings config.Settings) (ports.Range, bool, error) {
	registry, err := ports.Load()
	if err != nil {
		return ports.Range{}, false, issue.WrapWithRemedy(err, "open port registry", issue.PortRegistryCorruptId)
	}

	if rng, ok := registry.Get(project); ok {
		return rng, true, nil
	}
	if verb != provider.VerbCreate {
		return ports.Range{}, false, nil
	}

	rng, err := registry.SuggestNext(settings.PortRangeSize, settings.PortFloor)
	if err != nil {
		return ports.Range{}, false, issue.Wrap(err, "allocate port range")
	}
	if err := registry.Register(project, rng, dir); err != nil {
		return ports.Range{}, false, issue.WrapWithRemedy(err, "register port range", issue.PortConflictId)
	}
	log.Info("allocated port range", "project", project, "range", rng)
	return rng, true, nil
}
