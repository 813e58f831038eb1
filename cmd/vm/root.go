// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for vm.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/goobits/vm/internal/issue"
	"github.com/goobits/vm/internal/lockfile"
	"github.com/goobits/vm/internal/tempfiles"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables debug logging and full error chains.
	verbose bool
	// providerFlag overrides the backend from configuration.
	providerFlag string
	// presetFlag layers a named preset between defaults and the project
	// file.
	presetFlag string
	// force skips interactive confirmation on destructive verbs.
	force bool

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "vm",
		Short: "Per-project development environments on pluggable backends",
		Long: TitleStyle.Render("vm") + SubtitleStyle.Render(" - per-project development environments") + `

vm turns a project directory into an isolated development environment
on one of several backends: docker containers, vagrant VMs, or tart
VMs on Apple Silicon.

Configuration layers (builtin defaults, an optional preset, and the
project's vm.yaml) are merged into one effective configuration; mounts
are security-validated and each project gets a conflict-free port
range from a shared registry.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Run 'vm init' in your project directory
  2. Adjust vm.yaml (provider, services, mounts)
  3. Run 'vm create' and then 'vm ssh'

` + SubtitleStyle.Render("Examples:") + `
  vm create                 Build and start the environment
  vm ssh                    Open a shell inside it
  vm exec -- make test      Run a command inside it
  vm ports suggest          Find a free port range
  vm config show            Show the effective configuration`,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "", "backend to use (docker, vagrant, tart)")
	rootCmd.PersistentFlags().StringVar(&presetFlag, "preset", "", "preset to layer under the project configuration")
	rootCmd.PersistentFlags().BoolVar(&force, "force", false, "skip confirmation prompts")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(mountsCmd)
	addLifecycleCommands(rootCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	stop := installSignalCleanup()
	defer stop()
	defer releaseEphemeral()

	err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	)
	if err != nil {
		renderRemediation(err)
		releaseEphemeral()
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// renderRemediation prints the remediation catalog entry attached to an
// error, if any, below fang's own diagnostic.
func renderRemediation(err error) {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		return
	}
	entry := ae.Issue()
	if entry == nil {
		return
	}
	if out, rerr := entry.Render("dark"); rerr == nil {
		fmt.Fprintln(os.Stderr, out)
	}
	if verbose {
		fmt.Fprintln(os.Stderr, ae.Format(true))
	}
}

// installSignalCleanup wires termination signals to the same release
// path normal exits use, so generated descriptors never outlive an
// interrupted invocation.
func installSignalCleanup() (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig, ok := <-sigCh
		if !ok {
			return
		}
		log.Debug("interrupted", "signal", sig)
		releaseEphemeral()
		os.Exit(130)
	}()
	return func() {
		signal.Stop(sigCh)
		close(sigCh)
	}
}

// releaseEphemeral deletes every tracked temp artifact. A short-lived
// marker keeps a signal-triggered cleanup from racing the normal-exit
// one; a marker from a dead process is reclaimed.
func releaseEphemeral() {
	marker := filepath.Join(os.TempDir(), fmt.Sprintf("vm-cleanup-%d.lock", os.Getpid()))
	lock, err := lockfile.Acquire(marker)
	if err != nil {
		// Another cleanup is already running in this process.
		return
	}
	defer lock.Unlock()

	if err := tempfiles.Default().Cleanup(); err != nil {
		log.Warn("cleanup incomplete", "err", err)
	}
}
