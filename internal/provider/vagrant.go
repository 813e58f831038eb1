// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// VagrantExecutor drives environments through the vagrant CLI. Every
// invocation runs in the project directory, where vagrant expects its
// Vagrantfile and machine state.
type VagrantExecutor struct {
	cli *BaseCLI
}

// NewVagrantExecutor resolves the vagrant binary.
func NewVagrantExecutor(opts ...BaseCLIOption) *VagrantExecutor {
	path, _ := exec.LookPath("vagrant")
	return &VagrantExecutor{cli: NewBaseCLI("vagrant", path, opts...)}
}

func (e *VagrantExecutor) run(ctx context.Context, spec *RuntimeSpec, interactive bool, args ...string) error {
	cmd := e.cli.CreateCommand(ctx, args...)
	cmd.Dir = spec.ProjectDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if interactive {
		cmd.Stdin = os.Stdin
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("vagrant %v: %w", args, err)
	}
	return nil
}

// Execute translates a canonical verb into vagrant invocations.
func (e *VagrantExecutor) Execute(ctx context.Context, verb Verb, spec *RuntimeSpec, extra []string) error {
	switch verb {
	case VerbCreate, VerbStart:
		// vagrant up creates on first run and boots thereafter; both
		// verbs are idempotent at the backend.
		return e.run(ctx, spec, false, "up")
	case VerbStop:
		return e.run(ctx, spec, false, "halt")
	case VerbKill:
		return e.run(ctx, spec, false, "halt", "--force")
	case VerbSuspend:
		return e.run(ctx, spec, false, "suspend")
	case VerbRestart:
		return e.run(ctx, spec, false, "reload")
	case VerbDestroy:
		// The router has already confirmed with the user.
		return e.run(ctx, spec, false, "destroy", "--force")
	case VerbStatus:
		return e.run(ctx, spec, false, "status")
	case VerbSSH:
		return e.run(ctx, spec, true, "ssh")
	case VerbExec:
		if len(extra) == 0 {
			return fmt.Errorf("%w: exec needs a command", ErrUnsupportedOperation)
		}
		return e.run(ctx, spec, true, "ssh", "-c", strings.Join(extra, " "))
	case VerbProvision:
		return e.run(ctx, spec, false, "provision")
	}
	return fmt.Errorf("%w: %s on vagrant", ErrUnsupportedOperation, verb)
}
