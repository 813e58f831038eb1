// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// TartExecutor drives full VMs through the tart CLI on Apple Silicon
// hosts. SSH goes through the host ssh client against the VM's
// reported address.
type TartExecutor struct {
	cli *BaseCLI
	ssh *BaseCLI
}

// NewTartExecutor resolves the tart and ssh binaries.
func NewTartExecutor(opts ...BaseCLIOption) *TartExecutor {
	tartPath, _ := exec.LookPath("tart")
	sshPath, _ := exec.LookPath("ssh")
	return &TartExecutor{
		cli: NewBaseCLI("tart", tartPath, opts...),
		ssh: NewBaseCLI("ssh", sshPath, opts...),
	}
}

func (e *TartExecutor) vmName(spec *RuntimeSpec) string {
	return "vm-" + spec.Project
}

// Execute translates a canonical verb into tart invocations.
func (e *TartExecutor) Execute(ctx context.Context, verb Verb, spec *RuntimeSpec, extra []string) error {
	name := e.vmName(spec)

	switch verb {
	case VerbCreate:
		if err := e.cli.RunStatus(ctx, "clone", spec.Image, name); err != nil {
			return err
		}
		return e.cli.RunStatus(ctx, "set", name,
			"--memory", fmt.Sprint(spec.MemoryMB),
			"--cpu", fmt.Sprint(spec.CPUs))
	case VerbStart:
		mounts, err := spec.checkedMounts()
		if err != nil {
			return err
		}
		args := []string{"run", "--no-graphics"}
		for _, m := range mounts {
			dir := m.Source() + ":" + strings.TrimPrefix(m.Guest(), "/")
			if m.Perm() == "ro" {
				dir += ":ro"
			}
			args = append(args, "--dir", dir)
		}
		args = append(args, name)
		return e.cli.RunStatus(ctx, args...)
	case VerbStop:
		return e.cli.RunStatus(ctx, "stop", name)
	case VerbSuspend:
		return e.cli.RunStatus(ctx, "suspend", name)
	case VerbKill:
		return e.cli.RunStatus(ctx, "stop", "--timeout", "0", name)
	case VerbRestart:
		if err := e.cli.RunStatus(ctx, "stop", name); err != nil {
			return err
		}
		return e.cli.RunStatus(ctx, "run", "--no-graphics", name)
	case VerbDestroy:
		return e.cli.RunStatus(ctx, "delete", name)
	case VerbStatus:
		return e.cli.RunStatus(ctx, "list")
	case VerbSSH:
		ip, err := e.cli.RunOutput(ctx, "ip", name)
		if err != nil {
			return err
		}
		target := spec.User + "@" + strings.TrimSpace(ip)
		return e.ssh.RunInteractive(ctx, target)
	}
	return fmt.Errorf("%w: %s on tart", ErrUnsupportedOperation, verb)
}
