// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/goobits/vm/internal/tempfiles"
)

// Executor runs one canonical verb against a backend. Implementations
// assume the router has already gated the verb on the backend's
// capability record.
type Executor interface {
	Execute(ctx context.Context, verb Verb, spec *RuntimeSpec, extra []string) error
}

// DockerExecutor drives environments through docker compose. The
// generated descriptor is a tracked temp file; services from the
// resolved configuration become sibling containers.
type DockerExecutor struct {
	cli      *BaseCLI
	manifest *tempfiles.Manifest
}

// NewDockerExecutor resolves the docker binary and wires the cleanup
// manifest for generated descriptors.
func NewDockerExecutor(manifest *tempfiles.Manifest, opts ...BaseCLIOption) *DockerExecutor {
	path, _ := exec.LookPath("docker")
	return &DockerExecutor{
		cli:      NewBaseCLI("docker", path, opts...),
		manifest: manifest,
	}
}

func (e *DockerExecutor) container(spec *RuntimeSpec) string {
	return spec.Project + "-dev"
}

func (e *DockerExecutor) compose(ctx context.Context, spec *RuntimeSpec, args ...string) error {
	descriptor, err := WriteComposeDescriptor(e.manifest, spec)
	if err != nil {
		return err
	}
	full := append([]string{"compose", "-f", descriptor}, args...)
	return e.cli.RunStatus(ctx, full...)
}

// Execute translates a canonical verb into docker invocations.
func (e *DockerExecutor) Execute(ctx context.Context, verb Verb, spec *RuntimeSpec, extra []string) error {
	switch verb {
	case VerbCreate:
		return e.compose(ctx, spec, "up", "-d", "--build")
	case VerbStart:
		return e.compose(ctx, spec, "start")
	case VerbStop:
		return e.compose(ctx, spec, "stop")
	case VerbRestart:
		return e.compose(ctx, spec, "restart")
	case VerbDestroy:
		return e.compose(ctx, spec, "down", "--volumes")
	case VerbStatus:
		return e.compose(ctx, spec, "ps")
	case VerbLogs:
		return e.compose(ctx, spec, "logs", "--tail", "100")
	case VerbKill:
		return e.compose(ctx, spec, "kill")
	case VerbSSH:
		return e.cli.RunInteractive(ctx, "exec", "-it", "--user", spec.User, e.container(spec), "/bin/bash")
	case VerbExec:
		if len(extra) == 0 {
			return fmt.Errorf("%w: exec needs a command", ErrUnsupportedOperation)
		}
		args := append([]string{"exec", "--user", spec.User, e.container(spec)}, extra...)
		return e.cli.RunInteractive(ctx, args...)
	case VerbProvision:
		// Re-create the dev service in place; sibling services are
		// untouched unless their definition changed.
		return e.compose(ctx, spec, "up", "-d", "--build", "--force-recreate", "dev")
	}
	return fmt.Errorf("%w: %s on docker", ErrUnsupportedOperation, verb)
}
