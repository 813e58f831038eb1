// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/goobits/vm/internal/mount"
	"github.com/goobits/vm/internal/tempfiles"
)

// fakeExec records each invocation and substitutes a no-op process.
type fakeExec struct {
	invocations [][]string
}

func (f *fakeExec) commandContext(ctx context.Context, name string, arg ...string) *exec.Cmd {
	f.invocations = append(f.invocations, append([]string{name}, arg...))
	return exec.CommandContext(ctx, "sh", "-c", ":")
}

func TestDockerExecutor_ComposeVerbs(t *testing.T) {
	fake := &fakeExec{}
	manifest := tempfiles.NewManifest()
	defer manifest.Cleanup()

	e := NewDockerExecutor(manifest, WithExecCommand(fake.commandContext))
	e.cli.binaryPath = "docker"
	spec := &RuntimeSpec{Project: "demo", Image: "ubuntu:24.04", User: "developer", WorkspaceSync: "/workspace"}

	tests := []struct {
		verb Verb
		sub  string
	}{
		{VerbCreate, "up"},
		{VerbStop, "stop"},
		{VerbDestroy, "down"},
		{VerbStatus, "ps"},
		{VerbLogs, "logs"},
		{VerbKill, "kill"},
	}
	for i, tt := range tests {
		if err := e.Execute(context.Background(), tt.verb, spec, nil); err != nil {
			t.Fatalf("Execute(%s): %v", tt.verb, err)
		}
		argv := fake.invocations[i]
		if argv[0] != "docker" || argv[1] != "compose" {
			t.Errorf("%s argv = %v, want docker compose ...", tt.verb, argv)
			continue
		}
		// argv[2] is -f, argv[3] the descriptor path.
		if argv[2] != "-f" || argv[4] != tt.sub {
			t.Errorf("%s argv = %v, want subcommand %s", tt.verb, argv, tt.sub)
		}
	}

	// One descriptor per compose invocation, all tracked.
	if manifest.Len() != len(tests) {
		t.Errorf("tracked descriptors = %d, want %d", manifest.Len(), len(tests))
	}
}

func TestDockerExecutor_ExecNeedsCommand(t *testing.T) {
	fake := &fakeExec{}
	e := NewDockerExecutor(tempfiles.NewManifest(), WithExecCommand(fake.commandContext))
	e.cli.binaryPath = "docker"

	err := e.Execute(context.Background(), VerbExec, &RuntimeSpec{Project: "demo"}, nil)
	if err == nil {
		t.Fatal("exec without a command succeeded")
	}
	if len(fake.invocations) != 0 {
		t.Errorf("subprocess spawned: %v", fake.invocations)
	}
}

func validatedMount(t *testing.T) (mount.Validated, *mount.Validator) {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "data")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	v := mount.NewValidator(mount.WithWorkspaceRoot(dir))
	m, err := v.Validate(mount.Request{Source: src, Perm: mount.ReadOnly})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return m, v
}

func TestDockerExecutor_RechecksMountsAtDescriptorTime(t *testing.T) {
	fake := &fakeExec{}
	manifest := tempfiles.NewManifest()
	defer manifest.Cleanup()

	m, validator := validatedMount(t)
	rechecks := 0
	spec := &RuntimeSpec{
		Project: "demo", Image: "ubuntu:24.04", User: "developer",
		WorkspaceSync: "/workspace",
		Mounts:        []mount.Validated{m},
		Recheck: func(v mount.Validated) (mount.Validated, error) {
			rechecks++
			return validator.Revalidate(v)
		},
	}

	e := NewDockerExecutor(manifest, WithExecCommand(fake.commandContext))
	e.cli.binaryPath = "docker"

	if rechecks != 0 {
		t.Fatalf("mount re-checked before any dispatch: %d", rechecks)
	}
	if err := e.Execute(context.Background(), VerbCreate, spec, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rechecks != 1 {
		t.Errorf("rechecks = %d, want 1 (once per mount, at descriptor build)", rechecks)
	}
}

func TestDockerExecutor_RecheckFailureBlocksSubprocess(t *testing.T) {
	fake := &fakeExec{}
	manifest := tempfiles.NewManifest()

	m, _ := validatedMount(t)
	spec := &RuntimeSpec{
		Project: "demo", Image: "ubuntu:24.04", User: "developer",
		WorkspaceSync: "/workspace",
		Mounts:        []mount.Validated{m},
		Recheck: func(mount.Validated) (mount.Validated, error) {
			return mount.Validated{}, errors.New("path changed after validation")
		},
	}

	e := NewDockerExecutor(manifest, WithExecCommand(fake.commandContext))
	e.cli.binaryPath = "docker"

	if err := e.Execute(context.Background(), VerbCreate, spec, nil); err == nil {
		t.Fatal("Execute succeeded despite failed mount re-check")
	}
	if len(fake.invocations) != 0 {
		t.Errorf("subprocess spawned after failed re-check: %v", fake.invocations)
	}
	if manifest.Len() != 0 {
		t.Errorf("descriptor written despite failed re-check: %d tracked", manifest.Len())
	}
}

func TestVagrantExecutor_RunsInProjectDir(t *testing.T) {
	fake := &fakeExec{}
	e := NewVagrantExecutor(WithExecCommand(fake.commandContext))
	e.cli.binaryPath = "vagrant"
	spec := &RuntimeSpec{Project: "demo", ProjectDir: t.TempDir()}

	if err := e.Execute(context.Background(), VerbStop, spec, nil); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(fake.invocations) != 1 {
		t.Fatalf("invocations = %v", fake.invocations)
	}
	argv := fake.invocations[0]
	if argv[0] != "vagrant" || argv[1] != "halt" {
		t.Errorf("argv = %v, want vagrant halt", argv)
	}
}
