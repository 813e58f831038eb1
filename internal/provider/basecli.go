// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// BaseCLIOption configures a BaseCLI.
	BaseCLIOption func(*BaseCLI)

	// BaseCLI provides the common subprocess plumbing for backends that
	// shell out to a tool binary. Concrete executors embed it; verb
	// translation stays on the concrete types.
	BaseCLI struct {
		name        string
		binaryPath  string
		execCommand ExecCommandFunc
		env         map[string]string
	}
)

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) BaseCLIOption {
	return func(b *BaseCLI) { b.execCommand = fn }
}

// WithEnv adds an environment variable applied to every command the
// backend runs.
func WithEnv(key, value string) BaseCLIOption {
	return func(b *BaseCLI) {
		if b.env == nil {
			b.env = make(map[string]string)
		}
		b.env[key] = value
	}
}

// NewBaseCLI creates the subprocess plumbing for a named tool binary.
func NewBaseCLI(name, binaryPath string, opts ...BaseCLIOption) *BaseCLI {
	b := &BaseCLI{
		name:        name,
		binaryPath:  binaryPath,
		execCommand: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the tool name used in error messages.
func (b *BaseCLI) Name() string { return b.name }

// BinaryPath returns the resolved tool binary path, empty when the tool
// was not found.
func (b *BaseCLI) BinaryPath() string { return b.binaryPath }

// CreateCommand creates an exec.Cmd for the given arguments, applying
// backend-level environment overrides. Callers customize the streams.
func (b *BaseCLI) CreateCommand(ctx context.Context, args ...string) *exec.Cmd {
	cmd := b.execCommand(ctx, b.binaryPath, args...)
	if len(b.env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range b.env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	return cmd
}

// RunInteractive runs a command wired to the invoking terminal. Used
// for verbs the user interacts with (ssh, exec, logs).
func (b *BaseCLI) RunInteractive(ctx context.Context, args ...string) error {
	cmd := b.CreateCommand(ctx, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v: %w", b.name, args, err)
	}
	return nil
}

// RunStatus runs a command for its exit status, surfacing stderr to the
// terminal.
func (b *BaseCLI) RunStatus(ctx context.Context, args ...string) error {
	cmd := b.CreateCommand(ctx, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v: %w", b.name, args, err)
	}
	return nil
}

// RunOutput runs a command and captures stdout.
func (b *BaseCLI) RunOutput(ctx context.Context, args ...string) (string, error) {
	cmd := b.CreateCommand(ctx, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %v: %w", b.name, args, err)
	}
	return out.String(), nil
}
