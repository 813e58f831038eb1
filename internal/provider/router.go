// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/AlecAivazis/survey/v2"
	"github.com/charmbracelet/log"

	"github.com/goobits/vm/internal/issue"
)

// Request is one dispatch: a raw verb, the backend name from the
// resolved configuration, the runtime spec, and any passthrough
// arguments (the command after exec, for instance).
type Request struct {
	Verb    string
	Backend string
	Spec    *RuntimeSpec
	Args    []string

	// Force skips the interactive confirmation on destructive verbs.
	Force bool
}

// Router validates a request against the backend's descriptor before
// anything leaves the process. Executors are only consulted after the
// verb survives normalization, backend lookup, host preflight, and the
// capability gate.
type Router struct {
	executors map[BackendName]Executor

	lookPath func(string) (string, error)
	goos     string
	goarch   string
	confirm  func(prompt string) (bool, error)
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithExecutor installs the executor for one backend. Tests use this to
// observe (or forbid) dispatches.
func WithExecutor(name BackendName, e Executor) RouterOption {
	return func(r *Router) { r.executors[name] = e }
}

// WithHost overrides the host OS/arch used for preflight checks.
func WithHost(goos, goarch string) RouterOption {
	return func(r *Router) {
		r.goos = goos
		r.goarch = goarch
	}
}

// WithLookPath overrides binary resolution for preflight checks.
func WithLookPath(fn func(string) (string, error)) RouterOption {
	return func(r *Router) { r.lookPath = fn }
}

// WithConfirm overrides the interactive confirmation prompt.
func WithConfirm(fn func(prompt string) (bool, error)) RouterOption {
	return func(r *Router) { r.confirm = fn }
}

// NewRouter builds a router over the given executors.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		executors: make(map[BackendName]Executor),
		lookPath:  exec.LookPath,
		goos:      runtime.GOOS,
		goarch:    runtime.GOARCH,
		confirm:   askConfirm,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func askConfirm(prompt string) (bool, error) {
	confirmed := false
	err := survey.AskOne(&survey.Confirm{Message: prompt, Default: false}, &confirmed)
	return confirmed, err
}

// Dispatch routes one request. The order is fixed: normalize the verb,
// resolve the backend, preflight the host, gate on capability, and only
// then hand over to the executor.
func (r *Router) Dispatch(ctx context.Context, req Request) error {
	verb, err := NormalizeVerb(req.Verb)
	if err != nil {
		return err
	}

	desc, err := Lookup(req.Backend)
	if err != nil {
		return err
	}

	if err := r.preflight(desc); err != nil {
		return err
	}

	if !desc.Supports(verb) {
		return issue.WrapWithRemedy(
			fmt.Errorf("%w: %s does not support %s", ErrUnsupportedOperation, desc.Name, verb),
			fmt.Sprintf("%s environment", verb),
			issue.VerbUnsupportedId,
		)
	}

	if verb.Destructive() && !req.Force {
		prompt := fmt.Sprintf("Destroy the %q environment? This discards its state.", req.Spec.Project)
		ok, err := r.confirm(prompt)
		if err != nil {
			return fmt.Errorf("confirm %s: %w", verb, err)
		}
		if !ok {
			log.Info("aborted", "verb", verb, "project", req.Spec.Project)
			return nil
		}
	}

	executor, ok := r.executors[desc.Name]
	if !ok {
		return fmt.Errorf("%w: no executor wired for %s", ErrUnavailable, desc.Name)
	}

	log.Debug("dispatching", "verb", verb, "backend", desc.Name, "project", req.Spec.Project)
	return executor.Execute(ctx, verb, req.Spec, req.Args)
}

// preflight confirms the backend's tool is reachable and the host
// satisfies its OS/arch requirement. Failures carry the backend's
// remediation entry.
func (r *Router) preflight(desc *Descriptor) error {
	if desc.RequiresOS != "" && r.goos != desc.RequiresOS {
		return issue.WrapWithRemedy(
			fmt.Errorf("%w: %s requires %s, host is %s", ErrUnavailable, desc.Name, desc.RequiresOS, r.goos),
			"check host compatibility",
			desc.Remedy,
		)
	}
	if desc.RequiresArch != "" && r.goarch != desc.RequiresArch {
		return issue.WrapWithRemedy(
			fmt.Errorf("%w: %s requires %s, host is %s", ErrUnavailable, desc.Name, desc.RequiresArch, r.goarch),
			"check host compatibility",
			desc.Remedy,
		)
	}
	if _, err := r.lookPath(desc.Binary); err != nil {
		return issue.WrapWithRemedy(
			fmt.Errorf("%w: %s binary not found", ErrUnavailable, desc.Binary),
			"locate backend tool",
			desc.Remedy,
		)
	}
	return nil
}
