// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Id selects a remediation entry from the catalog.
type Id int

const (
	ContainerEngineNotFoundId Id = iota + 1
	VagrantNotFoundId
	TartHostUnsupportedId
	VerbUnsupportedId
	ConfigParseErrorId
	MountRejectedId
	PortConflictId
	PortRegistryCorruptId
	ProjectNotInitializedId
	EnvironmentNotRunningId
)

// MarkdownMsg is remediation text rendered through glamour before
// display.
type MarkdownMsg string

// HttpLink points at further reading for an issue.
type HttpLink string

// Issue pairs a diagnostic with concrete recovery steps. Entries are
// static; the per-failure detail travels in the error the issue is
// attached to.
type Issue struct {
	id       Id
	mdMsg    MarkdownMsg
	docLinks []HttpLink
	extLinks []HttpLink
}

func (i *Issue) Id() Id { return i.id }

func (i *Issue) MarkdownMsg() MarkdownMsg { return i.mdMsg }

func (i *Issue) DocLinks() []HttpLink { return slices.Clone(i.docLinks) }

func (i *Issue) ExtLinks() []HttpLink { return slices.Clone(i.extLinks) }

// Render produces the terminal-ready remediation text.
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also:\n"
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# Container engine not found!

The docker backend needs a container engine binary on your PATH, and we
could not find one.

## Things you can try:
- Install Docker Engine or Docker Desktop:
~~~
$ curl -fsSL https://get.docker.com | sh
~~~

- If Docker is installed, make sure the daemon is running:
~~~
$ sudo systemctl start docker
~~~

- Or switch this project to another backend in vm.yaml:
~~~yaml
provider: vagrant
~~~`,
		extLinks: []HttpLink{"https://docs.docker.com/engine/install/"},
	}

	vagrantNotFoundIssue = &Issue{
		id: VagrantNotFoundId,
		mdMsg: `
# Vagrant not found!

The vagrant backend needs the vagrant binary on your PATH.

## Things you can try:
- Install Vagrant from your package manager:
~~~
$ sudo apt install vagrant
~~~

- Vagrant also needs a hypervisor (VirtualBox or libvirt)
- Or switch this project to the docker backend in vm.yaml:
~~~yaml
provider: docker
~~~`,
		extLinks: []HttpLink{"https://developer.hashicorp.com/vagrant/install"},
	}

	tartHostUnsupportedIssue = &Issue{
		id: TartHostUnsupportedId,
		mdMsg: `
# Tart needs an Apple Silicon Mac!

The tart backend only runs on macOS with an arm64 processor. Your host
does not match.

## Things you can try:
- Pick a backend that runs here instead:
~~~yaml
provider: docker
~~~

- Or run this project on an Apple Silicon machine`,
		extLinks: []HttpLink{"https://tart.run"},
	}

	verbUnsupportedIssue = &Issue{
		id: VerbUnsupportedId,
		mdMsg: `
# This backend can't do that!

The operation you asked for is not supported by the selected backend.
Nothing was run; capability is checked before any external tool is
invoked.

## Things you can try:
- Check what the backend supports:
~~~
$ vm status
~~~

- Switch the project to a backend that supports the operation:
~~~yaml
provider: docker
~~~`,
	}

	configParseErrorIssue = &Issue{
		id: ConfigParseErrorId,
		mdMsg: `
# Configuration didn't parse!

One of your configuration layers is not well-formed YAML. The error
above names the layer and position.

## Things you can try:
- Check indentation: YAML is whitespace-sensitive
- Quote values containing ': ' or '#'
- Validate the merged result once fixed:
~~~
$ vm config show
~~~`,
	}

	mountRejectedIssue = &Issue{
		id: MountRejectedId,
		mdMsg: `
# Mount refused!

A requested mount failed security validation and the whole operation
was aborted. Nothing was mounted.

## Why this happens:
- The path contains shell metacharacters or traversal sequences
- The path resolves into a protected system tree (/etc, /proc, ...)
- The path sits outside every allowed location (your home directory,
  the system temp directory, the project directory)

## Things you can try:
- Mount a directory inside your home or project tree instead
- Add a trusted root to ~/.vm/settings.yaml:
~~~yaml
allowed_mount_roots:
  - /scratch
~~~`,
	}

	portConflictIssue = &Issue{
		id: PortConflictId,
		mdMsg: `
# Port range conflict!

The requested range overlaps ranges already registered to other
projects. The error above lists every conflicting project.

## Things you can try:
- Ask for the next free range:
~~~
$ vm ports suggest
~~~

- See every registration:
~~~
$ vm ports list
~~~

- Free a range a retired project still holds:
~~~
$ vm ports unregister old-project
~~~`,
	}

	portRegistryCorruptIssue = &Issue{
		id: PortRegistryCorruptId,
		mdMsg: `
# Port registry unreadable!

The shared registry at ~/.vm/port-registry.json is not valid JSON.
Registrations cannot be read or written until it is repaired.

## Things you can try:
- Inspect the file; it may have a truncated write from a crash
- Reset it (existing registrations are lost):
~~~
$ echo '{}' > ~/.vm/port-registry.json
~~~

- Then re-register each active project:
~~~
$ vm ports register
~~~`,
	}

	projectNotInitializedIssue = &Issue{
		id: ProjectNotInitializedId,
		mdMsg: `
# No vm.yaml here!

This directory has no project configuration, and defaults alone are
used. That is fine for a quick start, but persistent settings need a
file.

## Things you can try:
- Create one:
~~~
$ vm init
~~~

- Or run from the project root where vm.yaml lives`,
	}

	environmentNotRunningIssue = &Issue{
		id: EnvironmentNotRunningId,
		mdMsg: `
# Environment isn't running!

The operation needs a running environment for this project.

## Things you can try:
- Check what state it is in:
~~~
$ vm status
~~~

- Start it:
~~~
$ vm start
~~~

- Or create it from scratch:
~~~
$ vm create
~~~`,
	}

	issues = map[Id]*Issue{
		containerEngineNotFoundIssue.Id(): containerEngineNotFoundIssue,
		vagrantNotFoundIssue.Id():         vagrantNotFoundIssue,
		tartHostUnsupportedIssue.Id():     tartHostUnsupportedIssue,
		verbUnsupportedIssue.Id():         verbUnsupportedIssue,
		configParseErrorIssue.Id():        configParseErrorIssue,
		mountRejectedIssue.Id():           mountRejectedIssue,
		portConflictIssue.Id():            portConflictIssue,
		portRegistryCorruptIssue.Id():     portRegistryCorruptIssue,
		projectNotInitializedIssue.Id():   projectNotInitializedIssue,
		environmentNotRunningIssue.Id():   environmentNotRunningIssue,
	}
)

// Values returns every catalog entry.
func Values() []*Issue {
	return maps.Values(issues)
}

// Get looks up a catalog entry by id, nil if unknown.
func Get(id Id) *Issue {
	return issues[id]
}
