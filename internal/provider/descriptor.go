// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/goobits/vm/internal/issue"
)

// BackendName identifies one of the known backends.
type BackendName string

const (
	BackendDocker  BackendName = "docker"
	BackendVagrant BackendName = "vagrant"
	BackendTart    BackendName = "tart"
)

var (
	// ErrUnsupportedOperation covers unknown backends and verbs outside
	// a backend's capability record.
	ErrUnsupportedOperation = errors.New("operation not supported by backend")

	// ErrUnavailable means the backend's tool is missing or the host
	// cannot run it.
	ErrUnavailable = errors.New("backend unavailable on this host")
)

// StartupClass ranks how long a backend takes to bring an environment
// up.
type StartupClass string

const (
	StartupFast   StartupClass = "fast"
	StartupMedium StartupClass = "medium"
	StartupSlow   StartupClass = "slow"
)

// IsolationClass names the boundary between the environment and the
// host.
type IsolationClass string

const (
	IsolationProcess  IsolationClass = "process"
	IsolationHardware IsolationClass = "hardware"
)

// NetworkingMode names how the environment reaches the network.
type NetworkingMode string

const (
	NetworkBridge NetworkingMode = "bridge"
	NetworkNAT    NetworkingMode = "nat"
	NetworkShared NetworkingMode = "shared"
)

// Capabilities is the static feature record for one backend. Verb
// support is derived from it, so the matrix the router gates on and the
// record users see cannot drift apart.
type Capabilities struct {
	SSH       bool
	Logs      bool
	Exec      bool
	Provision bool
	Snapshot  bool
	Suspend   bool

	Startup    StartupClass
	Isolation  IsolationClass
	Networking NetworkingMode
	GuestOS    []string
}

// Descriptor is the immutable record for one backend: the tool it
// shells out to, any host requirement, and its capability record.
// Instances are package constants; nothing mutates them after init.
type Descriptor struct {
	Name   BackendName
	Binary string

	// RequiresOS / RequiresArch constrain the host ("" means any).
	RequiresOS   string
	RequiresArch string

	// Remedy is rendered when the tool is missing or the host fails the
	// requirement.
	Remedy issue.Id

	Caps Capabilities
}

// Supports reports whether the backend implements the canonical verb.
// Feature verbs consult the capability record; plain lifecycle verbs
// are universal.
func (d *Descriptor) Supports(v Verb) bool {
	switch v {
	case VerbSSH:
		return d.Caps.SSH
	case VerbLogs:
		return d.Caps.Logs
	case VerbExec:
		return d.Caps.Exec
	case VerbProvision:
		return d.Caps.Provision
	case VerbSuspend:
		return d.Caps.Suspend
	default:
		return slices.Contains(Verbs, v)
	}
}

// Verbs returns the supported verb set.
func (d *Descriptor) Verbs() []Verb {
	out := make([]Verb, 0, len(Verbs))
	for _, v := range Verbs {
		if d.Supports(v) {
			out = append(out, v)
		}
	}
	return out
}

var (
	// Containers have no suspend: pausing does not persist state across
	// a daemon restart. Snapshotting is docker commit.
	dockerDescriptor = &Descriptor{
		Name:   BackendDocker,
		Binary: "docker",
		Remedy: issue.ContainerEngineNotFoundId,
		Caps: Capabilities{
			SSH: true, Logs: true, Exec: true, Provision: true,
			Snapshot: true, Suspend: false,
			Startup:    StartupFast,
			Isolation:  IsolationProcess,
			Networking: NetworkBridge,
			GuestOS:    []string{"linux"},
		},
	}

	// Vagrant exposes no log stream; everything else, including
	// suspend/resume and snapshots, is native.
	vagrantDescriptor = &Descriptor{
		Name:   BackendVagrant,
		Binary: "vagrant",
		Remedy: issue.VagrantNotFoundId,
		Caps: Capabilities{
			SSH: true, Logs: false, Exec: true, Provision: true,
			Snapshot: true, Suspend: true,
			Startup:    StartupSlow,
			Isolation:  IsolationHardware,
			Networking: NetworkNAT,
			GuestOS:    []string{"linux", "bsd", "windows"},
		},
	}

	// Tart runs full macOS/Linux VMs on Apple Silicon only. It has no
	// in-guest exec, no log stream, and no provisioning hook, but VMs
	// can be suspended.
	tartDescriptor = &Descriptor{
		Name:         BackendTart,
		Binary:       "tart",
		RequiresOS:   "darwin",
		RequiresArch: "arm64",
		Remedy:       issue.TartHostUnsupportedId,
		Caps: Capabilities{
			SSH: true, Logs: false, Exec: false, Provision: false,
			Snapshot: false, Suspend: true,
			Startup:    StartupMedium,
			Isolation:  IsolationHardware,
			Networking: NetworkShared,
			GuestOS:    []string{"macos", "linux"},
		},
	}

	descriptors = map[BackendName]*Descriptor{
		BackendDocker:  dockerDescriptor,
		BackendVagrant: vagrantDescriptor,
		BackendTart:    tartDescriptor,
	}
)

// Lookup resolves a backend name to its descriptor.
func Lookup(name string) (*Descriptor, error) {
	d, ok := descriptors[BackendName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown backend %q (known: docker, vagrant, tart)", ErrUnsupportedOperation, name)
	}
	return d, nil
}

// Backends returns the known backend names in display order.
func Backends() []BackendName {
	return []BackendName{BackendDocker, BackendVagrant, BackendTart}
}
