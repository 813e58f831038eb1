// SPDX-License-Identifier: MPL-2.0

// Package provider routes lifecycle verbs to backend executors, gating
// each dispatch on the backend's static capability record before any
// external tool is invoked.
package provider

import (
	"errors"
	"fmt"
	"strings"
)

// Verb is a canonical lifecycle operation.
type Verb string

const (
	VerbCreate    Verb = "create"
	VerbStart     Verb = "start"
	VerbStop      Verb = "stop"
	VerbRestart   Verb = "restart"
	VerbDestroy   Verb = "destroy"
	VerbStatus    Verb = "status"
	VerbSSH       Verb = "ssh"
	VerbExec      Verb = "exec"
	VerbLogs      Verb = "logs"
	VerbProvision Verb = "provision"
	VerbKill      Verb = "kill"
	VerbSuspend   Verb = "suspend"
)

// Verbs lists the canonical set in display order.
var Verbs = []Verb{
	VerbCreate, VerbStart, VerbStop, VerbRestart, VerbDestroy,
	VerbStatus, VerbSSH, VerbExec, VerbLogs, VerbProvision, VerbKill,
	VerbSuspend,
}

// ErrUnknownVerb is returned when a verb cannot be normalized.
var ErrUnknownVerb = errors.New("unknown verb")

// synonyms maps accepted aliases onto the canonical set. suspend is a
// canonical verb of its own, not an alias for stop: suspended state is
// preserved and the capability gate decides per backend.
var synonyms = map[string]Verb{
	"up":          VerbStart,
	"boot":        VerbStart,
	"resume":      VerbStart,
	"halt":        VerbStop,
	"down":        VerbStop,
	"pause":       VerbSuspend,
	"reload":      VerbRestart,
	"reboot":      VerbRestart,
	"delete":      VerbDestroy,
	"rm":          VerbDestroy,
	"remove":      VerbDestroy,
	"teardown":    VerbDestroy,
	"ps":          VerbStatus,
	"info":        VerbStatus,
	"list":        VerbStatus,
	"shell":       VerbSSH,
	"connect":     VerbSSH,
	"run":         VerbExec,
	"log":         VerbLogs,
	"reprovision": VerbProvision,
}

// NormalizeVerb resolves a raw user verb (canonical or synonym) to its
// canonical form.
func NormalizeVerb(raw string) (Verb, error) {
	v := Verb(strings.ToLower(strings.TrimSpace(raw)))
	for _, canonical := range Verbs {
		if v == canonical {
			return canonical, nil
		}
	}
	if canonical, ok := synonyms[string(v)]; ok {
		return canonical, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVerb, raw)
}

// Destructive reports whether the verb discards environment state and
// therefore needs interactive confirmation.
func (v Verb) Destructive() bool {
	return v == VerbDestroy
}
