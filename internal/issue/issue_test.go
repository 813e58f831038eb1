// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestCatalogCoversEveryId(t *testing.T) {
	ids := []Id{
		ContainerEngineNotFoundId,
		VagrantNotFoundId,
		TartHostUnsupportedId,
		VerbUnsupportedId,
		ConfigParseErrorId,
		MountRejectedId,
		PortConflictId,
		PortRegistryCorruptId,
		ProjectNotInitializedId,
		EnvironmentNotRunningId,
	}
	for _, id := range ids {
		entry := Get(id)
		if entry == nil {
			t.Errorf("id %d has no catalog entry", id)
			continue
		}
		if entry.Id() != id {
			t.Errorf("entry for id %d reports id %d", id, entry.Id())
		}
		if strings.TrimSpace(string(entry.MarkdownMsg())) == "" {
			t.Errorf("entry %d has empty remediation text", id)
		}
	}
	if len(Values()) != len(ids) {
		t.Errorf("catalog has %d entries, want %d", len(Values()), len(ids))
	}
}

func TestGet_UnknownId(t *testing.T) {
	if Get(Id(9999)) != nil {
		t.Error("unknown id returned an entry")
	}
}

func TestRender_IncludesLinks(t *testing.T) {
	// Swap the markdown renderer so tests need no terminal.
	orig := render
	render = func(in, _ string) (string, error) { return in, nil }
	defer func() { render = orig }()

	out, err := Get(ContainerEngineNotFoundId).Render("dark")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "docs.docker.com") {
		t.Errorf("rendered output lacks external link:\n%s", out)
	}
	if !strings.Contains(out, "Container engine not found") {
		t.Errorf("rendered output lacks heading:\n%s", out)
	}
}

func TestActionableError(t *testing.T) {
	cause := errors.New("boom")
	err := WrapWithRemedy(cause, "register port range", PortConflictId)

	if got := err.Error(); got != "failed to register port range: boom" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
	if err.Issue() == nil || err.Issue().Id() != PortConflictId {
		t.Errorf("Issue() = %v", err.Issue())
	}
}

func TestActionableError_NilCause(t *testing.T) {
	if Wrap(nil, "anything") != nil {
		t.Error("Wrap(nil) is not nil")
	}
	if WrapWithRemedy(nil, "anything", MountRejectedId) != nil {
		t.Error("WrapWithRemedy(nil) is not nil")
	}
}

func TestActionableError_VerboseFormat(t *testing.T) {
	inner := errors.New("inner")
	mid := Wrap(inner, "read registry")
	outer := &ActionableError{Operation: "allocate ports", Resource: "/home/u/app", Cause: mid}

	short := outer.Format(false)
	if strings.Contains(short, "Error chain") {
		t.Errorf("non-verbose format includes chain: %q", short)
	}

	long := outer.Format(true)
	for _, want := range []string{"Error chain", "1. failed to read registry", "2. inner"} {
		if !strings.Contains(long, want) {
			t.Errorf("verbose format missing %q:\n%s", want, long)
		}
	}
}

func TestActionableError_NoRemedy(t *testing.T) {
	err := Wrap(errors.New("x"), "do thing")
	if err.Issue() != nil {
		t.Error("Issue() non-nil without a remedy")
	}
}
