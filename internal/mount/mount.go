// SPDX-License-Identifier: MPL-2.0

// Package mount validates host directories before they are handed to a
// backend as bind mounts. Validation is fail-closed: a request either
// survives the full pipeline and yields a canonical, allow-listed path,
// or the whole operation is rejected.
package mount

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Permission is the access mode requested for a mount.
type Permission string

const (
	ReadWrite Permission = "rw"
	ReadOnly  Permission = "ro"
)

// ErrRequestSyntax indicates a mount request string that could not be
// split into its source/guest/permission parts.
var ErrRequestSyntax = errors.New("malformed mount request")

// Request is a parsed but not yet validated mount directive.
type Request struct {
	// Source is the host path exactly as the user wrote it, after
	// tilde expansion only. It has not been canonicalized.
	Source string
	// Guest is the path inside the environment. Empty means the
	// backend default under the workspace sync root.
	Guest string
	// Perm is the requested access mode.
	Perm Permission
}

// ParseRequest splits a "source[:guest[:perm]]" directive. A leading
// "~/" in the source is expanded to the invoking user's home directory;
// everything else is left untouched for the validator to judge.
func ParseRequest(raw string) (Request, error) {
	if strings.TrimSpace(raw) == "" {
		return Request{}, fmt.Errorf("%w: empty request", ErrRequestSyntax)
	}

	parts := strings.Split(raw, ":")
	req := Request{Perm: ReadWrite}

	switch len(parts) {
	case 1:
		req.Source = parts[0]
	case 2:
		req.Source = parts[0]
		// "src:ro" is shorthand for a permission with a default guest.
		if p, ok := asPermission(parts[1]); ok {
			req.Perm = p
		} else {
			req.Guest = parts[1]
		}
	case 3:
		req.Source = parts[0]
		req.Guest = parts[1]
		p, ok := asPermission(parts[2])
		if !ok {
			return Request{}, fmt.Errorf("%w: unknown permission %q in %q", ErrRequestSyntax, parts[2], raw)
		}
		req.Perm = p
	default:
		return Request{}, fmt.Errorf("%w: too many fields in %q", ErrRequestSyntax, raw)
	}

	src, err := expandHome(req.Source)
	if err != nil {
		return Request{}, err
	}
	req.Source = src
	return req, nil
}

func asPermission(s string) (Permission, bool) {
	switch Permission(strings.ToLower(s)) {
	case ReadWrite:
		return ReadWrite, true
	case ReadOnly:
		return ReadOnly, true
	}
	return "", false
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", p, err)
	}
	if p == "~" {
		return home, nil
	}
	return filepath.Join(home, p[2:]), nil
}

// ErrBatchFragmented indicates that a delimited batch of mount requests
// looks like a single mis-quoted request that the shell or caller split
// apart. The batch is rejected whole rather than mounting fragments.
var ErrBatchFragmented = errors.New("mount list looks mis-parsed")

// ParseBatch splits a comma-delimited list of mount directives. A batch
// of three or more fragments where most are very short and carry no
// path separator is rejected whole: that shape is far more likely a
// mis-quoted single request than several one-character mounts.
func ParseBatch(raw string) ([]Request, error) {
	fields := strings.Split(raw, ",")

	short := 0
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" && utf8.RuneCountInString(f) < 4 && !strings.ContainsAny(f, ":/") {
			short++
		}
	}
	if len(fields) >= 3 && short > len(fields)/2 {
		return nil, fmt.Errorf("%w: %d stray fragments in %q (quote the argument?)", ErrBatchFragmented, short, raw)
	}

	reqs := make([]Request, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		req, err := ParseRequest(f)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: no requests in %q", ErrRequestSyntax, raw)
	}
	return reqs, nil
}

// Validated is a mount that survived the full validation pipeline. The
// zero value is not valid; instances come only from a Validator.
type Validated struct {
	source string
	guest  string
	perm   Permission
}

// Source returns the canonical absolute host path.
func (m Validated) Source() string { return m.source }

// Guest returns the in-environment target path.
func (m Validated) Guest() string { return m.guest }

// Perm returns the access mode.
func (m Validated) Perm() Permission { return m.perm }

// Directive renders the mount in source:guest:perm form for backend
// command lines.
func (m Validated) Directive() string {
	return m.source + ":" + m.guest + ":" + string(m.perm)
}
