// SPDX-License-Identifier: MPL-2.0

package mount

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ViolationKind classifies why a mount request was rejected.
type ViolationKind int

const (
	// ViolationMetachar: the raw string carries shell metacharacters or
	// control characters.
	ViolationMetachar ViolationKind = iota
	// ViolationTraversal: literal, encoded, or normalization-induced
	// parent-directory references.
	ViolationTraversal
	// ViolationResolve: the path could not be canonicalized.
	ViolationResolve
	// ViolationProtected: the canonical path sits in a protected system
	// tree.
	ViolationProtected
	// ViolationOutsideAllowed: the canonical path is outside every
	// allow-listed root.
	ViolationOutsideAllowed
	// ViolationChanged: the path resolved differently between validation
	// and use.
	ViolationChanged
)

func (k ViolationKind) String() string {
	switch k {
	case ViolationMetachar:
		return "dangerous characters"
	case ViolationTraversal:
		return "path traversal"
	case ViolationResolve:
		return "unresolvable path"
	case ViolationProtected:
		return "protected system path"
	case ViolationOutsideAllowed:
		return "outside allowed locations"
	case ViolationChanged:
		return "path changed after validation"
	}
	return "unknown violation"
}

// ErrMountRejected is the sentinel wrapped by every Violation.
var ErrMountRejected = errors.New("mount rejected")

// Violation reports a failed validation with the offending path and the
// pipeline stage that refused it.
type Violation struct {
	Path string
	Kind ViolationKind
	// Detail names the specific trigger (the character, the protected
	// prefix, the normalization form).
	Detail string
}

func (v *Violation) Error() string {
	if v.Detail == "" {
		return fmt.Sprintf("mount rejected: %s: %q", v.Kind, v.Path)
	}
	return fmt.Sprintf("mount rejected: %s (%s): %q", v.Kind, v.Detail, v.Path)
}

func (v *Violation) Unwrap() error { return ErrMountRejected }

func reject(path string, kind ViolationKind, detail string) error {
	return &Violation{Path: path, Kind: kind, Detail: detail}
}

// metachars are shell-meaningful characters never valid in a mount
// source. Tilde is included because expansion happens before validation;
// a surviving tilde is suspicious.
const metachars = ";`$\"|&><(){}*?[]~@#%"

// protectedRoots are trees that must never be mounted into an
// environment, whatever the allow list says.
var protectedRoots = []string{
	"/",
	"/etc",
	"/proc",
	"/sys",
	"/dev",
	"/boot",
	"/var/lib",
	"/bin",
	"/sbin",
	"/usr/bin",
	"/usr/sbin",
	"/usr/lib",
}

// Code points whose normalization or visual form smuggles a dot into a
// path component.
var dotLeaders = []rune{
	'․', // one dot leader
	'‥', // two dot leader
	'…', // horizontal ellipsis
	'﹒', // small full stop
	'．', // fullwidth full stop
}

// Validator runs the mount security pipeline. Its allow list is the
// user home tree, the system temp directories, the current working
// directory, a few conventional project trees, plus any configured
// extra roots.
type Validator struct {
	workspaceRoot string
	extraRoots    []string

	// overridden in tests
	home   func() (string, error)
	cwd    func() (string, error)
	tmpDir func() string
}

// Option configures a Validator.
type Option func(*Validator)

// WithWorkspaceRoot allow-lists an explicit workspace root.
func WithWorkspaceRoot(root string) Option {
	return func(v *Validator) { v.workspaceRoot = root }
}

// WithExtraRoots allow-lists additional directory prefixes, typically
// from user settings.
func WithExtraRoots(roots []string) Option {
	return func(v *Validator) { v.extraRoots = roots }
}

// NewValidator builds a Validator with the default allow and protected
// lists.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		home:   os.UserHomeDir,
		cwd:    os.Getwd,
		tmpDir: os.TempDir,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// conventionalRoots mirror the directories projects conventionally live
// under on shared hosts.
var conventionalRoots = []string{
	"/workspace",
	"/opt",
	"/srv",
	"/usr/local",
	"/data",
	"/projects",
	"/tmp",
	"/var/tmp",
}

// Validate runs the full pipeline on a parsed request and returns the
// only form the rest of the system accepts.
func (v *Validator) Validate(req Request) (Validated, error) {
	canonical, err := v.check(req.Source)
	if err != nil {
		return Validated{}, err
	}

	guest := req.Guest
	if guest == "" {
		guest = "/workspace/" + filepath.Base(canonical)
	}

	return Validated{source: canonical, guest: guest, perm: req.Perm}, nil
}

// Revalidate re-runs canonicalization and the placement checks on an
// already validated mount, immediately before its path is embedded in a
// backend directive. A result differing from the recorded one means the
// filesystem changed underneath us and is itself a violation.
func (v *Validator) Revalidate(m Validated) (Validated, error) {
	canonical, err := v.check(m.source)
	if err != nil {
		return Validated{}, err
	}
	if canonical != m.source {
		return Validated{}, reject(m.source, ViolationChanged, "now resolves to "+canonical)
	}
	return m, nil
}

func (v *Validator) check(raw string) (string, error) {
	if err := checkCharacters(raw); err != nil {
		return "", err
	}
	if err := checkTraversal(raw); err != nil {
		return "", err
	}

	canonical, err := v.canonicalize(raw)
	if err != nil {
		return "", err
	}

	// Symlinks can themselves point at traversal-shaped targets.
	if strings.Contains(canonical, "..") {
		return "", reject(raw, ViolationTraversal, "resolved form contains ..")
	}

	if prefix, protected := v.protectedBy(canonical); protected {
		return "", reject(raw, ViolationProtected, prefix)
	}
	if !v.allowed(canonical) {
		return "", reject(raw, ViolationOutsideAllowed, "")
	}
	return canonical, nil
}

func checkCharacters(raw string) error {
	if raw == "" {
		return reject(raw, ViolationResolve, "empty path")
	}
	if i := strings.IndexAny(raw, metachars); i >= 0 {
		return reject(raw, ViolationMetachar, fmt.Sprintf("%q", raw[i]))
	}
	for _, r := range raw {
		if r < 0x20 || r == 0x7f {
			return reject(raw, ViolationMetachar, "control character")
		}
	}
	return nil
}

func checkTraversal(raw string) error {
	if strings.Contains(raw, "..") {
		return reject(raw, ViolationTraversal, "literal ..")
	}

	// Percent-encoded and doubly-encoded variants. The metacharacter
	// check already refuses '%', so this is a backstop should that list
	// ever change.
	decoded := raw
	for range 2 {
		next, err := url.PathUnescape(decoded)
		if err != nil {
			break
		}
		if strings.Contains(next, "..") {
			return reject(raw, ViolationTraversal, "encoded ..")
		}
		if next == decoded {
			break
		}
		decoded = next
	}

	for _, leader := range dotLeaders {
		if strings.ContainsRune(raw, leader) {
			return reject(raw, ViolationTraversal, fmt.Sprintf("dot-leader U+%04X", leader))
		}
	}

	// A normalization form that manufactures ".." out of a string that
	// did not contain it is an attack, not an encoding accident.
	for _, form := range []norm.Form{norm.NFC, norm.NFD, norm.NFKC, norm.NFKD} {
		if strings.Contains(form.String(raw), "..") {
			return reject(raw, ViolationTraversal, "normalization-induced ..")
		}
	}
	return nil
}

func (v *Validator) canonicalize(raw string) (string, error) {
	p := raw
	if !filepath.IsAbs(p) {
		cwd, err := v.cwd()
		if err != nil {
			return "", reject(raw, ViolationResolve, err.Error())
		}
		p = filepath.Join(cwd, p)
	}

	resolved, err := filepath.EvalSymlinks(p)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", reject(raw, ViolationResolve, err.Error())
	}

	// The leaf may not exist yet (the backend will create it); resolve
	// the nearest existing ancestor and re-join the remainder.
	dir, base := filepath.Split(filepath.Clean(p))
	resolvedDir, derr := filepath.EvalSymlinks(filepath.Clean(dir))
	if derr != nil {
		return "", reject(raw, ViolationResolve, derr.Error())
	}
	return filepath.Join(resolvedDir, base), nil
}

func (v *Validator) protectedBy(canonical string) (string, bool) {
	for _, root := range protectedRoots {
		if root == "/" {
			if canonical == "/" {
				return root, true
			}
			continue
		}
		if canonical == root || strings.HasPrefix(canonical, root+"/") {
			return root, true
		}
	}
	return "", false
}

func (v *Validator) allowed(canonical string) bool {
	roots := make([]string, 0, len(conventionalRoots)+len(v.extraRoots)+4)
	if home, err := v.home(); err == nil && home != "" {
		roots = append(roots, home)
	}
	if cwd, err := v.cwd(); err == nil && cwd != "" {
		roots = append(roots, cwd)
	}
	if tmp := v.tmpDir(); tmp != "" {
		roots = append(roots, filepath.Clean(tmp))
	}
	if v.workspaceRoot != "" {
		roots = append(roots, v.workspaceRoot)
	}
	roots = append(roots, conventionalRoots...)
	roots = append(roots, v.extraRoots...)

	for _, root := range roots {
		if canonical == root || strings.HasPrefix(canonical, strings.TrimSuffix(root, "/")+"/") {
			return true
		}
	}
	return false
}

// ValidateLinked validates a locally linked package directory through the
// same pipeline as a regular mount source. The package name becomes the
// guest path under /workspace/.vm/links and linked packages are always
// read-only.
func (v *Validator) ValidateLinked(name, path string) (Validated, error) {
	if name == "" || strings.ContainsAny(name, "/\\") {
		return Validated{}, reject(path, ViolationResolve, "invalid package name")
	}
	canonical, err := v.check(path)
	if err != nil {
		return Validated{}, err
	}
	return Validated{
		source: canonical,
		guest:  "/workspace/.vm/links/" + name,
		perm:   ReadOnly,
	}, nil
}

// ValidateAll validates a batch with all-or-nothing semantics: the first
// violation aborts the whole set and nothing is mounted.
func (v *Validator) ValidateAll(reqs []Request) ([]Validated, error) {
	out := make([]Validated, 0, len(reqs))
	for _, req := range reqs {
		m, err := v.Validate(req)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
