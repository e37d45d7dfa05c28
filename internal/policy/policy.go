// Package policy holds the repository access table built once per
// connection from the operator's flags and config file.
package policy

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// Mode is the access level granted to a repository directory.
type Mode int

const (
	ReadOnly Mode = iota + 1
	ReadWrite
)

func (m Mode) String() string {
	switch m {
	case ReadOnly:
		return "read-only"
	case ReadWrite:
		return "read-write"
	}
	return "unknown"
}

// Entry is one shareable repository directory. Path is canonical.
type Entry struct {
	Path string
	Mode Mode
}

// Dir is a single directory declaration in the order the operator wrote
// it: config file entries first, then command-line flags.
type Dir struct {
	Path string
	Mode Mode
}

// Policy maps canonical repository paths to their access mode.
// It is built once at startup and never mutated afterwards.
type Policy struct {
	entries map[string]Entry
}

// Build canonicalizes every declared directory and constructs the
// lookup table. A path declared more than once keeps the mode of its
// most recent declaration.
func Build(dirs []Dir) *Policy {
	p := &Policy{entries: make(map[string]Entry, len(dirs))}
	for _, d := range dirs {
		canon := Canonicalize(d.Path)
		p.entries[canon] = Entry{Path: canon, Mode: d.Mode}
	}
	return p
}

// Lookup returns the entry for the given canonical path. Matching is
// exact: no prefix matching, no implicit nesting. Every shareable
// directory must be listed explicitly.
func (p *Policy) Lookup(canonical string) (Entry, bool) {
	e, ok := p.entries[canonical]
	return e, ok
}

// Len returns the number of configured repositories.
func (p *Policy) Len() int {
	return len(p.entries)
}

// Canonicalize resolves a repository path to the form used for policy
// comparison: ~ expanded, absolute, cleaned, symlinks resolved. A path
// that does not exist keeps its cleaned absolute form, which can never
// collide with the resolved path of an existing configured directory.
func Canonicalize(path string) string {
	path = expandHome(path)
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// expandHome expands "~", "~/..." and "~user/..." prefixes. A prefix
// that cannot be resolved is left alone and will simply never match.
func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	name, rest, _ := strings.Cut(path[1:], "/")
	var home string
	if name == "" {
		home, _ = os.UserHomeDir()
	} else if u, err := user.Lookup(name); err == nil {
		home = u.HomeDir
	}
	if home == "" {
		return path
	}
	return filepath.Join(home, rest)
}
