package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"syscall"

	"github.com/raphi011/vcs-ssh/internal/authorize"
	"github.com/raphi011/vcs-ssh/internal/log"
	"github.com/raphi011/vcs-ssh/internal/policy"
	"github.com/raphi011/vcs-ssh/internal/request"
)

// ErrBackendNotFound indicates the backend executable is missing or not
// runnable. This is operator misconfiguration, not a client fault.
var ErrBackendNotFound = errors.New("backend executable not found")

// hg shell hooks that fail every push. "false" exits non-zero, which
// aborts the transaction before any changegroup is applied.
var hgReadOnlyArgs = []string{
	"--config", "hooks.prechangegroup.vcs-ssh=false",
	"--config", "hooks.prepushkey.vcs-ssh=false",
}

// Command builds the backend invocation for an allowed decision. The
// argument vector is constructed from scratch around the canonical path
// from the decision; raw client tokens are never passed through.
func Command(dec authorize.Decision, req *request.Request) (name string, argv []string) {
	name = req.Program
	switch req.VCS {
	case request.Git:
		argv = []string{req.Program, dec.Repo}
	case request.Mercurial:
		argv = []string{"hg", "-R", dec.Repo, "serve", "--stdio"}
		if dec.Entry.Mode == policy.ReadOnly {
			argv = append(argv, hgReadOnlyArgs...)
		}
	case request.Subversion:
		argv = []string{"svnserve", "-t", "--root", dec.Repo}
		if dec.Entry.Mode == policy.ReadOnly || slices.Contains(req.ExtraArgs, "--read-only") {
			argv = append(argv, "--read-only")
		}
	case request.Bazaar:
		argv = []string{"bzr", "serve", "--inet", "--directory=" + dec.Repo}
		if req.Op == request.Write {
			argv = append(argv, "--allow-writes")
		}
	}
	return name, argv
}

// Exec replaces the current process with the backend so it inherits the
// connection's standard streams byte for byte. The remote end is mid
// handshake of a binary protocol on those streams; nothing may buffer
// or transform them once dispatch begins. Exec only returns on failure.
//
// overrides maps a backend name to a configured executable path,
// bypassing the PATH search.
func Exec(ctx context.Context, name string, argv []string, overrides map[string]string) error {
	lookup := name
	if p, ok := overrides[name]; ok {
		lookup = p
	}
	path, err := exec.LookPath(lookup)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBackendNotFound, lookup, err)
	}
	log.FromContext(ctx).Command(path, argv[1:]...)
	if err := syscall.Exec(path, argv, os.Environ()); err != nil {
		return fmt.Errorf("%w: exec %s: %v", ErrBackendNotFound, path, err)
	}
	return nil
}
