// Package authorize decides whether a parsed client request may proceed
// against the configured repository policy.
package authorize

import (
	"github.com/raphi011/vcs-ssh/internal/policy"
	"github.com/raphi011/vcs-ssh/internal/request"
)

// Reason explains a Decision.
type Reason int

const (
	Granted Reason = iota + 1
	UnknownRepository
	WriteOnReadOnly
)

func (r Reason) String() string {
	switch r {
	case Granted:
		return "granted"
	case UnknownRepository:
		return "unknown repository"
	case WriteOnReadOnly:
		return "write on read-only repository"
	}
	return "unknown"
}

// Decision is the outcome of authorizing one request. It is consumed
// exactly once: either dispatched or turned into a deny diagnostic.
type Decision struct {
	Allowed bool

	// Repo is the canonical form of the requested path. It is safe to
	// echo in diagnostics, unlike the raw client string.
	Repo string

	// Entry is the matched policy entry when Allowed.
	Entry *policy.Entry

	Reason Reason
}

// Authorize canonicalizes the requested path and checks it against the
// policy. It is total: every (request, policy) pair yields exactly one
// Decision, and nothing outside the decision is touched.
func Authorize(req *request.Request, pol *policy.Policy) Decision {
	repo := policy.Canonicalize(req.Path)
	entry, ok := pol.Lookup(repo)
	if !ok {
		return Decision{Repo: repo, Reason: UnknownRepository}
	}
	if req.Op == request.Write && entry.Mode == policy.ReadOnly {
		return Decision{Repo: repo, Reason: WriteOnReadOnly}
	}
	return Decision{Allowed: true, Repo: repo, Entry: &entry, Reason: Granted}
}
