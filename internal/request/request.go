package request

// VCS identifies which version-control system an invocation belongs to.
type VCS int

const (
	Git VCS = iota + 1
	Mercurial
	Subversion
	Bazaar
)

func (v VCS) String() string {
	switch v {
	case Git:
		return "git"
	case Mercurial:
		return "mercurial"
	case Subversion:
		return "subversion"
	case Bazaar:
		return "bazaar"
	}
	return "unknown"
}

// Op classifies an invocation by whether it can mutate repository state.
type Op int

const (
	Read Op = iota + 1
	Write
)

func (o Op) String() string {
	switch o {
	case Read:
		return "read"
	case Write:
		return "write"
	}
	return "unknown"
}

// Request is a parsed, classified backend invocation.
type Request struct {
	VCS VCS
	Op  Op

	// Program is the recognized leading token, safe to use as the
	// backend executable name because it matched the grammar table.
	Program string

	// Path is the repository path exactly as the client sent it,
	// quotes stripped but not yet canonicalized.
	Path string

	// ExtraArgs are whitelisted pass-through flags from the original
	// invocation, currently only svnserve's --read-only.
	ExtraArgs []string
}
