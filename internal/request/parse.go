package request

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/shlex"
)

// Parse failure discriminators. Every command that is not positively
// recognized maps to one of these; the parser never guesses a backend.
var (
	ErrEmptyCommand     = errors.New("empty command")
	ErrBadQuoting       = errors.New("malformed quoting")
	ErrUnknownCommand   = errors.New("unrecognized command")
	ErrMalformedCommand = errors.New("malformed command")
	ErrMissingPath      = errors.New("missing repository path")
)

// grammars maps the leading program token to the matcher for that
// backend's invocation shape. Together with the per-backend operation
// tables below it is the single place that decides what vcs-ssh
// recognizes and what counts as a write.
var grammars = map[string]func([]string) (*Request, error){
	"git-upload-pack":    parseGit,
	"git-upload-archive": parseGit,
	"git-receive-pack":   parseGit,
	"hg":                 parseHg,
	"svnserve":           parseSvnserve,
	"bzr":                parseBzr,
}

// gitOps classifies the git pack programs. git-receive-pack is the only
// mutating entry point; both upload forms serve fetch traffic.
var gitOps = map[string]Op{
	"git-upload-pack":    Read,
	"git-upload-archive": Read,
	"git-receive-pack":   Write,
}

// Parse turns the raw forced-command string from SSH_ORIGINAL_COMMAND
// into a Request. The input is attacker-controlled: anything that does
// not exactly match a known backend invocation is rejected.
func Parse(raw string) (*Request, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyCommand
	}
	argv, err := shlex.Split(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadQuoting, err)
	}
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}
	match, ok := grammars[argv[0]]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, argv[0])
	}
	return match(argv)
}

// parseGit matches the pack protocol programs, which take exactly one
// repository argument: git-upload-pack '<path>'.
func parseGit(argv []string) (*Request, error) {
	if len(argv) < 2 {
		return nil, fmt.Errorf("%w: %s takes a repository argument", ErrMissingPath, argv[0])
	}
	if len(argv) != 2 {
		return nil, fmt.Errorf("%w: %s takes exactly one argument", ErrMalformedCommand, argv[0])
	}
	if argv[1] == "" {
		return nil, fmt.Errorf("%w: %s needs a repository", ErrMissingPath, argv[0])
	}
	return &Request{VCS: Git, Op: gitOps[argv[0]], Program: argv[0], Path: argv[1]}, nil
}

// parseHg matches "hg -R <path> serve --stdio", the only shape the
// Mercurial ssh client sends. The tunnel carries both pulls and pushes,
// so it is classified as a read and the dispatcher installs reject
// hooks when the repository is read-only.
func parseHg(argv []string) (*Request, error) {
	if len(argv) != 5 || argv[1] != "-R" || argv[3] != "serve" || argv[4] != "--stdio" {
		return nil, fmt.Errorf("%w: expected hg -R <path> serve --stdio", ErrMalformedCommand)
	}
	if argv[2] == "" {
		return nil, fmt.Errorf("%w: hg -R needs a repository", ErrMissingPath)
	}
	return &Request{VCS: Mercurial, Op: Read, Program: "hg", Path: argv[2]}, nil
}

// parseSvnserve matches "svnserve -t" with a mandatory --root. Like
// Mercurial, the tunnel is bidirectional at the syntax level; it is
// classified as a read and the dispatcher appends --read-only for
// read-only repositories. A bare "svnserve -t" without a root would
// expose the whole filesystem tree and is rejected.
func parseSvnserve(argv []string) (*Request, error) {
	var (
		tunnel   bool
		root     string
		readOnly bool
	)
	args := argv[1:]
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; {
		case arg == "-t" || arg == "--tunnel":
			tunnel = true
		case arg == "-r" || arg == "--root":
			if i+1 == len(args) {
				return nil, fmt.Errorf("%w: %s needs a value", ErrMalformedCommand, arg)
			}
			i++
			root = args[i]
		case strings.HasPrefix(arg, "--root="):
			root = strings.TrimPrefix(arg, "--root=")
		case arg == "-R" || arg == "--read-only":
			readOnly = true
		default:
			return nil, fmt.Errorf("%w: unsupported svnserve argument %q", ErrMalformedCommand, arg)
		}
	}
	if !tunnel {
		return nil, fmt.Errorf("%w: svnserve is only served in tunnel mode", ErrMalformedCommand)
	}
	if root == "" {
		return nil, fmt.Errorf("%w: svnserve needs --root pointing at the repository", ErrMissingPath)
	}
	req := &Request{VCS: Subversion, Op: Read, Program: "svnserve", Path: root}
	if readOnly {
		req.ExtraArgs = []string{"--read-only"}
	}
	return req, nil
}

// parseBzr matches "bzr serve --inet --directory=<dir>" with an
// optional --allow-writes. The write capability is requested in the
// command line itself, so --allow-writes is a genuine write
// classification, checked against the policy like a git push.
func parseBzr(argv []string) (*Request, error) {
	if len(argv) < 2 || argv[1] != "serve" {
		return nil, fmt.Errorf("%w: only bzr serve is supported", ErrMalformedCommand)
	}
	var (
		inet        bool
		dir         string
		allowWrites bool
	)
	args := argv[2:]
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; {
		case arg == "--inet":
			inet = true
		case arg == "--directory":
			if i+1 == len(args) {
				return nil, fmt.Errorf("%w: --directory needs a value", ErrMalformedCommand)
			}
			i++
			dir = args[i]
		case strings.HasPrefix(arg, "--directory="):
			dir = strings.TrimPrefix(arg, "--directory=")
		case arg == "--allow-writes":
			allowWrites = true
		default:
			return nil, fmt.Errorf("%w: unsupported bzr serve argument %q", ErrMalformedCommand, arg)
		}
	}
	if !inet {
		return nil, fmt.Errorf("%w: bzr serve is only served over --inet", ErrMalformedCommand)
	}
	if dir == "" {
		return nil, fmt.Errorf("%w: bzr serve needs --directory pointing at the repository", ErrMissingPath)
	}
	op := Read
	if allowWrites {
		op = Write
	}
	return &Request{VCS: Bazaar, Op: op, Program: "bzr", Path: dir}, nil
}
