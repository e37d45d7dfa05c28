package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/raphi011/vcs-ssh/internal/authorize"
	"github.com/raphi011/vcs-ssh/internal/config"
	"github.com/raphi011/vcs-ssh/internal/dispatch"
	"github.com/raphi011/vcs-ssh/internal/log"
	"github.com/raphi011/vcs-ssh/internal/policy"
	"github.com/raphi011/vcs-ssh/internal/request"
)

// Exit codes, sysexits-style. They are part of the interface: sshd logs
// them and operators grep for them, so they must stay stable.
const (
	exitUsage       = 64 // own CLI misuse, not run as forced command
	exitParse       = 65 // unrecognized or malformed client command
	exitUnknownRepo = 66 // repository not in the policy
	exitBackend     = 69 // backend executable missing
	exitReadOnly    = 77 // write attempted on read-only repository
)

var (
	// Global flags
	roDirs     []string
	rwDirs     []string
	configFile string
	verbose    bool
)

// execBackend is swapped in tests, where replacing the test process
// with a VCS backend would be unhelpful.
var execBackend = dispatch.Exec

// exitError carries the process exit code for a terminal condition.
// The message, if any, is operator-facing.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	if e.msg == "" {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.msg
}

// rootCmd is the whole CLI; vcs-ssh has no subcommands. The directories
// come from the flags of the forced-command line in authorized_keys.
var rootCmd = &cobra.Command{
	Use:   "vcs-ssh [flags] [DIR ...]",
	Short: "SSH forced command guarding git, hg, svn and bzr repositories",
	Long: `vcs-ssh shares version-control repositories of different kinds on a
single user account over ssh.

Use it in ~/.ssh/authorized_keys with the "command" option, see sshd(8):

  command="vcs-ssh ~/repo1 --read-only ~/repo2" ssh-ed25519 ...

(probably together with no-port-forwarding,no-X11-forwarding,
no-agent-forwarding). The client's requested command arrives in
SSH_ORIGINAL_COMMAND; vcs-ssh checks the targeted repository against
the granted directories and hands the connection to the matching
backend, or refuses it.

Positional directories are granted read-write access and must come
before any --read-only/--read-write flag; --read-only and --read-write
take one directory each and may be repeated or comma-separated.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateGrantOrder(os.Args[1:]); err != nil {
			return &exitError{code: exitUsage, msg: err.Error()}
		}
		ctx := log.WithLogger(cmd.Context(), log.New(cmd.ErrOrStderr(), verbose))
		return run(ctx, cmd.ErrOrStderr(), args)
	},
}

// validateGrantOrder rejects positional directories that appear after
// a grant flag. The original tool's flags swallowed every following
// argument (--read-only /a /b granted both read-only); here /b would
// fall through to the positional read-write grant, silently upgrading
// an operator's migrated authorized_keys line. Failing loudly forces
// the unambiguous spellings: repeat the flag, or comma-separate.
func validateGrantOrder(argv []string) error {
	grantSeen := false
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case strings.HasPrefix(arg, "--") && len(arg) > 2:
			name, _, hasValue := strings.Cut(arg, "=")
			if name == "--read-only" || name == "--read-write" {
				grantSeen = true
			}
			if !hasValue && (name == "--read-only" || name == "--read-write" || name == "--config") {
				i++ // skip the flag's value
			}
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			// short boolean flags only
		default:
			if grantSeen {
				return fmt.Errorf("directory %q after --read-only/--read-write would be granted read-write access; list read-write directories first, or repeat the flag", arg)
			}
		}
	}
	return nil
}

// Execute runs the root command and maps terminal conditions to their
// exit codes.
func Execute() {
	rootCmd.SetContext(context.Background())

	if err := rootCmd.Execute(); err != nil {
		var xe *exitError
		if errors.As(err, &xe) {
			if xe.msg != "" {
				fmt.Fprintf(os.Stderr, "vcs-ssh: %s\n", xe.msg)
			}
			os.Exit(xe.code)
		}
		fmt.Fprintf(os.Stderr, "vcs-ssh: %v\n", err)
		os.Exit(exitUsage)
	}
}

// run is the per-connection pipeline: build the policy, parse the
// client command, authorize it, then either exec the backend (never
// returns) or fail with a terminal exit code.
func run(ctx context.Context, errOut io.Writer, rwArgs []string) error {
	l := log.FromContext(ctx)

	cfg, err := config.Load(configFile)
	if err != nil {
		return &exitError{code: exitUsage, msg: err.Error()}
	}

	// Declaration order decides duplicates: config file first, then
	// flags, read-only last so it wins when a directory is listed twice.
	dirs := cfg.Dirs()
	for _, d := range rwArgs {
		dirs = append(dirs, policy.Dir{Path: d, Mode: policy.ReadWrite})
	}
	for _, d := range rwDirs {
		dirs = append(dirs, policy.Dir{Path: d, Mode: policy.ReadWrite})
	}
	for _, d := range roDirs {
		dirs = append(dirs, policy.Dir{Path: d, Mode: policy.ReadOnly})
	}
	pol := policy.Build(dirs)

	raw, ok := os.LookupEnv("SSH_ORIGINAL_COMMAND")
	if !ok {
		msg := "SSH_ORIGINAL_COMMAND is not set"
		if isatty.IsTerminal(os.Stdin.Fd()) {
			msg += "; vcs-ssh is meant to run as an SSH forced command, not interactively"
		}
		return &exitError{code: exitUsage, msg: msg}
	}

	l.Debug("authorizing client command", "command", fmt.Sprintf("%q", raw), "repositories", pol.Len())

	req, err := request.Parse(raw)
	if err != nil {
		fmt.Fprintf(errOut, "remote: Illegal command %q: %v\n", raw, err)
		return &exitError{code: exitParse}
	}

	dec := authorize.Authorize(req, pol)
	l.Debug("decision", "vcs", req.VCS, "op", req.Op, "repo", dec.Repo, "reason", dec.Reason)

	if !dec.Allowed {
		dispatch.Deny(errOut, dec)
		code := exitUnknownRepo
		if dec.Reason == authorize.WriteOnReadOnly {
			code = exitReadOnly
		}
		return &exitError{code: code}
	}

	name, argv := dispatch.Command(dec, req)
	if err := execBackend(ctx, name, argv, cfg.Backends); err != nil {
		// Client sees a generic notice; the detail naming the missing
		// binary is for the operator's log, not the remote user.
		fmt.Fprintln(errOut, "remote: The command required to fulfill your request is not available on this server.")
		l.Debug("dispatch failed", "backend", name, "error", err)
		return &exitError{code: exitBackend}
	}
	return nil // unreachable: exec replaced the process
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&roDirs, "read-only", nil, "repository directories granted read-only access (repeat or comma-separate)")
	rootCmd.PersistentFlags().StringSliceVar(&rwDirs, "read-write", nil, "repository directories granted read-write access (repeat or comma-separate)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ~/.config/vcs-ssh/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "log parsing and authorization decisions to stderr")

	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.Flags().BoolP("version", "v", false, "version for vcs-ssh")
}
