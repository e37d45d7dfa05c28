// Package request parses the client command an SSH connection carries.
//
// sshd places the command the remote user originally asked for into
// SSH_ORIGINAL_COMMAND before running vcs-ssh as a forced command. This
// package turns that single untrusted string into a [Request]: which
// version-control system is being invoked, whether the operation can
// mutate the repository, and which path it targets.
//
// # Grammar
//
// Recognition is table-driven. Each supported backend has exactly one
// invocation shape:
//
//	git-upload-pack '<path>'                      (read)
//	git-upload-archive '<path>'                   (read)
//	git-receive-pack '<path>'                     (write)
//	hg -R <path> serve --stdio                    (read, hook-downgraded)
//	svnserve -t --root <path> [--read-only]       (read, flag-downgraded)
//	bzr serve --inet --directory=<path> [--allow-writes]
//
// Anything else is a parse error. There is no fallback: a command the
// table cannot positively classify is rejected, never best-effort
// forwarded.
package request
