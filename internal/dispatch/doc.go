// Package dispatch hands an authorized connection to its backend.
//
// On allow, the process image is replaced with the backend binary
// (git-upload-pack, hg, svnserve, bzr) via exec so the remote client
// keeps talking over the same file descriptors with no intermediary.
// On deny, a "remote: "-prefixed diagnostic is written to the error
// stream and the caller exits with the reason's code.
//
// # Read-only downgrades
//
// Mercurial's and Subversion's serve commands open one tunnel for both
// pulls and pushes, so read-only policy cannot be enforced by refusing
// the command. Instead the backend itself is told to refuse writes:
// hg gets failing prechangegroup/prepushkey hooks, svnserve gets
// --read-only. Git and Bazaar declare the write intent in the command
// line, so their writes are refused before dispatch.
package dispatch
