package dispatch

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/raphi011/vcs-ssh/internal/authorize"
)

// Deny writes the client-facing diagnostic for a refused request.
// Messages carry the "remote: " prefix VCS clients use when relaying
// server output, and only the canonical repository path is echoed,
// never the raw command string.
func Deny(w io.Writer, dec authorize.Decision) {
	switch dec.Reason {
	case authorize.UnknownRepository:
		fmt.Fprintf(w, "remote: Illegal repository %q\n", dec.Repo)
	case authorize.WriteOnReadOnly:
		fmt.Fprintf(w, "remote: %s: you cannot push anything into it!\n", readOnlyBanner(w))
	}
}

// readOnlyBanner renders the push-rejection notice. The renderer is
// pinned to the ANSI profile because stderr here is a pipe to sshd, yet
// the escape codes must survive the trip to the remote user's terminal.
func readOnlyBanner(w io.Writer) string {
	r := lipgloss.NewRenderer(w, termenv.WithProfile(termenv.ANSI))
	style := r.NewStyle().Bold(true).Background(lipgloss.Color("1")).Foreground(lipgloss.Color("15"))
	return style.Render("You only have read only access to this repository")
}
