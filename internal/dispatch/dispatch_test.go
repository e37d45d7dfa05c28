package dispatch

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/raphi011/vcs-ssh/internal/authorize"
	"github.com/raphi011/vcs-ssh/internal/policy"
	"github.com/raphi011/vcs-ssh/internal/request"
)

func granted(repo string, mode policy.Mode) authorize.Decision {
	return authorize.Decision{
		Allowed: true,
		Repo:    repo,
		Entry:   &policy.Entry{Path: repo, Mode: mode},
		Reason:  authorize.Granted,
	}
}

func TestCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		dec      authorize.Decision
		req      *request.Request
		wantName string
		wantArgv []string
	}{
		{
			name:     "git fetch",
			dec:      granted("/srv/repos/a", policy.ReadWrite),
			req:      &request.Request{VCS: request.Git, Op: request.Read, Program: "git-upload-pack", Path: "ignored"},
			wantName: "git-upload-pack",
			wantArgv: []string{"git-upload-pack", "/srv/repos/a"},
		},
		{
			name:     "git push",
			dec:      granted("/srv/repos/a", policy.ReadWrite),
			req:      &request.Request{VCS: request.Git, Op: request.Write, Program: "git-receive-pack", Path: "ignored"},
			wantName: "git-receive-pack",
			wantArgv: []string{"git-receive-pack", "/srv/repos/a"},
		},
		{
			name:     "hg serve on read-write repo",
			dec:      granted("/srv/hg/a", policy.ReadWrite),
			req:      &request.Request{VCS: request.Mercurial, Op: request.Read, Program: "hg"},
			wantName: "hg",
			wantArgv: []string{"hg", "-R", "/srv/hg/a", "serve", "--stdio"},
		},
		{
			name:     "hg serve on read-only repo gets reject hooks",
			dec:      granted("/srv/hg/a", policy.ReadOnly),
			req:      &request.Request{VCS: request.Mercurial, Op: request.Read, Program: "hg"},
			wantName: "hg",
			wantArgv: []string{
				"hg", "-R", "/srv/hg/a", "serve", "--stdio",
				"--config", "hooks.prechangegroup.vcs-ssh=false",
				"--config", "hooks.prepushkey.vcs-ssh=false",
			},
		},
		{
			name:     "svnserve on read-write repo",
			dec:      granted("/srv/svn/a", policy.ReadWrite),
			req:      &request.Request{VCS: request.Subversion, Op: request.Read, Program: "svnserve"},
			wantName: "svnserve",
			wantArgv: []string{"svnserve", "-t", "--root", "/srv/svn/a"},
		},
		{
			name:     "svnserve on read-only repo gets --read-only",
			dec:      granted("/srv/svn/a", policy.ReadOnly),
			req:      &request.Request{VCS: request.Subversion, Op: request.Read, Program: "svnserve"},
			wantName: "svnserve",
			wantArgv: []string{"svnserve", "-t", "--root", "/srv/svn/a", "--read-only"},
		},
		{
			name:     "svnserve honors client-requested read-only",
			dec:      granted("/srv/svn/a", policy.ReadWrite),
			req:      &request.Request{VCS: request.Subversion, Op: request.Read, Program: "svnserve", ExtraArgs: []string{"--read-only"}},
			wantName: "svnserve",
			wantArgv: []string{"svnserve", "-t", "--root", "/srv/svn/a", "--read-only"},
		},
		{
			name:     "bzr read serve",
			dec:      granted("/srv/bzr/a", policy.ReadOnly),
			req:      &request.Request{VCS: request.Bazaar, Op: request.Read, Program: "bzr"},
			wantName: "bzr",
			wantArgv: []string{"bzr", "serve", "--inet", "--directory=/srv/bzr/a"},
		},
		{
			name:     "bzr write serve",
			dec:      granted("/srv/bzr/a", policy.ReadWrite),
			req:      &request.Request{VCS: request.Bazaar, Op: request.Write, Program: "bzr"},
			wantName: "bzr",
			wantArgv: []string{"bzr", "serve", "--inet", "--directory=/srv/bzr/a", "--allow-writes"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			name, argv := Command(tt.dec, tt.req)
			if name != tt.wantName {
				t.Errorf("name = %q, want %q", name, tt.wantName)
			}
			if !reflect.DeepEqual(argv, tt.wantArgv) {
				t.Errorf("argv = %q, want %q", argv, tt.wantArgv)
			}
		})
	}
}

func TestExec_MissingBackend(t *testing.T) {
	t.Parallel()

	err := Exec(context.Background(), "definitely-not-a-vcs-backend", []string{"definitely-not-a-vcs-backend", "/srv/repos/a"}, nil)
	if !errors.Is(err, ErrBackendNotFound) {
		t.Errorf("Exec = %v, want ErrBackendNotFound", err)
	}
}

func TestExec_OverrideMissing(t *testing.T) {
	t.Parallel()

	overrides := map[string]string{"hg": "/opt/nonexistent/hg"}
	err := Exec(context.Background(), "hg", []string{"hg", "-R", "/srv/hg/a", "serve", "--stdio"}, overrides)
	if !errors.Is(err, ErrBackendNotFound) {
		t.Errorf("Exec = %v, want ErrBackendNotFound", err)
	}
	if !strings.Contains(err.Error(), "/opt/nonexistent/hg") {
		t.Errorf("Exec error %q should name the configured override path", err)
	}
}

func TestDeny(t *testing.T) {
	t.Parallel()

	t.Run("unknown repository names the canonical path", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		Deny(&buf, authorize.Decision{Repo: "/srv/repos/c", Reason: authorize.UnknownRepository})
		got := buf.String()
		if !strings.HasPrefix(got, "remote: ") {
			t.Errorf("Deny output %q missing remote: prefix", got)
		}
		if !strings.Contains(got, `"/srv/repos/c"`) {
			t.Errorf("Deny output %q should quote the canonical path", got)
		}
	})

	t.Run("read-only rejection carries the banner", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		Deny(&buf, authorize.Decision{Repo: "/srv/repos/b", Reason: authorize.WriteOnReadOnly})
		got := buf.String()
		if !strings.Contains(got, "read only access") {
			t.Errorf("Deny output %q missing read-only notice", got)
		}
		if !strings.Contains(got, "cannot push") {
			t.Errorf("Deny output %q missing push rejection", got)
		}
	})

	t.Run("granted writes nothing", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		Deny(&buf, authorize.Decision{Allowed: true, Repo: "/srv/repos/a", Reason: authorize.Granted})
		if buf.Len() != 0 {
			t.Errorf("Deny wrote %q for a granted decision", buf.String())
		}
	})
}
