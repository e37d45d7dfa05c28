// Package config handles loading of the optional vcs-ssh configuration.
//
// Configuration is read from ~/.config/vcs-ssh/config.toml, or from the
// file named by --config. It declares the same repository grants as the
// command-line flags plus per-backend executable overrides:
//
//	read-write = ["/srv/repos/project"]
//	read-only  = ["/srv/repos/archive"]
//
//	[backends]
//	hg = "/opt/mercurial/bin/hg"
//
// Keeping the grants in a file keeps authorized_keys lines short when
// one key shares many repositories.
package config
