package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/raphi011/vcs-ssh/internal/policy"
)

// Config holds the vcs-ssh configuration.
type Config struct {
	// ReadOnly and ReadWrite list repository directories by access
	// level, the same grants the --read-only and --read-write flags
	// make. Flag entries are appended after file entries, so flags win
	// when the same directory appears in both.
	ReadOnly  []string `toml:"read-only"`
	ReadWrite []string `toml:"read-write"`

	// Backends maps a backend name (git-upload-pack, hg, svnserve,
	// bzr, ...) to an executable path, bypassing the PATH search.
	Backends map[string]string `toml:"backends"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{}
}

// Dirs returns the file's directory grants as ordered policy
// declarations: read-write first, read-only last, so a directory listed
// in both ends up read-only.
func (c *Config) Dirs() []policy.Dir {
	dirs := make([]policy.Dir, 0, len(c.ReadWrite)+len(c.ReadOnly))
	for _, d := range c.ReadWrite {
		dirs = append(dirs, policy.Dir{Path: d, Mode: policy.ReadWrite})
	}
	for _, d := range c.ReadOnly {
		dirs = append(dirs, policy.Dir{Path: d, Mode: policy.ReadOnly})
	}
	return dirs
}

// configPath returns the default config file location.
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "vcs-ssh", "config.toml"), nil
}

// Load reads the configuration file at path. An empty path means the
// default location, where a missing file is fine; an explicitly given
// file must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := configPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}
