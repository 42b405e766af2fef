package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/capsule-dev/capsule/internal/system"
)

// Fixed resource names. The container and image are identified by well-known
// names; concurrent runs against the same names are not supported.
const (
	DefaultImageTag      = "claude-code-ubuntu"
	DefaultContainerName = "claude-code-dev"
	DefaultHostname      = "claude-dev"

	// WorktreeDirName is the fixed relative path of the ephemeral checkout,
	// created next to the repository's working copy.
	WorktreeDirName = "claude_wt"
)

// Config holds user-tunable settings, loaded from an optional TOML file at
// ~/.config/capsule/config.toml. Every field has a working default.
type Config struct {
	ImageTag       string `toml:"image_tag"`
	ContainerName  string `toml:"container_name"`
	Hostname       string `toml:"hostname"`
	PermissionMode string `toml:"permission_mode"`
	KeepWorktree   bool   `toml:"keep_worktree"`
}

// Default returns a Config with all defaults applied.
func Default() *Config {
	return &Config{
		ImageTag:      DefaultImageTag,
		ContainerName: DefaultContainerName,
		Hostname:      DefaultHostname,
	}
}

// Path returns the default config file location under the user config dir.
func Path() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "capsule", "config.toml")
}

// Load reads the config file at path, applying defaults for unset fields.
// A missing file is not an error; the defaults are returned.
func Load(fsys system.FileSystem, path string) (*Config, error) {
	cfg := Default()

	if path == "" || !fsys.Exists(path) {
		return cfg, nil
	}

	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if cfg.ImageTag == "" {
		cfg.ImageTag = DefaultImageTag
	}
	if cfg.ContainerName == "" {
		cfg.ContainerName = DefaultContainerName
	}
	if cfg.Hostname == "" {
		cfg.Hostname = DefaultHostname
	}

	return cfg, nil
}

// Identity describes the invoking host user. It is propagated into the image
// as build args and onto the container as --user so files created inside the
// sandbox are owned correctly on the host.
type Identity struct {
	Name string
	UID  int
	GID  int
}

// CurrentIdentity resolves the invoking user's name, UID and GID.
func CurrentIdentity() (*Identity, error) {
	u, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current user: %w", err)
	}

	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return nil, fmt.Errorf("failed to parse UID %q: %w", u.Uid, err)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GID %q: %w", u.Gid, err)
	}

	name := u.Username
	if env := os.Getenv("USER"); env != "" {
		name = env
	}
	if name == "" {
		name = "user"
	}

	return &Identity{Name: name, UID: uid, GID: gid}, nil
}
