package config

import (
	"errors"
	"testing"

	"github.com/capsule-dev/capsule/internal/system"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	fs := system.NewMockFS()

	cfg, err := Load(fs, "/home/user/.config/capsule/config.toml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ImageTag != DefaultImageTag {
		t.Errorf("ImageTag = %q, want %q", cfg.ImageTag, DefaultImageTag)
	}
	if cfg.ContainerName != DefaultContainerName {
		t.Errorf("ContainerName = %q, want %q", cfg.ContainerName, DefaultContainerName)
	}
	if cfg.KeepWorktree {
		t.Error("KeepWorktree should default to false")
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	fs := system.NewMockFS()

	cfg, err := Load(fs, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Hostname != DefaultHostname {
		t.Errorf("Hostname = %q, want %q", cfg.Hostname, DefaultHostname)
	}
}

func TestLoad_OverridesAndDefaults(t *testing.T) {
	fs := system.NewMockFS()
	fs.AddFile("/cfg/config.toml", []byte(`
image_tag = "my-image"
keep_worktree = true
permission_mode = "plan"
`), 0644)

	cfg, err := Load(fs, "/cfg/config.toml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ImageTag != "my-image" {
		t.Errorf("ImageTag = %q, want %q", cfg.ImageTag, "my-image")
	}
	if !cfg.KeepWorktree {
		t.Error("KeepWorktree should be true")
	}
	if cfg.PermissionMode != "plan" {
		t.Errorf("PermissionMode = %q, want %q", cfg.PermissionMode, "plan")
	}
	// Unset fields keep their defaults
	if cfg.ContainerName != DefaultContainerName {
		t.Errorf("ContainerName = %q, want %q", cfg.ContainerName, DefaultContainerName)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	fs := system.NewMockFS()
	fs.AddFile("/cfg/config.toml", []byte(`image_tag = [broken`), 0644)

	if _, err := Load(fs, "/cfg/config.toml"); err == nil {
		t.Error("Load() should fail on invalid TOML")
	}
}

func TestLoad_ReadError(t *testing.T) {
	fs := system.NewMockFS()
	fs.AddFile("/cfg/config.toml", []byte(``), 0644)
	fs.ReadFileErr = errors.New("permission denied")

	if _, err := Load(fs, "/cfg/config.toml"); err == nil {
		t.Error("Load() should surface read errors")
	}
}
