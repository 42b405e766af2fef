// Package runtime drives the container engine (podman or docker) through its
// command-line interface. Exit status is the sole success signal; output is
// surfaced for diagnostics only.
package runtime

import (
	"fmt"
	"os/exec"

	"github.com/capsule-dev/capsule/internal/system"
)

// ImageRef identifies the execution image.
type ImageRef struct {
	Tag string

	// BuiltThisRun reports whether EnsureImage performed a build.
	BuiltThisRun bool
}

// Engine wraps a container engine CLI.
type Engine struct {
	// Command is the container command to use (podman or docker).
	Command string

	exec system.CommandExecutor
	fs   system.FileSystem
}

// NewEngine creates an Engine for a specific command. Used directly in tests;
// production code goes through Detect.
func NewEngine(command string, exec system.CommandExecutor, fs system.FileSystem) *Engine {
	return &Engine{Command: command, exec: exec, fs: fs}
}

// Detect returns an Engine for the first available container command.
// Podman is preferred for rootless operation.
func Detect(execr system.CommandExecutor, fs system.FileSystem) (*Engine, error) {
	if _, err := exec.LookPath("podman"); err == nil {
		return NewEngine("podman", execr, fs), nil
	}
	if _, err := exec.LookPath("docker"); err == nil {
		return NewEngine("docker", execr, fs), nil
	}
	return nil, fmt.Errorf("neither podman nor docker found in PATH")
}

// rootless reports whether the engine supports user-namespace ID mapping.
func (e *Engine) rootless() bool {
	return e.Command == "podman"
}
