// Package session orchestrates a single sandbox run: checkout acquisition,
// image build, the interactive container session, change reconciliation and
// guaranteed teardown.
package session

import (
	"fmt"

	shellquote "github.com/kballard/go-shellquote"

	"github.com/capsule-dev/capsule/internal/config"
	"github.com/capsule-dev/capsule/internal/workspace"
)

// PermissionMode selects how the sandboxed tool handles permission prompts
// when running a one-shot instruction.
type PermissionMode string

const (
	PermissionDefault     PermissionMode = "default"
	PermissionAcceptEdits PermissionMode = "acceptEdits"
	PermissionPlan        PermissionMode = "plan"
	PermissionBypass      PermissionMode = "bypassPermissions"
)

// PermissionModes lists the selectable modes.
func PermissionModes() []PermissionMode {
	return []PermissionMode{PermissionDefault, PermissionAcceptEdits, PermissionPlan, PermissionBypass}
}

// ParsePermissionMode validates a mode string. The empty string is valid and
// means "unset": the one-shot invocation then skips permission prompts
// entirely.
func ParsePermissionMode(s string) (PermissionMode, error) {
	if s == "" {
		return "", nil
	}
	for _, mode := range PermissionModes() {
		if s == string(mode) {
			return mode, nil
		}
	}
	return "", fmt.Errorf("invalid permission mode %q (valid: default, acceptEdits, plan, bypassPermissions)", s)
}

// Session is the state of one sandbox run. Fields resolve as each phase
// completes; the whole value is discarded at process exit.
type Session struct {
	// ID uniquely identifies this run in logs and commit trailers.
	ID string

	// MountPath is the host directory exposed to the sandboxed process.
	MountPath string

	// Checkout is the acquired worktree, nil when isolation was bypassed.
	Checkout *workspace.Checkout

	// ImageTag and ContainerName identify the fixed external resources.
	ImageTag      string
	ContainerName string
	Hostname      string

	// Instruction is the optional one-shot command text.
	Instruction string

	// PermissionMode applies to one-shot instructions only.
	PermissionMode PermissionMode

	// KeepWorktree disables checkout removal at teardown.
	KeepWorktree bool

	// Identity is the host user mapped into the container.
	Identity *config.Identity
}

// ContainerCommand returns the container's entry command override. With no
// instruction the image default (an interactive shell) is used. With an
// instruction the tool runs non-interactively; the command line is shell
// quoted since it passes through bash -c.
func (s *Session) ContainerCommand() []string {
	if s.Instruction == "" {
		return nil
	}

	parts := []string{"claude"}
	if s.PermissionMode != "" {
		parts = append(parts, "--permission-mode", string(s.PermissionMode))
	} else {
		parts = append(parts, "--dangerously-skip-permissions")
	}
	parts = append(parts, "-p", s.Instruction, "--output-format", "stream-json", "--verbose")

	return []string{"bash", "-c", shellquote.Join(parts...)}
}
