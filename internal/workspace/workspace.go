// Package workspace manages the ephemeral git worktree the sandbox mounts.
package workspace

import (
	"context"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/capsule-dev/capsule/internal/config"
	"github.com/capsule-dev/capsule/internal/errors"
	"github.com/capsule-dev/capsule/internal/logging"
	"github.com/capsule-dev/capsule/internal/system"
)

// Checkout represents an isolated working tree of the source repository.
type Checkout struct {
	// Path is the filesystem location of the checkout.
	Path string

	// SourceRef is the branch or commit the checkout was seeded from.
	SourceRef string

	// Created reports whether this run created the checkout. A reused,
	// caller-supplied checkout is never reconciled or removed on this
	// run's authority.
	Created bool
}

// AcquireOptions configures checkout acquisition.
type AcquireOptions struct {
	// RepoDir is the primary working copy, usually the current directory.
	RepoDir string

	// SourceRef seeds the new worktree. Empty means current HEAD.
	SourceRef string

	// ExistingPath, when set and present, is used as the checkout directly.
	ExistingPath string
}

// Manager creates and removes worktree checkouts.
type Manager struct {
	exec system.CommandExecutor
	fs   system.FileSystem
}

// NewManager creates a Manager using the given executor and filesystem.
func NewManager(exec system.CommandExecutor, fs system.FileSystem) *Manager {
	return &Manager{exec: exec, fs: fs}
}

// IsRepo reports whether dir is inside a git repository.
func (m *Manager) IsRepo(ctx context.Context, dir string) bool {
	_, err := m.exec.Execute(ctx, "git", "-C", dir, "rev-parse", "--git-dir")
	return err == nil
}

// Acquire returns a checkout per the options. When ExistingPath is supplied
// and present it is reused as-is (Created=false). Otherwise a new worktree is
// created at the fixed relative path; if creation fails the primary working
// copy is used directly, with a warning, and no cleanup obligation.
//
// Running outside a git repository is a hard failure.
func (m *Manager) Acquire(ctx context.Context, opts AcquireOptions) (*Checkout, error) {
	if opts.ExistingPath != "" && m.fs.Exists(opts.ExistingPath) {
		logging.UserInfo("Using existing worktree at: %s", opts.ExistingPath)
		return &Checkout{Path: opts.ExistingPath, SourceRef: opts.SourceRef, Created: false}, nil
	}

	if !m.IsRepo(ctx, opts.RepoDir) {
		return nil, errors.NotARepo(opts.RepoDir)
	}

	ref := opts.SourceRef
	if ref == "" {
		ref = "HEAD"
	}

	path, err := securejoin.SecureJoin(opts.RepoDir, config.WorktreeDirName)
	if err != nil {
		return nil, errors.WorkspaceError("path", err)
	}

	logging.UserInfo("Creating git worktree '%s' from '%s'...", config.WorktreeDirName, ref)

	var args []string
	if m.branchExists(ctx, opts.RepoDir, config.WorktreeDirName) {
		args = []string{"-C", opts.RepoDir, "worktree", "add", path, config.WorktreeDirName}
	} else {
		args = []string{"-C", opts.RepoDir, "worktree", "add", "-b", config.WorktreeDirName, path, ref}
	}

	if out, err := m.exec.Execute(ctx, "git", args...); err != nil {
		logging.Debug("worktree creation failed", "output", strings.TrimSpace(string(out)), "error", err)
		logging.UserWarning("Failed to create worktree. Using current directory instead.")
		return &Checkout{Path: opts.RepoDir, SourceRef: ref, Created: false}, nil
	}

	logging.UserInfo("Worktree created at: %s", path)
	return &Checkout{Path: path, SourceRef: ref, Created: true}, nil
}

// Remove deletes a checkout created by this run. It verifies the path is a
// registered worktree first, so a vanished checkout is a no-op.
func (m *Manager) Remove(ctx context.Context, repoDir string, checkout *Checkout) error {
	if checkout == nil || !checkout.Created {
		return nil
	}

	if !m.worktreeRegistered(ctx, repoDir, checkout.Path) {
		logging.Debug("worktree not registered, skipping removal", "path", checkout.Path)
		return nil
	}

	logging.UserInfo("Cleaning up worktree...")

	if out, err := m.exec.Execute(ctx, "git", "-C", repoDir, "worktree", "remove", checkout.Path, "--force"); err != nil {
		return errors.WorkspaceError("remove", wrapOutput(out, err))
	}

	// The branch keeps the worktree name; deleting it lets the next run
	// create a fresh worktree under the same name. Failure is not fatal,
	// it may have been merged or deleted manually.
	if _, err := m.exec.Execute(ctx, "git", "-C", repoDir, "branch", "-D", config.WorktreeDirName); err != nil {
		logging.Debug("branch deletion failed", "branch", config.WorktreeDirName, "error", err)
	}

	return nil
}

func (m *Manager) branchExists(ctx context.Context, repoDir, branch string) bool {
	_, err := m.exec.Execute(ctx, "git", "-C", repoDir, "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil
}

// worktreeRegistered checks the worktree list for the given path.
func (m *Manager) worktreeRegistered(ctx context.Context, repoDir, path string) bool {
	out, err := m.exec.Output(ctx, "git", "-C", repoDir, "worktree", "list", "--porcelain")
	if err != nil {
		return false
	}

	abs, _ := filepath.Abs(path)
	for _, line := range strings.Split(string(out), "\n") {
		if entry, ok := strings.CutPrefix(line, "worktree "); ok {
			if entry == path || entry == abs {
				return true
			}
		}
	}
	return false
}

func wrapOutput(out []byte, err error) error {
	text := strings.TrimSpace(string(out))
	if text == "" {
		return err
	}
	return &outputError{text: text, cause: err}
}

// outputError carries a collaborator's diagnostic text alongside its error.
type outputError struct {
	text  string
	cause error
}

func (e *outputError) Error() string { return e.text + ": " + e.cause.Error() }
func (e *outputError) Unwrap() error { return e.cause }
