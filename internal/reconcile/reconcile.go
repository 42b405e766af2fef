// Package reconcile detects changes made inside a checkout and propagates
// them back to the repository.
package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/capsule-dev/capsule/internal/errors"
	"github.com/capsule-dev/capsule/internal/logging"
	"github.com/capsule-dev/capsule/internal/system"
	"github.com/capsule-dev/capsule/internal/workspace"
)

// ChangeSet is the set of differences present in a checkout. It is derived
// at reconciliation time and has no independent lifecycle.
type ChangeSet struct {
	Unstaged  bool
	Staged    bool
	Untracked bool
}

// Empty reports whether the checkout is pristine.
func (c ChangeSet) Empty() bool {
	return !c.Unstaged && !c.Staged && !c.Untracked
}

// Result describes the outcome of a reconciliation.
type Result struct {
	Committed bool
	Pushed    bool
	Branch    string
}

// Reconciler commits and pushes checkout changes upstream.
type Reconciler struct {
	exec system.CommandExecutor
}

// New creates a Reconciler using the given executor.
func New(exec system.CommandExecutor) *Reconciler {
	return &Reconciler{exec: exec}
}

// Detect computes the ChangeSet for the checkout at dir.
//
// The unstaged and staged probes use --quiet, so exit status is the only
// signal. The untracked probe is the one place stdout is a control input:
// any output means untracked files exist.
func (r *Reconciler) Detect(ctx context.Context, dir string) ChangeSet {
	var cs ChangeSet

	if _, err := r.exec.Execute(ctx, "git", "-C", dir, "diff", "--quiet"); err != nil {
		cs.Unstaged = true
	}
	if _, err := r.exec.Execute(ctx, "git", "-C", dir, "diff", "--cached", "--quiet"); err != nil {
		cs.Staged = true
	}

	out, err := r.exec.Output(ctx, "git", "-C", dir, "ls-files", "--others", "--exclude-standard")
	if err == nil && strings.TrimSpace(string(out)) != "" {
		cs.Untracked = true
	}

	return cs
}

// Reconcile inspects the checkout and, if it holds changes, commits them and
// pushes to the default remote, retrying once with an upstream-setting push.
//
// A checkout this run did not create is never touched. Push failure after
// the retry is a warning, not an error: the commit is preserved locally and
// the run still completes successfully. Commit failure is returned, it
// indicates unexpected repository state.
func (r *Reconciler) Reconcile(ctx context.Context, checkout *workspace.Checkout, sessionID string) (*Result, error) {
	result := &Result{}

	if checkout == nil || !checkout.Created {
		return result, nil
	}

	logging.UserInfo("Processing worktree changes...")

	changes := r.Detect(ctx, checkout.Path)
	if changes.Empty() {
		logging.UserInfo("No changes detected in worktree")
		return result, nil
	}

	logging.UserInfo("Changes detected in worktree, committing and pushing...")

	if out, err := r.exec.Execute(ctx, "git", "-C", checkout.Path, "add", "-A"); err != nil {
		return result, errors.ReconcileError("add", commandError(out, err))
	}

	msg := fmt.Sprintf("chore: claude code container changes %s", time.Now().Format("2006-01-02 15:04:05"))
	args := []string{"-C", checkout.Path, "commit", "-m", msg}
	if sessionID != "" {
		args = append(args, "-m", "Session-ID: "+sessionID)
	}
	if out, err := r.exec.Execute(ctx, "git", args...); err != nil {
		return result, errors.ReconcileError("commit", commandError(out, err))
	}
	result.Committed = true

	branchOut, err := r.exec.Output(ctx, "git", "-C", checkout.Path, "branch", "--show-current")
	if err != nil {
		return result, errors.ReconcileError("branch query", err)
	}
	result.Branch = strings.TrimSpace(string(branchOut))

	if _, err := r.exec.Execute(ctx, "git", "-C", checkout.Path, "push", "origin", result.Branch); err == nil {
		result.Pushed = true
		logging.UserSuccess("Changes pushed to origin/%s", result.Branch)
		return result, nil
	}

	// Commonly no upstream tracking is configured yet. Retry exactly once.
	if _, err := r.exec.Execute(ctx, "git", "-C", checkout.Path, "push", "--set-upstream", "origin", result.Branch); err == nil {
		result.Pushed = true
		logging.UserSuccess("New branch created and pushed to origin/%s", result.Branch)
		return result, nil
	}

	logging.UserWarning("Failed to push changes to remote")
	return result, nil
}

// commandError surfaces the collaborator's own diagnostic text.
func commandError(out []byte, err error) error {
	text := strings.TrimSpace(string(out))
	if text == "" {
		return err
	}
	return fmt.Errorf("%s: %w", text, err)
}
