package session

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/capsule-dev/capsule/internal/assets"
	"github.com/capsule-dev/capsule/internal/config"
	"github.com/capsule-dev/capsule/internal/logging"
	"github.com/capsule-dev/capsule/internal/reconcile"
	"github.com/capsule-dev/capsule/internal/runtime"
	"github.com/capsule-dev/capsule/internal/system"
	"github.com/capsule-dev/capsule/internal/workspace"
)

// Options configures a run. It mirrors the CLI surface.
type Options struct {
	// RepoDir is the primary working copy, usually the current directory.
	RepoDir string

	// Instruction runs the tool non-interactively when set.
	Instruction string

	// PermissionMode applies to the instruction.
	PermissionMode PermissionMode

	// NoCache forces an image rebuild.
	NoCache bool

	// SourceRef seeds the worktree (default: current HEAD).
	SourceRef string

	// KeepWorktree retains the checkout after the session.
	KeepWorktree bool

	// NoWorktree mounts RepoDir directly, skipping isolation.
	NoWorktree bool

	// ExistingWorktreePath reuses a caller-supplied checkout.
	ExistingWorktreePath string
}

// Orchestrator sequences the phases of a run and owns cleanup ordering.
type Orchestrator struct {
	cfg        *config.Config
	identity   *config.Identity
	engine     *runtime.Engine
	checkouts  *workspace.Manager
	reconciler *reconcile.Reconciler
	stager     *config.Stager
	fs         system.FileSystem
}

// NewOrchestrator wires an Orchestrator from its collaborators.
func NewOrchestrator(
	cfg *config.Config,
	identity *config.Identity,
	engine *runtime.Engine,
	checkouts *workspace.Manager,
	reconciler *reconcile.Reconciler,
	stager *config.Stager,
	fs system.FileSystem,
) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		identity:   identity,
		engine:     engine,
		checkouts:  checkouts,
		reconciler: reconciler,
		stager:     stager,
		fs:         fs,
	}
}

// Run executes one full session. Every acquired resource registers its
// release on the teardown registry before the next phase starts, and the
// registry drains on every exit path. Hard failures return an error; soft
// failures are reported and the run completes normally.
func (o *Orchestrator) Run(ctx context.Context, opts Options) error {
	td := NewTeardown()
	defer td.Drain()

	sess := &Session{
		ID:             uuid.NewString(),
		ImageTag:       o.cfg.ImageTag,
		ContainerName:  o.cfg.ContainerName,
		Hostname:       o.cfg.Hostname,
		Instruction:    opts.Instruction,
		PermissionMode: opts.PermissionMode,
		KeepWorktree:   opts.KeepWorktree,
		Identity:       o.identity,
	}

	logging.Debug("session starting", "id", sess.ID, "image", sess.ImageTag, "container", sess.ContainerName)

	if err := o.acquireCheckout(ctx, sess, opts, td); err != nil {
		return err
	}

	if err := o.ensureImage(ctx, sess, opts, td); err != nil {
		return err
	}

	o.runSession(ctx, sess)

	// The reconciler itself refuses checkouts this run did not create;
	// its failures never change the run's outcome.
	if _, err := o.reconciler.Reconcile(ctx, sess.Checkout, sess.ID); err != nil {
		logging.UserWarning("Failed to reconcile worktree changes: %v", err)
	}

	return nil
}

// acquireCheckout resolves the mount path and registers checkout removal.
func (o *Orchestrator) acquireCheckout(ctx context.Context, sess *Session, opts Options, td *Teardown) error {
	if opts.NoWorktree {
		logging.UserInfo("Using current directory (no worktree)")
		sess.MountPath = opts.RepoDir
		return nil
	}

	checkout, err := o.checkouts.Acquire(ctx, workspace.AcquireOptions{
		RepoDir:      opts.RepoDir,
		SourceRef:    opts.SourceRef,
		ExistingPath: opts.ExistingWorktreePath,
	})
	if err != nil {
		return err
	}

	sess.Checkout = checkout
	sess.MountPath = checkout.Path

	if checkout.Created && !sess.KeepWorktree {
		td.Register("remove worktree", func() error {
			return o.checkouts.Remove(ctx, opts.RepoDir, checkout)
		})
	}

	return nil
}

// ensureImage stages the build context, runs the conditional build, and
// removes the configuration blobs immediately after.
func (o *Orchestrator) ensureImage(ctx context.Context, sess *Session, opts Options, td *Teardown) error {
	buildCtx := filepath.Join(os.TempDir(), "capsule-build-"+sess.ID)
	if err := o.fs.MkdirAll(buildCtx, 0700); err != nil {
		return err
	}
	td.Register("remove build context", func() error {
		return o.fs.RemoveAll(buildCtx)
	})

	recipePath := filepath.Join(buildCtx, assets.DockerfileName)
	if err := o.fs.WriteFile(recipePath, assets.Dockerfile(), 0644); err != nil {
		return err
	}

	logging.UserInfo("Preparing Claude configuration files...")
	staged, err := o.stager.Stage(buildCtx, o.identity.Name)
	if err != nil {
		return err
	}

	// The blobs hold credentials; they leave the disk as soon as the build
	// has consumed them, not just at teardown.
	removeStaged := func() {
		for _, path := range staged {
			if err := o.fs.Remove(path); err != nil && !os.IsNotExist(err) {
				logging.Warn("failed to remove staged file", "path", path, "error", err)
			}
		}
	}
	td.Register("remove staged configuration", func() error {
		removeStaged()
		return nil
	})

	ref, err := o.engine.EnsureImage(ctx, runtime.BuildOptions{
		Tag:            sess.ImageTag,
		ContextDir:     buildCtx,
		DockerfilePath: recipePath,
		Identity:       o.identity,
		NoCache:        opts.NoCache,
	})
	if err != nil {
		return err
	}

	logging.UserInfo("Cleaning up temporary files...")
	removeStaged()

	logging.Debug("image ready", "tag", ref.Tag, "built", ref.BuiltThisRun)
	return nil
}

// runSession supervises the interactive container. The session's own exit is
// always a terminal, non-error outcome.
func (o *Orchestrator) runSession(ctx context.Context, sess *Session) {
	o.engine.RemoveStaleContainer(ctx, sess.ContainerName)

	logging.UserInfo("Starting Claude Code container...")
	logging.UserInfo("Container name: %s", sess.ContainerName)
	logging.UserInfo("Host directory mounted: %s", sess.MountPath)
	if sess.Instruction == "" {
		logging.UserInfo("Type 'claude' to start Claude Code")
		logging.UserInfo("Type 'exit' to stop the container")
	}

	err := o.engine.Run(ctx, runtime.RunOptions{
		ContainerName: sess.ContainerName,
		Hostname:      sess.Hostname,
		ImageTag:      sess.ImageTag,
		MountPath:     sess.MountPath,
		Identity:      sess.Identity,
		Command:       sess.ContainerCommand(),
	})
	if err != nil {
		// Start failures surface as warnings; the run still proceeds to
		// reconciliation and teardown with whatever state exists.
		logging.UserWarning("Container session failed: %v", err)
		return
	}

	logging.UserSuccess("Container stopped")
}
