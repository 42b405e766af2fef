package runtime

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/capsule-dev/capsule/internal/config"
	caperrors "github.com/capsule-dev/capsule/internal/errors"
	"github.com/capsule-dev/capsule/internal/logging"
)

// RunOptions configures an interactive container run.
type RunOptions struct {
	// ContainerName is the fixed name of the session container.
	ContainerName string

	// Hostname is set inside the container.
	Hostname string

	// ImageTag is the image to run.
	ImageTag string

	// MountPath is the host directory bound into the container.
	MountPath string

	// Identity maps the host user onto the container process.
	Identity *config.Identity

	// Command overrides the image's default command when non-empty.
	Command []string
}

// WorkDir returns the fixed path the checkout is bound to inside the container.
func (o RunOptions) WorkDir() string {
	return fmt.Sprintf("/home/%s/dev", o.Identity.Name)
}

// ContainerExists reports whether a container with the given name exists,
// running or not.
func (e *Engine) ContainerExists(ctx context.Context, name string) bool {
	_, err := e.exec.Execute(ctx, e.Command, "container", "inspect", name)
	return err == nil
}

// RemoveStaleContainer stops and removes a leftover container with the given
// name. A stale container from a prior crashed run must never block a new
// run. The whole operation is best-effort: when no such container exists it
// is a no-op, and failures are logged, not raised.
func (e *Engine) RemoveStaleContainer(ctx context.Context, name string) {
	if !e.ContainerExists(ctx, name) {
		return
	}

	logging.UserWarning("Stopping existing container...")

	if out, err := e.exec.Execute(ctx, e.Command, "stop", name); err != nil {
		logging.Debug("container stop failed", "name", name, "output", string(out), "error", err)
	}
	if out, err := e.exec.Execute(ctx, e.Command, "rm", name); err != nil {
		logging.Debug("container rm failed", "name", name, "output", string(out), "error", err)
	}
}

// Run starts the interactive session container and blocks until it exits.
//
// The session's own exit status is authoritative and always a terminal,
// non-error outcome: a nonzero exit from the tool or the shell inside the
// container is not a run failure. Only failing to start the container at all
// is returned as an error.
func (e *Engine) Run(ctx context.Context, opts RunOptions) error {
	args := []string{
		"run", "-it",
		"--name", opts.ContainerName,
		"--hostname", opts.Hostname,
		"--user", fmt.Sprintf("%d:%d", opts.Identity.UID, opts.Identity.GID),
		"--volume", fmt.Sprintf("%s:%s:Z", opts.MountPath, opts.WorkDir()),
	}
	if e.rootless() {
		args = append(args, "--userns=keep-id")
	}
	args = append(args, opts.ImageTag)
	args = append(args, opts.Command...)

	logging.Debug("starting container", "name", opts.ContainerName, "engine", e.Command)

	err := e.exec.ExecuteInteractive(ctx, e.Command, args...)
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if caperrors.As(err, &exitErr) {
		logging.Debug("container exited nonzero", "name", opts.ContainerName, "error", err)
		return nil
	}

	return caperrors.ContainerFailed("run", err)
}
