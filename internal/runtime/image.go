package runtime

import (
	"context"
	"fmt"

	"github.com/capsule-dev/capsule/internal/config"
	"github.com/capsule-dev/capsule/internal/errors"
	"github.com/capsule-dev/capsule/internal/logging"
)

// BuildOptions configures an image build.
type BuildOptions struct {
	// Tag is the image tag to build.
	Tag string

	// ContextDir is the build context holding the staged configuration blobs.
	ContextDir string

	// DockerfilePath is the recipe location on disk.
	DockerfilePath string

	// Identity supplies USER_ID/GROUP_ID/USER_NAME build args.
	Identity *config.Identity

	// NoCache forces a rebuild from scratch.
	NoCache bool
}

// ImageExists reports whether an image with the given tag is present.
func (e *Engine) ImageExists(ctx context.Context, tag string) bool {
	_, err := e.exec.Execute(ctx, e.Command, "image", "inspect", tag)
	return err == nil
}

// EnsureImage makes sure the execution image exists and is not stale.
//
// The rebuild policy is deliberately conservative: rebuild when forced, when
// no image with the tag exists, or whenever the recipe file is present on
// disk. No build identity is tracked beyond existence, so a present recipe
// is treated as potentially changed. False-positive rebuilds are acceptable;
// silently serving a stale image is not.
func (e *Engine) EnsureImage(ctx context.Context, opts BuildOptions) (ImageRef, error) {
	ref := ImageRef{Tag: opts.Tag}

	if !e.shouldBuild(ctx, opts) {
		logging.Debug("image up to date", "tag", opts.Tag)
		return ref, nil
	}

	logging.UserInfo("Building Claude Code Ubuntu image...")

	args := []string{
		"build",
		"-f", opts.DockerfilePath,
		"--build-arg", fmt.Sprintf("USER_ID=%d", opts.Identity.UID),
		"--build-arg", fmt.Sprintf("GROUP_ID=%d", opts.Identity.GID),
		"--build-arg", fmt.Sprintf("USER_NAME=%s", opts.Identity.Name),
		"-t", opts.Tag,
	}
	if opts.NoCache {
		args = append(args, "--no-cache")
	}
	args = append(args, opts.ContextDir)

	// Build output streams to the terminal so progress is visible.
	if err := e.exec.ExecuteInteractive(ctx, e.Command, args...); err != nil {
		return ref, errors.BuildFailed(opts.Tag, err)
	}

	ref.BuiltThisRun = true
	return ref, nil
}

func (e *Engine) shouldBuild(ctx context.Context, opts BuildOptions) bool {
	if opts.NoCache {
		return true
	}
	if !e.ImageExists(ctx, opts.Tag) {
		return true
	}
	return e.fs.Exists(opts.DockerfilePath)
}
