package runtime

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/capsule-dev/capsule/internal/config"
	"github.com/capsule-dev/capsule/internal/system"
)

func testIdentity() *config.Identity {
	return &config.Identity{Name: "alice", UID: 1000, GID: 1000}
}

func newEngine() (*Engine, *system.MockExecutor, *system.MockFS) {
	mockExec := system.NewMockExecutor()
	fs := system.NewMockFS()
	return NewEngine("podman", mockExec, fs), mockExec, fs
}

func buildOpts() BuildOptions {
	return BuildOptions{
		Tag:            "claude-code-ubuntu",
		ContextDir:     "/tmp/ctx",
		DockerfilePath: "/tmp/ctx/claude-code-ubuntu.dockerfile",
		Identity:       testIdentity(),
	}
}

func TestEnsureImage_BuildsWhenImageAbsent(t *testing.T) {
	e, mockExec, _ := newEngine()
	mockExec.AddResponse("podman image inspect", nil, errors.New("no such image"))

	ref, err := e.EnsureImage(context.Background(), buildOpts())
	if err != nil {
		t.Fatalf("EnsureImage() error = %v", err)
	}
	if !ref.BuiltThisRun {
		t.Error("expected a build when the image is absent")
	}

	last, _ := mockExec.LastCommand()
	line := last.Line()
	for _, want := range []string{
		"podman build",
		"USER_ID=1000",
		"GROUP_ID=1000",
		"USER_NAME=alice",
		"-t claude-code-ubuntu",
		"/tmp/ctx",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("build command missing %q: %s", want, line)
		}
	}
}

func TestEnsureImage_ForcedRebuild(t *testing.T) {
	e, mockExec, fs := newEngine()
	// Image exists, recipe absent: nothing would trigger a build without the flag.
	_ = fs

	opts := buildOpts()
	opts.NoCache = true

	ref, err := e.EnsureImage(context.Background(), opts)
	if err != nil {
		t.Fatalf("EnsureImage() error = %v", err)
	}
	if !ref.BuiltThisRun {
		t.Error("forced rebuild must build even when the image exists")
	}

	last, _ := mockExec.LastCommand()
	if !strings.Contains(last.Line(), "--no-cache") {
		t.Errorf("forced build missing --no-cache: %s", last.Line())
	}
}

func TestEnsureImage_RecipePresentTriggersRebuild(t *testing.T) {
	e, _, fs := newEngine()
	// Image exists (default mock response is success) and the recipe is on
	// disk: the conservative policy rebuilds.
	fs.AddFile("/tmp/ctx/claude-code-ubuntu.dockerfile", []byte("FROM ubuntu"), 0644)

	ref, err := e.EnsureImage(context.Background(), buildOpts())
	if err != nil {
		t.Fatalf("EnsureImage() error = %v", err)
	}
	if !ref.BuiltThisRun {
		t.Error("present recipe must trigger a rebuild")
	}
}

func TestEnsureImage_SkipsBuildWhenCached(t *testing.T) {
	e, mockExec, _ := newEngine()
	// Image exists, no recipe on disk, no force.

	ref, err := e.EnsureImage(context.Background(), buildOpts())
	if err != nil {
		t.Fatalf("EnsureImage() error = %v", err)
	}
	if ref.BuiltThisRun {
		t.Error("no build expected when image is cached and recipe absent")
	}

	for _, line := range mockExec.CommandLines() {
		if strings.Contains(line, "build") {
			t.Errorf("unexpected build command: %s", line)
		}
	}
}

func TestEnsureImage_BuildFailureIsFatal(t *testing.T) {
	e, mockExec, _ := newEngine()
	mockExec.AddResponse("podman image inspect", nil, errors.New("no such image"))
	mockExec.InteractiveErr = errors.New("build exploded")

	_, err := e.EnsureImage(context.Background(), buildOpts())
	if err == nil {
		t.Fatal("build failure must be fatal")
	}
	if !strings.Contains(err.Error(), "image build failed") {
		t.Errorf("error = %v", err)
	}
}

func TestRemoveStaleContainer_NoopWhenAbsent(t *testing.T) {
	e, mockExec, _ := newEngine()
	mockExec.AddResponse("podman container inspect", nil, errors.New("no such container"))

	e.RemoveStaleContainer(context.Background(), "claude-code-dev")

	for _, line := range mockExec.CommandLines() {
		if strings.Contains(line, "stop") || strings.Contains(line, "rm") {
			t.Errorf("no stop/rm expected for absent container: %v", mockExec.CommandLines())
		}
	}
}

func TestRemoveStaleContainer_StopsAndRemoves(t *testing.T) {
	e, mockExec, _ := newEngine()
	// Default response: container exists.

	e.RemoveStaleContainer(context.Background(), "claude-code-dev")

	lines := mockExec.CommandLines()
	var sawStop, sawRm bool
	for _, line := range lines {
		if line == "podman stop claude-code-dev" {
			sawStop = true
		}
		if line == "podman rm claude-code-dev" {
			sawRm = true
		}
	}
	if !sawStop || !sawRm {
		t.Errorf("stop=%v rm=%v, commands: %v", sawStop, sawRm, lines)
	}
}

func TestRemoveStaleContainer_FailuresSwallowed(t *testing.T) {
	e, mockExec, _ := newEngine()
	mockExec.AddResponse("podman stop", nil, errors.New("cannot stop"))
	mockExec.AddResponse("podman rm", nil, errors.New("cannot remove"))

	// Must not panic or propagate.
	e.RemoveStaleContainer(context.Background(), "claude-code-dev")
}

func TestRun_BuildsExpectedArgs(t *testing.T) {
	e, mockExec, _ := newEngine()

	opts := RunOptions{
		ContainerName: "claude-code-dev",
		Hostname:      "claude-dev",
		ImageTag:      "claude-code-ubuntu",
		MountPath:     "/repo/claude_wt",
		Identity:      testIdentity(),
		Command:       []string{"bash", "-c", "claude"},
	}

	if err := e.Run(context.Background(), opts); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	last, _ := mockExec.LastCommand()
	line := last.Line()
	for _, want := range []string{
		"podman run -it",
		"--name claude-code-dev",
		"--hostname claude-dev",
		"--user 1000:1000",
		"--volume /repo/claude_wt:/home/alice/dev:Z",
		"--userns=keep-id",
		"claude-code-ubuntu bash -c claude",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("run command missing %q: %s", want, line)
		}
	}
	if !last.Interactive {
		t.Error("container run must be interactive")
	}
}

func TestRun_DockerOmitsUserns(t *testing.T) {
	mockExec := system.NewMockExecutor()
	e := NewEngine("docker", mockExec, system.NewMockFS())

	opts := RunOptions{
		ContainerName: "c",
		Hostname:      "h",
		ImageTag:      "img",
		MountPath:     "/m",
		Identity:      testIdentity(),
	}
	if err := e.Run(context.Background(), opts); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	last, _ := mockExec.LastCommand()
	if strings.Contains(last.Line(), "--userns=keep-id") {
		t.Error("docker engine must not pass --userns=keep-id")
	}
}

func TestRun_NonzeroExitIsTerminalNotError(t *testing.T) {
	e, mockExec, _ := newEngine()
	mockExec.InteractiveErr = &exec.ExitError{}

	opts := RunOptions{
		ContainerName: "c",
		Hostname:      "h",
		ImageTag:      "img",
		MountPath:     "/m",
		Identity:      testIdentity(),
	}
	if err := e.Run(context.Background(), opts); err != nil {
		t.Errorf("nonzero session exit must not be an error, got %v", err)
	}
}

func TestRun_StartFailureIsError(t *testing.T) {
	e, mockExec, _ := newEngine()
	mockExec.InteractiveErr = errors.New("executable file not found")

	opts := RunOptions{
		ContainerName: "c",
		Hostname:      "h",
		ImageTag:      "img",
		MountPath:     "/m",
		Identity:      testIdentity(),
	}
	if err := e.Run(context.Background(), opts); err == nil {
		t.Error("failing to start the container must be an error")
	}
}
