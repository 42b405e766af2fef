// Package app provides the application context for capsule.
// It allows dependency injection for testing.
package app

import (
	"fmt"
	"os"

	"github.com/capsule-dev/capsule/internal/config"
	"github.com/capsule-dev/capsule/internal/reconcile"
	"github.com/capsule-dev/capsule/internal/runtime"
	"github.com/capsule-dev/capsule/internal/session"
	"github.com/capsule-dev/capsule/internal/system"
	"github.com/capsule-dev/capsule/internal/workspace"
)

// App holds the application dependencies
type App struct {
	// Config holds the user settings
	Config *config.Config

	// Identity is the resolved host user
	Identity *config.Identity

	// Engine is the container engine, nil when none was detected
	Engine *runtime.Engine

	// Executor runs external commands
	Executor system.CommandExecutor

	// FS is the filesystem abstraction
	FS system.FileSystem

	// HomeDir is the host user's home directory
	HomeDir string
}

// Option is a function that configures the App
type Option func(*App)

// WithConfig sets a custom config
func WithConfig(cfg *config.Config) Option {
	return func(a *App) {
		a.Config = cfg
	}
}

// WithIdentity sets a custom identity
func WithIdentity(id *config.Identity) Option {
	return func(a *App) {
		a.Identity = id
	}
}

// WithEngine sets a custom container engine
func WithEngine(e *runtime.Engine) Option {
	return func(a *App) {
		a.Engine = e
	}
}

// WithSystem sets custom executor and filesystem implementations
func WithSystem(exec system.CommandExecutor, fs system.FileSystem) Option {
	return func(a *App) {
		a.Executor = exec
		a.FS = fs
	}
}

// WithHomeDir sets a custom home directory
func WithHomeDir(dir string) Option {
	return func(a *App) {
		a.HomeDir = dir
	}
}

// New creates a new App with the given options. Anything not provided is
// resolved from the environment.
func New(opts ...Option) (*App, error) {
	a := &App{
		Executor: system.DefaultExecutor(),
		FS:       system.DefaultFS(),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.Config == nil {
		cfg, err := config.Load(a.FS, config.Path())
		if err != nil {
			return nil, err
		}
		a.Config = cfg
	}

	if a.Identity == nil {
		id, err := config.CurrentIdentity()
		if err != nil {
			return nil, err
		}
		a.Identity = id
	}

	if a.HomeDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		a.HomeDir = home
	}

	if a.Engine == nil {
		engine, err := runtime.Detect(a.Executor, a.FS)
		if err != nil {
			return nil, err
		}
		a.Engine = engine
	}

	return a, nil
}

// Orchestrator builds the session orchestrator from the app's dependencies.
func (a *App) Orchestrator() *session.Orchestrator {
	return session.NewOrchestrator(
		a.Config,
		a.Identity,
		a.Engine,
		workspace.NewManager(a.Executor, a.FS),
		reconcile.New(a.Executor),
		config.NewStager(a.FS, a.HomeDir),
		a.FS,
	)
}
