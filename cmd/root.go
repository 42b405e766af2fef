package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/capsule-dev/capsule/internal/app"
	"github.com/capsule-dev/capsule/internal/config"
	"github.com/capsule-dev/capsule/internal/errors"
	"github.com/capsule-dev/capsule/internal/logging"
	"github.com/capsule-dev/capsule/internal/session"
	"github.com/capsule-dev/capsule/internal/tui"
)

var (
	verbose    bool
	jsonOutput bool

	message        string
	permissionMode string
	noCache        bool
	worktreeBranch string
	keepWorktree   bool
	noWorktree     bool
	worktreePath   string
)

var rootCmd = &cobra.Command{
	Use:   "capsule",
	Short: "Run Claude Code in an isolated container sandbox",
	Long: `capsule launches a containerized Claude Code session rooted in the
current git repository.

Each session gets:
  - An ephemeral git worktree as its working copy
  - A container image built from an embedded recipe
  - The host user's identity and Claude configuration
  - Automatic commit and push of the session's changes on exit`,
	Args: cobra.NoArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(verbose, jsonOutput, os.Stderr)
	},
	RunE: runRoot,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.Flags().StringVarP(&message, "message", "m", "", "Run a one-shot instruction instead of an interactive session")
	rootCmd.Flags().StringVar(&permissionMode, "permission-mode", "", "Permission mode for -m (default, acceptEdits, plan, bypassPermissions, or ask to pick)")
	rootCmd.Flags().BoolVar(&noCache, "no-cache", false, "Force a full image rebuild")
	rootCmd.Flags().StringVar(&worktreeBranch, "worktree-branch", "", "Source ref for the ephemeral worktree (default: current HEAD)")
	rootCmd.Flags().BoolVar(&keepWorktree, "keep-worktree", false, "Keep the worktree after the session ends")
	rootCmd.Flags().BoolVar(&noWorktree, "no-worktree", false, "Mount the current directory directly, without a worktree")
	rootCmd.Flags().StringVar(&worktreePath, "worktree-path", "", "Reuse an existing checkout at this path")
}

func runRoot(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := app.New()
	if err != nil {
		return err
	}

	opts, err := parseRunOptions(cmd, a.Config)
	if err != nil {
		return err
	}

	logging.Debug("resolved options",
		"engine", a.Engine.Command,
		"repo", opts.RepoDir,
		"no_worktree", opts.NoWorktree)

	return a.Orchestrator().Run(ctx, opts)
}

// parseRunOptions folds flags and config-file defaults into session options.
// Flags win over the config file when explicitly set.
func parseRunOptions(cmd *cobra.Command, cfg *config.Config) (session.Options, error) {
	repoDir, err := os.Getwd()
	if err != nil {
		return session.Options{}, errors.New(errors.ExitGeneralError, "failed to resolve working directory: "+err.Error())
	}

	rawMode := permissionMode
	if rawMode == "" && !cmd.Flags().Changed("permission-mode") {
		rawMode = cfg.PermissionMode
	}

	var mode session.PermissionMode
	if rawMode == "ask" {
		mode, err = tui.PickPermissionMode()
		if err != nil {
			return session.Options{}, err
		}
	} else {
		mode, err = session.ParsePermissionMode(rawMode)
		if err != nil {
			return session.Options{}, errors.New(errors.ExitGeneralError, err.Error())
		}
	}

	keep := keepWorktree
	if !cmd.Flags().Changed("keep-worktree") {
		keep = cfg.KeepWorktree
	}

	return session.Options{
		RepoDir:              repoDir,
		Instruction:          message,
		PermissionMode:       mode,
		NoCache:              noCache,
		SourceRef:            worktreeBranch,
		KeepWorktree:         keep,
		NoWorktree:           noWorktree,
		ExistingWorktreePath: worktreePath,
	}, nil
}
