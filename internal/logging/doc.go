// Package logging provides logging utilities for capsule.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: Formatted messages for end users
//
// # Debug Logging
//
// Debug logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("creating worktree", "path", path, "ref", ref)
//	logging.Warn("push failed", "branch", branch, "error", err)
//
// # User Output
//
// User-facing messages are formatted with status indicators and colored
// via lipgloss:
//
//	logging.UserInfo("Using existing worktree at: %s", path)
//	logging.UserSuccess("Changes pushed to origin/%s", branch)
//	logging.UserWarning("Failed to push changes to remote")
//	logging.UserError("Image build failed: %v", err)
//
// Output destinations:
//   - UserInfo, UserSuccess: stdout
//   - UserWarning, UserError: stderr
package logging
