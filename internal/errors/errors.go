package errors

import (
	"errors"
	"fmt"
)

// Exit codes for capsule. Hard failures all map to ExitGeneralError;
// soft failures never change the process exit code.
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
)

// CapsuleError is the base error type for capsule
type CapsuleError struct {
	Code    int
	Message string
	Cause   error
}

func (e *CapsuleError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CapsuleError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *CapsuleError) ExitCode() int {
	return e.Code
}

// New creates a new CapsuleError
func New(code int, message string) *CapsuleError {
	return &CapsuleError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a CapsuleError
func Wrap(code int, message string, cause error) *CapsuleError {
	return &CapsuleError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error constructors

// NotARepo returns an error for running outside a git repository
// when worktree isolation was requested.
func NotARepo(path string) *CapsuleError {
	return New(ExitGeneralError, fmt.Sprintf("not a git repository: %s", path))
}

// BuildFailed returns an error for a failed image build.
// Build failures abort the run before any container is started.
func BuildFailed(tag string, cause error) *CapsuleError {
	return Wrap(ExitGeneralError, fmt.Sprintf("image build failed: %s", tag), cause)
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *CapsuleError {
	return Wrap(ExitGeneralError, message, cause)
}

// ContainerFailed returns an error for container operations
func ContainerFailed(op string, cause error) *CapsuleError {
	return Wrap(ExitGeneralError, fmt.Sprintf("container %s failed", op), cause)
}

// WorkspaceError returns an error for worktree operations
func WorkspaceError(op string, cause error) *CapsuleError {
	return Wrap(ExitGeneralError, fmt.Sprintf("worktree %s failed", op), cause)
}

// ReconcileError returns an error for git reconciliation failures.
// Only commit-phase failures are fatal; push failures are soft.
func ReconcileError(op string, cause error) *CapsuleError {
	return Wrap(ExitGeneralError, fmt.Sprintf("reconcile %s failed", op), cause)
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var capErr *CapsuleError
	if errors.As(err, &capErr) {
		return capErr.ExitCode()
	}
	return ExitGeneralError
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
