// Package errors provides typed errors with exit codes for capsule.
//
// # Error Types
//
// CapsuleError is the base error type that wraps an error with an exit code:
//
//	type CapsuleError struct {
//	    Code    int    // Exit code
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	}
//
// # Exit Codes
//
// capsule distinguishes only two exit codes: hard failures (not a git
// repository, missing configuration sources, image build failure) exit 1,
// everything else -- including soft-failed pushes -- exits 0.
//
//	ExitSuccess      = 0
//	ExitGeneralError = 1
//
// # Error Constructors
//
// Use the provided constructors for consistent error creation:
//
//	errors.NotARepo("/home/user/project")
//	errors.BuildFailed("claude-code-ubuntu", err)
//	errors.ContainerFailed("run", err)
//
// # Extracting Exit Codes
//
// Use GetExitCode to extract the exit code from an error chain:
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
