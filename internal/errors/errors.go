// Package errors provides sentinel errors, structured error types, and exit
// codes for the formulary CLI.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Exit codes surfaced by the CLI.
const (
	// ExitSuccess indicates the command completed successfully.
	// Also used for user cancellation, which is not a failure.
	ExitSuccess = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError = 1

	// ExitInvalidInput indicates a malformed name, version, or range.
	ExitInvalidInput = 2

	// ExitNetworkError indicates the remote registry could not be reached.
	ExitNetworkError = 3

	// ExitPermissionDenied indicates insufficient filesystem or registry permissions.
	ExitPermissionDenied = 4

	// ExitNotFound indicates a formula, version, or file was not found.
	ExitNotFound = 5

	// ExitVersionConflict indicates dependency resolution failed after recovery.
	ExitVersionConflict = 6
)

// ExitError wraps an error with an exit code.
// Printed records whether the command layer already rendered the message,
// so main does not print it twice.
type ExitError struct {
	Err     error
	Code    int
	Printed bool
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCodeFromError determines the appropriate exit code for an error.
func ExitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	switch {
	case errors.Is(err, ErrCancelled):
		return ExitSuccess
	case errors.Is(err, ErrInvalidInput):
		return ExitInvalidInput
	case errors.Is(err, ErrNetwork), errors.Is(err, ErrRegistry), errors.Is(err, ErrIntegrity):
		return ExitNetworkError
	case errors.Is(err, ErrPermission):
		return ExitPermissionDenied
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	case errors.Is(err, ErrVersionConflict):
		return ExitVersionConflict
	default:
		return ExitGeneralError
	}
}

// VersionConflictError reports that the ranges imposed on one formula name
// have no common satisfying version among the available versions.
type VersionConflictError struct {
	// FormulaName is the name the conflicting ranges apply to.
	FormulaName string

	// Ranges are the version ranges collected from all dependency paths.
	Ranges []string

	// Parents names the formulas that imposed each range, index-aligned with Ranges.
	Parents []string

	// AvailableVersions lists the versions present in the registries.
	AvailableVersions []string
}

// Error implements the error interface.
func (e *VersionConflictError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "no version of %q satisfies all constraints", e.FormulaName)
	for i, r := range e.Ranges {
		parent := "(root)"
		if i < len(e.Parents) && e.Parents[i] != "" {
			parent = e.Parents[i]
		}
		fmt.Fprintf(&b, "\n  %s requires %s", parent, r)
	}
	if len(e.AvailableVersions) > 0 {
		fmt.Fprintf(&b, "\n  available: %s", strings.Join(e.AvailableVersions, ", "))
	}
	return b.String()
}

// Unwrap ties the structured conflict to the ErrVersionConflict sentinel.
func (e *VersionConflictError) Unwrap() error {
	return ErrVersionConflict
}

// Wrap wraps an error with a sentinel error type.
func Wrap(sentinel error, message string) error {
	return fmt.Errorf("%s: %w", message, sentinel)
}

// Wrapf wraps err with a sentinel so both the cause and the category
// survive errors.Is checks.
func Wrapf(sentinel error, err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w: %w", msg, sentinel, err)
}
