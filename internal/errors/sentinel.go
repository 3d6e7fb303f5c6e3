package errors

import "errors"

// Sentinel errors for the known failure categories.
var (
	// ErrNotFound indicates a formula, version, or file was not found.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict indicates no version satisfies the aggregated constraints.
	ErrVersionConflict = errors.New("version conflict")

	// ErrAlreadyExists indicates a formula or version already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates a malformed name, version, or range.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRegistry indicates a remote registry failure (non-transport).
	ErrRegistry = errors.New("registry error")

	// ErrNetwork indicates a transport-level failure reaching the registry.
	ErrNetwork = errors.New("network error")

	// ErrFilesystem indicates a local I/O failure, fatal to the current item only.
	ErrFilesystem = errors.New("filesystem error")

	// ErrPermission indicates insufficient permissions.
	ErrPermission = errors.New("permission denied")

	// ErrIntegrity indicates a downloaded file failed its integrity check.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrCancelled indicates the user cancelled the operation.
	// Not a failure: callers exit cleanly with no message.
	ErrCancelled = errors.New("operation cancelled")
)
