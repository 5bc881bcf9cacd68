package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a capsule error code.
type ErrorCode string

const (
	ErrEnvironment    ErrorCode = "ENVIRONMENT"     // home directory undiscoverable
	ErrIO             ErrorCode = "IO"              // filesystem failure
	ErrArchive        ErrorCode = "ARCHIVE"         // corrupt or unreadable container
	ErrInput          ErrorCode = "INPUT"           // prompt failed or no TTY
	ErrUnsafePath     ErrorCode = "UNSAFE_PATH"     // entry escapes the root
	ErrNoCapsules     ErrorCode = "NO_CAPSULES"     // nothing to select
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // bad arguments
)

// CapsuleError represents a structured error with code, message, and details.
type CapsuleError struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *CapsuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *CapsuleError) Unwrap() error {
	return e.Err
}

// NewEnvironment creates an error for when the home directory cannot be resolved.
func NewEnvironment(err error) *CapsuleError {
	return &CapsuleError{
		Code:    ErrEnvironment,
		Message: fmt.Sprintf("could not determine home directory: %v", err),
		Err:     err,
	}
}

// NewIO creates an error for a failed filesystem operation on path.
func NewIO(op, path string, err error) *CapsuleError {
	return &CapsuleError{
		Code:    ErrIO,
		Message: fmt.Sprintf("%s %s: %v", op, path, err),
		Details: map[string]any{"op": op, "path": path},
		Err:     err,
	}
}

// NewArchive creates an error for a capsule that cannot be read or written as an archive.
func NewArchive(path string, err error) *CapsuleError {
	return &CapsuleError{
		Code:    ErrArchive,
		Message: fmt.Sprintf("archive %s: %v", path, err),
		Details: map[string]any{"path": path},
		Err:     err,
	}
}

// NewInput creates an error for a failed or cancelled interactive prompt.
func NewInput(msg string, err error) *CapsuleError {
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &CapsuleError{
		Code:    ErrInput,
		Message: msg,
		Err:     err,
	}
}

// NewUnsafePath creates an error for an entry name that would land outside the root.
func NewUnsafePath(name string) *CapsuleError {
	return &CapsuleError{
		Code:    ErrUnsafePath,
		Message: fmt.Sprintf("entry path escapes the restore root: %q", name),
		Details: map[string]any{"name": name},
	}
}

// NewNoCapsules creates an error for an empty capsule directory.
func NewNoCapsules(dir string) *CapsuleError {
	return &CapsuleError{
		Code:    ErrNoCapsules,
		Message: fmt.Sprintf("no capsules found in %s", dir),
		Details: map[string]any{"dir": dir},
	}
}

// NewInvalidRequest creates an error for invalid request parameters.
func NewInvalidRequest(msg string) *CapsuleError {
	return &CapsuleError{
		Code:    ErrInvalidRequest,
		Message: msg,
	}
}

// Is checks if err, or any error it wraps, is a CapsuleError with the given code.
func Is(err error, code ErrorCode) bool {
	var cErr *CapsuleError
	if stderrors.As(err, &cErr) {
		return cErr.Code == code
	}
	return false
}
