package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a pmprep error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"    // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"          // 404
	ErrConflict          ErrorCode = "CONFLICT"           // 409 (kv version mismatch)
	ErrParseFailed       ErrorCode = "PARSE_FAILED"       // 422 (never leaves the stores)
	ErrInternal          ErrorCode = "INTERNAL"           // 500
	ErrFetchFailed       ErrorCode = "FETCH_FAILED"       // 502
	ErrPersistenceFailed ErrorCode = "PERSISTENCE_FAILED" // 507
)

// PrepError represents a structured error with code, status, and details.
type PrepError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *PrepError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *PrepError) Unwrap() error { return e.Err }

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *PrepError {
	return &PrepError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a question cannot be found.
func NewNotFound(id string) *PrepError {
	return &PrepError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("question not found: %s", id),
		Details: map[string]any{"id": id},
	}
}

// NewConflict creates a 409 error for a stale versioned write.
func NewConflict(key string, expected int64) *PrepError {
	return &PrepError{
		Code:    ErrConflict,
		Status:  409,
		Message: fmt.Sprintf("key %q was modified concurrently (expected version %d)", key, expected),
		Details: map[string]any{"key": key, "expected_version": expected},
	}
}

// NewParse creates a 422 error for a malformed persisted value.
func NewParse(key string, err error) *PrepError {
	return &PrepError{
		Code:    ErrParseFailed,
		Status:  422,
		Message: fmt.Sprintf("malformed value under %q", key),
		Details: map[string]any{"key": key},
		Err:     err,
	}
}

// NewFetchFailed creates a 502 error for a failed or unsuccessful remote call.
func NewFetchFailed(op string, err error) *PrepError {
	msg := op + " failed"
	if err != nil {
		msg = fmt.Sprintf("%s failed: %v", op, err)
	}
	return &PrepError{
		Code:    ErrFetchFailed,
		Status:  502,
		Message: msg,
		Details: map[string]any{"op": op},
		Err:     err,
	}
}

// NewPersistence creates a 507 error for a local storage write that did not stick.
func NewPersistence(key string, err error) *PrepError {
	msg := fmt.Sprintf("could not persist %q", key)
	if err != nil {
		msg = fmt.Sprintf("could not persist %q: %v", key, err)
	}
	return &PrepError{
		Code:    ErrPersistenceFailed,
		Status:  507,
		Message: msg,
		Details: map[string]any{"key": key},
		Err:     err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *PrepError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &PrepError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// Is checks if an error (or anything it wraps) is a PrepError with the given code.
func Is(err error, code ErrorCode) bool {
	var pErr *PrepError
	if stderrors.As(err, &pErr) {
		return pErr.Code == code
	}
	return false
}

// As extracts a PrepError from err, wrapping anything else as INTERNAL.
func As(err error) *PrepError {
	var pErr *PrepError
	if stderrors.As(err, &pErr) {
		return pErr
	}
	return NewInternal(err)
}
