// Package apperror defines the typed outcomes every core operation can return.
//
// Each constructor returns an *AppError that wraps one of the sentinel errors
// below, so callers branch with errors.Is and never compare strings:
//
//	if errors.Is(err, apperror.ErrNotFound) { ... }
//
// Idempotent no-ops (re-adding a favorite, removing an absent follow) are not
// errors and never surface here.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrBadRequest,
		Message: message,
		Field:   field,
	}
}

// InvalidRelation reports an edge that can never exist, such as a user
// following themselves.
func InvalidRelation(message string) *AppError {
	return &AppError{
		Err:     ErrBadRequest,
		Message: message,
	}
}

// Conflict reports a uniqueness race in the store (slug or edge).
// The operation can be retried.
func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// IsConflict reports whether err is a retryable uniqueness conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
