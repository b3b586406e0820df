package tasks

import (
	"errors"
	"fmt"
)

// Domain error taxonomy. All task service operations fail with one of
// these before any persistence write; infrastructure errors from the
// repository pass through unwrapped.

// ValidationError indicates a malformed or out-of-range field. The
// caller can recover by correcting the input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NotFoundError indicates a referenced entity does not exist.
type NotFoundError struct {
	Kind string
	ID   any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Kind, e.ID)
}

// AuthorizationError indicates a role or department check failed. The
// message is intentionally generic so callers learn nothing about the
// target's existence.
type AuthorizationError struct{}

func (e *AuthorizationError) Error() string {
	return "access denied"
}

// ConflictError indicates the operation would violate a state
// invariant, such as removing the last assignee.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

// DepthExceededError indicates an attempt to nest a subtask under
// another subtask.
type DepthExceededError struct {
	ParentID uint
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("task %d is itself a subtask; subtasks cannot have subtasks", e.ParentID)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// IsAuthorization reports whether err is an AuthorizationError.
func IsAuthorization(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsDepthExceeded reports whether err is a DepthExceededError.
func IsDepthExceeded(err error) bool {
	var de *DepthExceededError
	return errors.As(err, &de)
}
