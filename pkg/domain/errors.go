package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced id does not resolve to a live entity.
var ErrNotFound = errors.New("not found")

// ErrConcurrentModification is returned when an optimistic version check fails.
var ErrConcurrentModification = errors.New("concurrent modification")

// ErrPermissionDenied is returned when the subject lacks a required permission
// on a command. Query-layer denial filters rows instead of erroring.
var ErrPermissionDenied = errors.New("permission denied")

// ValidationError reports malformed input to a command or query builder.
// No mutation is performed and a retry cannot succeed without a fixed input.
type ValidationError struct {
	Field  string
	Reason string
	Value  any
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s (got %v)", e.Field, e.Reason, e.Value)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// NotFoundError carries the entity kind and id for a failed resolution.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id '%s' does not exist", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConcurrencyError reports a lost optimistic locking race on one execution.
type ConcurrencyError struct {
	ExecutionID string
	Expected    int64
	Actual      int64
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("execution %s was updated concurrently (read version %d, found %d)",
		e.ExecutionID, e.Expected, e.Actual)
}

func (e *ConcurrencyError) Unwrap() error { return ErrConcurrentModification }

// IllegalTransitionError reports a state machine trigger that is not valid
// from the node's current state. The command aborts without mutation.
type IllegalTransitionError struct {
	ExecutionID string
	From        State
	Trigger     Trigger
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("execution %s: trigger %q is not allowed in state %q",
		e.ExecutionID, e.Trigger, e.From)
}
