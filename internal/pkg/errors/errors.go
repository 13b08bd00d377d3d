package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict marks a write that collided with an existing natural key.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable marks an upstream collaborator that is disabled or tripped.
	ErrUnavailable = errors.New("unavailable")
)
