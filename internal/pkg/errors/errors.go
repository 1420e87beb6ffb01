package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStoreUnavailable means the course graph store could not answer. Fatal for a request.
	ErrStoreUnavailable = errors.New("course store unavailable")
	// ErrRetrievalUnavailable means the semantic index could not answer. Callers degrade.
	ErrRetrievalUnavailable = errors.New("semantic retrieval unavailable")
)
