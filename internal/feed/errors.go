package feed

import "errors"

var (
	// ErrValidation means caller input broke a precondition. Never retried.
	ErrValidation = errors.New("validation failed")
	// ErrTransport means the backend was unreachable or rejected the call.
	ErrTransport = errors.New("transport failure")
	// ErrNotFound means a point read found no row.
	ErrNotFound = errors.New("record not found")
)
