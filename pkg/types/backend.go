package types

import "errors"

// Backend is a storage backend for the Cella tables. Callers attach to a
// backend, read and write tables, and detach when done.
type Backend interface {
	Reader
	Writer

	// Attach connects the backend described by config. Returns
	// ErrAlreadyAttached if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, reads and writes return ErrBackendDetached.
	Detach() error
}

// Backend lifecycle errors.
var (
	ErrBackendDetached = errors.New("backend is detached")
	ErrAlreadyAttached = errors.New("backend is already attached")
	ErrTableNotFound   = errors.New("table not found")
)
