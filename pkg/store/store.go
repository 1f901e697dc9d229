// Package store provides the public factory for Cella storage backends while
// keeping implementation details internal.
package store

import (
	"github.com/cella-health/cella/internal/postgres"
	"github.com/cella-health/cella/internal/sqlite"
	"github.com/cella-health/cella/pkg/types"
)

// New creates a detached backend for the named engine.
// Returns ErrBackendUnknown for an unsupported name.
func New(backend string) (types.Backend, error) {
	switch backend {
	case types.BackendSQLite:
		return sqlite.NewBackend(), nil
	case types.BackendPostgres:
		return postgres.NewBackend(), nil
	case "":
		return nil, types.ErrBackendEmpty
	default:
		return nil, types.ErrBackendUnknown
	}
}

// Open creates the backend named by config and attaches it. The caller must
// Detach the returned backend.
//
// Example:
//
//	backend, err := store.Open(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".cella-db",
//	})
//	if err != nil { ... }
//	defer backend.Detach()
func Open(config types.Config) (types.Backend, error) {
	b, err := New(config.Backend)
	if err != nil {
		return nil, err
	}
	if err := b.Attach(config); err != nil {
		return nil, err
	}
	return b, nil
}
