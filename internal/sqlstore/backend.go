package sqlstore

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/cella-health/cella/pkg/types"
)

// OpenFunc opens the database described by config. The returned handle is
// migrated and owned by the Backend until Detach.
type OpenFunc func(config types.Config) (*sql.DB, error)

// Backend implements types.Backend over a Store, adding the Attach/Detach
// lifecycle. The engine-specific packages supply the dialect and opener.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	dialect  Dialect
	open     OpenFunc
	opts     []Option
	store    *Store
}

// NewBackend creates a detached backend; call Attach to initialize.
func NewBackend(d Dialect, open OpenFunc, opts ...Option) *Backend {
	return &Backend{
		dialect: d,
		open:    open,
		opts:    opts,
	}
}

// Attach opens the database, applies the schema, and makes the tables
// available. Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	db, err := b.open(config)
	if err != nil {
		return err
	}

	store := New(db, b.dialect, b.opts...)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return err
	}

	b.store = store
	b.config = config
	b.attached = true
	return nil
}

// Detach closes the database. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if err := b.store.db.Close(); err != nil {
		return err
	}
	b.store = nil
	b.attached = false
	return nil
}

// Store returns the attached store.
// Returns ErrBackendDetached if the backend is not attached.
func (b *Backend) Store() (*Store, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrBackendDetached
	}
	return b.store, nil
}

// Config returns the configuration the backend was attached with.
func (b *Backend) Config() types.Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config
}

// Select implements types.Reader.
func (b *Backend) Select(ctx context.Context, table types.TableName, owner types.OwnerFilter) ([]types.Row, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrBackendDetached
	}
	return b.store.Select(ctx, table, owner)
}

// SelectDay implements types.Reader.
func (b *Backend) SelectDay(ctx context.Context, table types.TableName, owner types.OwnerFilter, day time.Time) ([]types.Row, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrBackendDetached
	}
	return b.store.SelectDay(ctx, table, owner, day)
}

// Insert implements types.Writer.
func (b *Backend) Insert(ctx context.Context, table types.TableName, row types.Row) (types.Row, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrBackendDetached
	}
	return b.store.Insert(ctx, table, row)
}

// Update implements types.Writer.
func (b *Backend) Update(ctx context.Context, table types.TableName, id string, patch types.Row) (types.Row, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrBackendDetached
	}
	return b.store.Update(ctx, table, id, patch)
}

var _ types.Backend = (*Backend)(nil)
