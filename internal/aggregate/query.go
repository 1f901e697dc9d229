// Package aggregate reads several tables for one user concurrently through
// the query cache and merges the results into a types.Bundle.
package aggregate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cella-health/cella/internal/cache"
	"github.com/cella-health/cella/pkg/types"
)

// DefaultConcurrency caps the reads one aggregate runs at once.
const DefaultConcurrency = 8

// Query runs cached table reads. It is safe for concurrent use.
type Query struct {
	reader types.Reader
	cache  *cache.Cache
	logger *zap.Logger
	limit  int
}

// Option configures a Query.
type Option func(*Query)

// WithConcurrency sets how many reads of one aggregate may run at once.
// Values below one mean no limit.
func WithConcurrency(n int) Option {
	return func(q *Query) { q.limit = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(q *Query) { q.logger = l }
}

// New returns a Query reading from r through c.
func New(r types.Reader, c *cache.Cache, opts ...Option) *Query {
	q := &Query{
		reader: r,
		cache:  c,
		logger: zap.NewNop(),
		limit:  DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Cache returns the cache the query reads through.
func (q *Query) Cache() *cache.Cache { return q.cache }

// Key returns the cache key of a whole-table read. The owner is dropped for
// tables without an owner column so every user shares one entry.
func Key(table types.TableName, owner types.OwnerFilter) (cache.Key, error) {
	schema, err := types.Lookup(table)
	if err != nil {
		return cache.Key{}, err
	}
	return cache.TableKey(table, owner.ScopeFor(schema)), nil
}

// Read returns the rows of table visible to owner, from the cache when fresh.
func (q *Query) Read(ctx context.Context, table types.TableName, owner types.OwnerFilter) ([]types.Row, error) {
	key, err := Key(table, owner)
	if err != nil {
		return nil, err
	}
	return q.cache.Get(ctx, key, q.fetcher(key))
}

// ReadDay returns the rows of table visible to owner whose day column falls
// on the UTC calendar day of day.
func (q *Query) ReadDay(ctx context.Context, table types.TableName, owner types.OwnerFilter, day time.Time) ([]types.Row, error) {
	schema, err := types.Lookup(table)
	if err != nil {
		return nil, err
	}
	if !schema.HasDay() {
		return nil, fmt.Errorf("%w: %s", types.ErrNoDayColumn, table)
	}
	day = day.UTC()
	key := cache.DayKey(table, owner.ScopeFor(schema), day)
	return q.cache.Get(ctx, key, func(ctx context.Context) ([]types.Row, error) {
		return q.reader.SelectDay(ctx, key.Table, key.Owner, day)
	})
}

// Mount registers a consumer of the whole-table read of table for owner.
// See cache.Cache.Mount.
func (q *Query) Mount(table types.TableName, owner types.OwnerFilter) (<-chan struct{}, func(), error) {
	key, err := Key(table, owner)
	if err != nil {
		return nil, nil, err
	}
	ch, unmount := q.cache.Mount(key, q.fetcher(key))
	return ch, unmount, nil
}

func (q *Query) fetcher(key cache.Key) cache.Fetcher {
	return func(ctx context.Context) ([]types.Row, error) {
		return q.reader.Select(ctx, key.Table, key.Owner)
	}
}

// Normalize validates tables and removes duplicates, keeping first-seen
// order.
func Normalize(tables []types.TableName) ([]types.TableName, error) {
	seen := make(map[types.TableName]bool, len(tables))
	out := make([]types.TableName, 0, len(tables))
	for _, t := range tables {
		if _, err := types.Lookup(t); err != nil {
			return nil, err
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out, nil
}

// Pending is an aggregate whose reads may still be running.
type Pending struct {
	mu        sync.Mutex
	bundle    *types.Bundle
	remaining int
	done      chan struct{}
}

// Snapshot returns a copy of the bundle as it stands. Tables whose reads
// have not finished map to empty slices and IsLoading is true.
func (p *Pending) Snapshot() *types.Bundle {
	p.mu.Lock()
	defer p.mu.Unlock()

	b := p.bundle.Clone()
	b.IsLoading = p.remaining > 0
	return b
}

// Done is closed once every read has finished.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until every read has finished or ctx is done.
func (p *Pending) Wait(ctx context.Context) (*types.Bundle, error) {
	select {
	case <-p.done:
		return p.Snapshot(), nil
	case <-ctx.Done():
		return p.Snapshot(), ctx.Err()
	}
}

func (p *Pending) record(table types.TableName, rows []types.Row, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.remaining--
	if err != nil {
		p.bundle.Rows[table] = []types.Row{}
		p.bundle.Errors[table] = err
		p.bundle.IsError = true
		return
	}
	if rows == nil {
		rows = []types.Row{}
	}
	p.bundle.Rows[table] = rows
}

// Start begins reading tables for userID and returns immediately. The bundle
// has exactly one key per distinct requested table. A failed read leaves an
// empty slice under its key, records the error, and sets IsError; the other
// reads are unaffected.
func (q *Query) Start(ctx context.Context, userID types.OwnerFilter, tables []types.TableName) (*Pending, error) {
	tables, err := Normalize(tables)
	if err != nil {
		return nil, err
	}

	p := &Pending{
		bundle:    types.NewBundle(tables),
		remaining: len(tables),
		done:      make(chan struct{}),
	}
	if len(tables) == 0 {
		close(p.done)
		return p, nil
	}

	started := time.Now()
	var g errgroup.Group
	if q.limit > 0 {
		g.SetLimit(q.limit)
	}
	go func() {
		for _, table := range tables {
			g.Go(func() error {
				rows, err := q.Read(ctx, table, userID)
				if err != nil {
					q.logger.Debug("table read failed",
						zap.String("table", string(table)),
						zap.String("user", string(userID)),
						zap.Error(err))
				}
				p.record(table, rows, err)
				return nil
			})
		}
		// Reads report failures through p, never through the group.
		_ = g.Wait()

		result := "ok"
		if p.Snapshot().IsError {
			result = "partial"
		}
		aggregateDuration.WithLabelValues(result).Observe(time.Since(started).Seconds())
		close(p.done)
	}()
	return p, nil
}

// Run reads tables for userID and waits for every read. It returns an error
// only for an invalid table list or when ctx ends first; read failures are
// reported inside the bundle.
func (q *Query) Run(ctx context.Context, userID types.OwnerFilter, tables []types.TableName) (*types.Bundle, error) {
	p, err := q.Start(ctx, userID, tables)
	if err != nil {
		return nil, err
	}
	return p.Wait(ctx)
}
