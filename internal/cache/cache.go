// Package cache holds the last result of every table read, keyed by
// table, owner and optional day.
//
// Entries are refreshed on invalidation and whenever a consumer mounts; there
// is no TTL. Concurrent reads of the same key share one fetch. Entries with no
// mounted consumers are dropped by Sweep once they have been idle for the
// grace period.
package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/cella-health/cella/pkg/types"
)

const (
	// DefaultGracePeriod is how long an unmounted entry survives without reads.
	DefaultGracePeriod = 5 * time.Minute

	// DefaultRefetchTimeout bounds one background re-fetch.
	DefaultRefetchTimeout = 30 * time.Second

	// DayLayout is the format of Key.Day.
	DayLayout = "2006-01-02"
)

// Key identifies one cached read. Day is empty for whole-table reads.
type Key struct {
	Table types.TableName
	Owner types.OwnerFilter
	Day   string
}

// TableKey returns the key of a whole-table read.
func TableKey(table types.TableName, owner types.OwnerFilter) Key {
	return Key{Table: table, Owner: owner}
}

// DayKey returns the key of a read restricted to the UTC calendar day of day.
func DayKey(table types.TableName, owner types.OwnerFilter, day time.Time) Key {
	return Key{Table: table, Owner: owner, Day: day.UTC().Format(DayLayout)}
}

func (k Key) String() string {
	parts := []string{string(k.Table), string(k.Owner)}
	if k.Day != "" {
		parts = append(parts, k.Day)
	}
	return strings.Join(parts, "|")
}

// Fetcher loads the rows for one key from the backend.
type Fetcher func(ctx context.Context) ([]types.Row, error)

type entry struct {
	rows      []types.Row
	hasData   bool
	err       error
	fetchedAt time.Time
	stale     bool
	fetching  bool
	gen       uint64

	subs       map[uint64]chan struct{}
	lastAccess time.Time
	fetch      Fetcher
	queued     bool
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Entries       int   `json:"entries"`
	Mounted       int   `json:"mounted"`
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Fetches       int64 `json:"fetches"`
	Invalidations int64 `json:"invalidations"`
	Evictions     int64 `json:"evictions"`
}

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	flight  singleflight.Group
	nextSub uint64

	clock          clockwork.Clock
	grace          time.Duration
	refetchTimeout time.Duration
	base           context.Context
	logger         *zap.Logger

	hits          atomic.Int64
	misses        atomic.Int64
	fetches       atomic.Int64
	invalidations atomic.Int64
	evictions     atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock sets the clock used for fetched-at and idle times.
func WithClock(c clockwork.Clock) Option {
	return func(cc *Cache) { cc.clock = c }
}

// WithGracePeriod sets how long unmounted entries are kept after their last
// access.
func WithGracePeriod(d time.Duration) Option {
	return func(c *Cache) { c.grace = d }
}

// WithRefetchTimeout bounds background re-fetches of mounted entries.
func WithRefetchTimeout(d time.Duration) Option {
	return func(c *Cache) { c.refetchTimeout = d }
}

// WithBaseContext sets the parent context of background re-fetches.
func WithBaseContext(ctx context.Context) Option {
	return func(c *Cache) { c.base = ctx }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New returns an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:        make(map[Key]*entry),
		clock:          clockwork.NewRealClock(),
		grace:          DefaultGracePeriod,
		refetchTimeout: DefaultRefetchTimeout,
		base:           context.Background(),
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// entryLocked returns the entry for key, creating it if needed.
// Caller must hold c.mu.
func (c *Cache) entryLocked(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{
			subs:       make(map[uint64]chan struct{}),
			lastAccess: c.clock.Now(),
		}
		c.entries[key] = e
	}
	return e
}

// Get returns the cached rows for key when they are fresh, and otherwise
// loads them with fetch. Concurrent loads of one key share a single call to
// fetch. Errors are returned but never cached. The returned rows are the
// caller's to modify.
func (c *Cache) Get(ctx context.Context, key Key, fetch Fetcher) ([]types.Row, error) {
	c.mu.Lock()
	e := c.entryLocked(key)
	e.lastAccess = c.clock.Now()
	e.fetch = fetch
	if e.hasData && !e.stale {
		rows := types.CloneRows(e.rows)
		c.mu.Unlock()
		c.hits.Add(1)
		cacheLookups.WithLabelValues(string(key.Table), "hit").Inc()
		return rows, nil
	}
	c.mu.Unlock()

	c.misses.Add(1)
	cacheLookups.WithLabelValues(string(key.Table), "miss").Inc()
	return c.load(ctx, key, fetch)
}

// load runs fetch for key under the key's singleflight slot. The shared
// fetch is detached from ctx and bounded by the refetch timeout, so one
// caller giving up does not fail the others waiting on the same key.
func (c *Cache) load(ctx context.Context, key Key, fetch Fetcher) ([]types.Row, error) {
	res := c.flight.DoChan(key.String(), func() (any, error) {
		c.mu.Lock()
		e := c.entryLocked(key)
		if e.hasData && !e.stale {
			// A load that finished between our miss and this call already
			// refreshed the entry.
			rows := e.rows
			c.mu.Unlock()
			return rows, nil
		}
		gen := e.gen
		e.fetching = true
		c.mu.Unlock()

		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refetchTimeout)
		defer cancel()
		rows, err := fetch(fctx)
		c.fetches.Add(1)
		cacheFetches.WithLabelValues(string(key.Table), outcome(err)).Inc()

		c.mu.Lock()
		defer c.mu.Unlock()
		e = c.entryLocked(key)
		e.fetching = false
		if err != nil {
			e.err = err
			return nil, err
		}
		if rows == nil {
			rows = []types.Row{}
		}
		e.rows = rows
		e.hasData = true
		e.err = nil
		e.fetchedAt = c.clock.Now()
		if e.gen == gen {
			e.stale = false
		}
		for _, ch := range e.subs {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
		return rows, nil
	})

	select {
	case r := <-res:
		if r.Err != nil {
			return nil, r.Err
		}
		return types.CloneRows(r.Val.([]types.Row)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Peek returns the cached rows for key without fetching, fresh or stale.
func (c *Cache) Peek(key Key) ([]types.Row, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !e.hasData {
		return nil, false
	}
	return types.CloneRows(e.rows), true
}

// IsStale reports whether key has an entry that needs a re-fetch.
func (c *Cache) IsStale(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	return ok && (e.stale || !e.hasData)
}

// Invalidate marks the given keys stale and returns how many cached entries
// were affected. Mounted entries are re-fetched in the background; repeated
// invalidations before that re-fetch starts share it.
func (c *Cache) Invalidate(keys ...Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, k := range keys {
		if e, ok := c.entries[k]; ok {
			c.invalidateLocked(k, e)
			n++
		}
	}
	return n
}

// InvalidateMatching marks stale every entry of table for owner, including
// all per-day entries, and returns how many were affected.
func (c *Cache) InvalidateMatching(table types.TableName, owner types.OwnerFilter) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.entries {
		if k.Table == table && k.Owner == owner {
			c.invalidateLocked(k, e)
			n++
		}
	}
	return n
}

// InvalidateTable marks stale every entry of table, whatever its owner or
// day. Returns the number of entries affected.
func (c *Cache) InvalidateTable(table types.TableName) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.entries {
		if k.Table == table {
			c.invalidateLocked(k, e)
			n++
		}
	}
	return n
}

func (c *Cache) invalidateLocked(key Key, e *entry) {
	e.gen++
	e.stale = true
	c.invalidations.Add(1)
	cacheInvalidations.WithLabelValues(string(key.Table)).Inc()
	if len(e.subs) > 0 {
		c.scheduleRefetchLocked(key, e)
	}
}

// scheduleRefetchLocked starts one background re-fetch of key unless one is
// already queued. Caller must hold c.mu.
func (c *Cache) scheduleRefetchLocked(key Key, e *entry) {
	if e.queued || e.fetch == nil {
		return
	}
	e.queued = true
	fetch := e.fetch

	go func() {
		c.mu.Lock()
		e.queued = false
		c.mu.Unlock()

		ctx, cancel := context.WithTimeout(c.base, c.refetchTimeout)
		defer cancel()
		if _, err := c.load(ctx, key, fetch); err != nil {
			c.logger.Warn("background refetch failed",
				zap.String("key", key.String()),
				zap.Error(err))
		}
	}()
}

// Mount registers a consumer of key. The returned channel receives a value
// whenever fresh rows for key are stored; it is closed by the returned
// unmount function. Mounting marks the entry stale so the consumer's next Get
// re-fetches.
func (c *Cache) Mount(key Key, fetch Fetcher) (<-chan struct{}, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(key)
	e.fetch = fetch
	e.gen++
	e.stale = true
	e.lastAccess = c.clock.Now()

	c.nextSub++
	id := c.nextSub
	ch := make(chan struct{}, 1)
	e.subs[id] = ch

	var once sync.Once
	unmount := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if cur, ok := c.entries[key]; ok {
				delete(cur.subs, id)
				cur.lastAccess = c.clock.Now()
			}
			close(ch)
		})
	}
	return ch, unmount
}

// Sweep drops entries that have no mounted consumers, are not being fetched,
// and have not been read for the grace period. Returns the number dropped.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	n := 0
	for k, e := range c.entries {
		if len(e.subs) > 0 || e.fetching || e.queued {
			continue
		}
		if now.Sub(e.lastAccess) < c.grace {
			continue
		}
		delete(c.entries, k)
		n++
	}
	if n > 0 {
		c.evictions.Add(int64(n))
		cacheEvictions.Add(float64(n))
		c.logger.Debug("swept idle cache entries", zap.Int("count", n))
	}
	cacheEntries.Set(float64(len(c.entries)))
	return n
}

// Run sweeps every half grace period until ctx is done.
func (c *Cache) Run(ctx context.Context) {
	interval := c.grace / 2
	if interval <= 0 {
		interval = time.Second
	}
	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			c.Sweep()
		}
	}
}

// Stats returns current counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Entries:       len(c.entries),
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Fetches:       c.fetches.Load(),
		Invalidations: c.invalidations.Load(),
		Evictions:     c.evictions.Load(),
	}
	for _, e := range c.entries {
		if len(e.subs) > 0 {
			s.Mounted++
		}
	}
	return s
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
