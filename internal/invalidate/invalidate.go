// Package invalidate marks cached reads stale after writes and routes writes
// through the backend so that invalidation only follows confirmed writes.
package invalidate

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/cella-health/cella/internal/cache"
	"github.com/cella-health/cella/pkg/types"
)

// Graph maps a table to the tables whose cached reads depend on it. A write
// to the key table also invalidates every table reachable from it.
type Graph map[types.TableName][]types.TableName

// DefaultGraph returns the dependencies between the standard tables: taking
// a dose changes what the medications screen shows, and membership changes
// alter circle listings.
func DefaultGraph() Graph {
	return Graph{
		types.TableMedicationLogs: {types.TableMedications},
		types.TableCircleMembers:  {types.TableCircles},
		types.TableCircleInvites:  {types.TableCircleMembers},
	}
}

// Closure returns table followed by every table reachable from it, each once.
func (g Graph) Closure(table types.TableName) []types.TableName {
	out := []types.TableName{table}
	for i := 0; i < len(out); i++ {
		for _, dep := range g[out[i]] {
			if !slices.Contains(out, dep) {
				out = append(out, dep)
			}
		}
	}
	return out
}

// Invalidator marks cache entries stale.
type Invalidator struct {
	cache  *cache.Cache
	graph  Graph
	logger *zap.Logger
}

// New returns an Invalidator over c following g. A nil graph means no
// dependencies.
func New(c *cache.Cache, g Graph, logger *zap.Logger) *Invalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invalidator{cache: c, graph: g, logger: logger}
}

// Invalidate marks stale the whole-table and per-day entries of table for
// owner, then those of every dependent table. Tables without an owner column
// are invalidated for all users. Returns the number of entries affected.
func (inv *Invalidator) Invalidate(table types.TableName, owner types.OwnerFilter) int {
	n := 0
	for _, t := range inv.graph.Closure(table) {
		schema, err := types.Lookup(t)
		if err != nil {
			inv.logger.Warn("skipping unknown table in dependency graph", zap.String("table", string(t)))
			continue
		}
		n += inv.cache.InvalidateMatching(t, owner.ScopeFor(schema))
	}
	inv.logger.Debug("invalidated",
		zap.String("table", string(table)),
		zap.String("owner", string(owner)),
		zap.Int("entries", n))
	return n
}

// InvalidateAllOwners marks stale every cached read of table and of its
// dependents, for every owner.
func (inv *Invalidator) InvalidateAllOwners(table types.TableName) int {
	n := 0
	for _, t := range inv.graph.Closure(table) {
		n += inv.cache.InvalidateTable(t)
	}
	inv.logger.Debug("invalidated all owners",
		zap.String("table", string(table)),
		zap.Int("entries", n))
	return n
}

// Mutator writes through a backend and invalidates the written table for the
// row's owner once the write succeeds.
type Mutator struct {
	writer      types.Writer
	invalidator *Invalidator
}

// NewMutator returns a Mutator writing to w.
func NewMutator(w types.Writer, inv *Invalidator) *Mutator {
	return &Mutator{writer: w, invalidator: inv}
}

// Insert stores row and invalidates on success. A failed insert leaves the
// cache untouched.
func (m *Mutator) Insert(ctx context.Context, table types.TableName, row types.Row) (types.Row, error) {
	stored, err := m.writer.Insert(ctx, table, row)
	if err != nil {
		return nil, err
	}
	m.afterWrite(table, stored)
	return stored, nil
}

// Update patches the row with id and invalidates on success. A patch that
// sets the owner column moves the row between users, and the previous owner
// is not known here, so every owner's reads of the table are invalidated.
func (m *Mutator) Update(ctx context.Context, table types.TableName, id string, patch types.Row) (types.Row, error) {
	stored, err := m.writer.Update(ctx, table, id, patch)
	if err != nil {
		return nil, err
	}
	if schema, err := types.Lookup(table); err == nil && schema.HasOwner() {
		if _, moved := patch[schema.OwnerColumn]; moved {
			m.invalidator.InvalidateAllOwners(table)
			return stored, nil
		}
	}
	m.afterWrite(table, stored)
	return stored, nil
}

func (m *Mutator) afterWrite(table types.TableName, stored types.Row) {
	schema, err := types.Lookup(table)
	if err != nil {
		return
	}
	m.invalidator.Invalidate(table, types.OwnerOf(schema, stored))
}

var _ types.Writer = (*Mutator)(nil)
