package types

import (
	"context"
	"errors"
	"time"
)

// Reader fetches rows from a single named table.
type Reader interface {
	// Select returns every row of table. When owner is set and the table
	// declares an owner column, only rows owned by that user are returned.
	// Tables without an owner column ignore owner.
	Select(ctx context.Context, table TableName, owner OwnerFilter) ([]Row, error)

	// SelectDay is Select restricted to rows whose day column falls on the
	// UTC calendar day of day. Returns ErrNoDayColumn for tables that do not
	// declare one.
	SelectDay(ctx context.Context, table TableName, owner OwnerFilter, day time.Time) ([]Row, error)
}

// Writer inserts and updates rows. Callers that render cached data go
// through invalidate.Mutator rather than calling a Writer directly.
type Writer interface {
	// Insert stores row and returns it as persisted. An empty id is replaced
	// by a new UUID v7 and created_at is filled when the table has one.
	Insert(ctx context.Context, table TableName, row Row) (Row, error)

	// Update applies patch to the row with the given id and returns the
	// persisted row. Returns ErrNotFound if no row has that id.
	Update(ctx context.Context, table TableName, id string, patch Row) (Row, error)
}

// Table operation errors.
var (
	ErrNotFound      = errors.New("row not found")
	ErrInvalidID     = errors.New("invalid row ID")
	ErrInvalidData   = errors.New("invalid row data")
	ErrUnknownColumn = errors.New("unknown column")
	ErrNoDayColumn   = errors.New("table has no day column")
)

// Navigation and session errors.
var (
	ErrInvalidState      = errors.New("invalid state value")
	ErrInvalidTransition = errors.New("invalid state transition")
)
