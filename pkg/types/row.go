package types

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Row is one table row keyed by column name. The data layer passes rows
// through unchanged; it does not validate them against the table schema.
type Row map[string]any

// Text returns the value of column as a string, or "" when the column is
// missing or not a string.
func (r Row) Text(column string) string {
	s, _ := r[column].(string)
	return s
}

// ID returns the row's id column.
func (r Row) ID() string {
	return r.Text(ColumnID)
}

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// CloneRows returns a copy of rows with each row shallow-copied. The result
// is never nil.
func CloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// OwnerFilter is the user id that scopes a read to one user's rows. The
// zero value means no filter.
type OwnerFilter string

// NoOwner is the absent filter.
const NoOwner OwnerFilter = ""

// IsSet reports whether the filter restricts reads.
func (o OwnerFilter) IsSet() bool {
	return o != NoOwner
}

// ScopeFor returns the filter that actually applies to table: tables without
// an owner column are always read unfiltered.
func (o OwnerFilter) ScopeFor(s Schema) OwnerFilter {
	if !s.HasOwner() {
		return NoOwner
	}
	return o
}

// OwnerOf returns the owner of row according to the table's owner column.
func OwnerOf(s Schema, row Row) OwnerFilter {
	if !s.HasOwner() {
		return NoOwner
	}
	return OwnerFilter(row.Text(s.OwnerColumn))
}

// Bundle is the merged result of one aggregate query: one entry per
// requested table. A table whose read failed maps to an empty slice and has
// its error recorded in Errors.
type Bundle struct {
	Rows      map[TableName][]Row
	Errors    map[TableName]error
	IsLoading bool
	IsError   bool
}

// NewBundle returns a bundle with an empty entry for every table in tables.
func NewBundle(tables []TableName) *Bundle {
	b := &Bundle{
		Rows:   make(map[TableName][]Row, len(tables)),
		Errors: make(map[TableName]error),
	}
	for _, t := range tables {
		b.Rows[t] = []Row{}
	}
	return b
}

// Get returns the rows for table, never nil.
func (b *Bundle) Get(table TableName) []Row {
	if rows, ok := b.Rows[table]; ok && rows != nil {
		return rows
	}
	return []Row{}
}

// Err returns the read error recorded for table, if any.
func (b *Bundle) Err(table TableName) error {
	return b.Errors[table]
}

// Tables returns the bundle keys in sorted order.
func (b *Bundle) Tables() []TableName {
	out := make([]TableName, 0, len(b.Rows))
	for t := range b.Rows {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Clone returns a deep enough copy of b that the caller may mutate maps and
// row slices without affecting b.
func (b *Bundle) Clone() *Bundle {
	out := &Bundle{
		Rows:      make(map[TableName][]Row, len(b.Rows)),
		Errors:    make(map[TableName]error, len(b.Errors)),
		IsLoading: b.IsLoading,
		IsError:   b.IsError,
	}
	for t, rows := range b.Rows {
		out.Rows[t] = CloneRows(rows)
	}
	for t, err := range b.Errors {
		out.Errors[t] = err
	}
	return out
}

// bundleJSON is the wire form of a Bundle.
type bundleJSON struct {
	Data      map[TableName][]Row  `json:"data"`
	Errors    map[TableName]string `json:"errors,omitempty"`
	IsLoading bool                 `json:"isLoading"`
	IsError   bool                 `json:"isError"`
}

// MarshalJSON encodes the bundle with errors rendered as messages.
func (b *Bundle) MarshalJSON() ([]byte, error) {
	out := bundleJSON{
		Data:      make(map[TableName][]Row, len(b.Rows)),
		IsLoading: b.IsLoading,
		IsError:   b.IsError,
	}
	for t := range b.Rows {
		out.Data[t] = b.Get(t)
	}
	if len(b.Errors) > 0 {
		out.Errors = make(map[TableName]string, len(b.Errors))
		for t, err := range b.Errors {
			out.Errors[t] = err.Error()
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal bundle: %w", err)
	}
	return data, nil
}
