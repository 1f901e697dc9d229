package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/cella-health/cella/pkg/types"
)

// Store reads and writes the registered tables over a database/sql handle.
// It implements types.Reader and types.Writer. Store does not cache; callers
// that need caching go through aggregate.Query.
type Store struct {
	db      *sql.DB
	dialect Dialect
	clock   clockwork.Clock
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to stamp created_at and updated_at.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// New returns a Store over db using dialect d.
func New(db *sql.DB, d Dialect, opts ...Option) *Store {
	s := &Store{
		db:      db,
		dialect: d,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying handle for seeding and tests.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate creates every registered table and index that does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range SchemaDDL(s.dialect) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Select returns all rows of table, filtered by owner when the table has an
// owner column. Row order is whatever the database returns.
func (s *Store) Select(ctx context.Context, table types.TableName, owner types.OwnerFilter) ([]types.Row, error) {
	schema, err := types.Lookup(table)
	if err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if scoped := owner.ScopeFor(schema); scoped.IsSet() {
		args = append(args, string(scoped))
		where = append(where, quote(schema.OwnerColumn)+" = "+s.dialect.Placeholder(len(args)))
	}
	return s.query(ctx, schema, where, args)
}

// SelectDay returns the rows of table whose day column falls on the UTC
// calendar day of day.
func (s *Store) SelectDay(ctx context.Context, table types.TableName, owner types.OwnerFilter, day time.Time) ([]types.Row, error) {
	schema, err := types.Lookup(table)
	if err != nil {
		return nil, err
	}
	if !schema.HasDay() {
		return nil, fmt.Errorf("%w: %s", types.ErrNoDayColumn, table)
	}

	day = day.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	var (
		where []string
		args  []any
	)
	if scoped := owner.ScopeFor(schema); scoped.IsSet() {
		args = append(args, string(scoped))
		where = append(where, quote(schema.OwnerColumn)+" = "+s.dialect.Placeholder(len(args)))
	}
	args = append(args, s.dialect.EncodeTime(start))
	where = append(where, quote(schema.DayColumn)+" >= "+s.dialect.Placeholder(len(args)))
	args = append(args, s.dialect.EncodeTime(end))
	where = append(where, quote(schema.DayColumn)+" < "+s.dialect.Placeholder(len(args)))

	return s.query(ctx, schema, where, args)
}

// Insert stores row in table and returns the persisted row.
func (s *Store) Insert(ctx context.Context, table types.TableName, row types.Row) (types.Row, error) {
	schema, err := types.Lookup(table)
	if err != nil {
		return nil, err
	}
	if len(row) == 0 {
		return nil, types.ErrInvalidData
	}

	row = row.Clone()
	if v, ok := row[types.ColumnID]; !ok || v == nil || v == "" {
		row[types.ColumnID] = uuid.Must(uuid.NewV7()).String()
	} else if _, isString := v.(string); !isString {
		return nil, types.ErrInvalidID
	}
	if _, ok := schema.Column(types.ColumnCreatedAt); ok && row[types.ColumnCreatedAt] == nil {
		row[types.ColumnCreatedAt] = s.clock.Now().UTC()
	}

	cols, args, err := s.encodeRow(schema, row)
	if err != nil {
		return nil, err
	}

	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
		placeholders[i] = s.dialect.Placeholder(i + 1)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(string(table)), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, err)
	}
	return s.get(ctx, schema, row.ID())
}

// Update applies patch to the row of table with the given id and returns the
// persisted row.
func (s *Store) Update(ctx context.Context, table types.TableName, id string, patch types.Row) (types.Row, error) {
	schema, err := types.Lookup(table)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, types.ErrInvalidID
	}

	patch = patch.Clone()
	if v, ok := patch[types.ColumnID]; ok {
		if v != id {
			return nil, fmt.Errorf("%w: id cannot be changed", types.ErrInvalidData)
		}
		delete(patch, types.ColumnID)
	}
	if len(patch) == 0 {
		return nil, types.ErrInvalidData
	}
	if _, ok := schema.Column(types.ColumnUpdatedAt); ok && patch[types.ColumnUpdatedAt] == nil {
		patch[types.ColumnUpdatedAt] = s.clock.Now().UTC()
	}

	cols, args, err := s.encodeRow(schema, patch)
	if err != nil {
		return nil, err
	}

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = quote(c) + " = " + s.dialect.Placeholder(i+1)
	}
	args = append(args, id)
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		quote(string(table)), strings.Join(sets, ", "), quote(types.ColumnID), s.dialect.Placeholder(len(args)))

	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", table, err)
	}
	if n == 0 {
		return nil, types.ErrNotFound
	}
	return s.get(ctx, schema, id)
}

// encodeRow validates row's columns against schema and returns the sorted
// column names with their bound values.
func (s *Store) encodeRow(schema types.Schema, row types.Row) ([]string, []any, error) {
	cols := make([]string, 0, len(row))
	for name := range row {
		if _, ok := schema.Column(name); !ok {
			return nil, nil, fmt.Errorf("%w: %s.%s", types.ErrUnknownColumn, schema.Name, name)
		}
		cols = append(cols, name)
	}
	slices.Sort(cols)

	args := make([]any, len(cols))
	for i, name := range cols {
		c, _ := schema.Column(name)
		v, err := s.encodeValue(c, row[name])
		if err != nil {
			return nil, nil, err
		}
		args[i] = v
	}
	return cols, args, nil
}

func (s *Store) get(ctx context.Context, schema types.Schema, id string) (types.Row, error) {
	rows, err := s.query(ctx, schema,
		[]string{quote(types.ColumnID) + " = " + s.dialect.Placeholder(1)}, []any{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, types.ErrNotFound
	}
	return rows[0], nil
}

func (s *Store) query(ctx context.Context, schema types.Schema, where []string, args []any) ([]types.Row, error) {
	q := "SELECT * FROM " + quote(string(schema.Name))
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", schema.Name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", schema.Name, err)
	}

	out := []types.Row{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", schema.Name, err)
		}
		row := make(types.Row, len(cols))
		for i, name := range cols {
			c, known := schema.Column(name)
			row[name] = decodeValue(c, known, vals[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select %s: %w", schema.Name, err)
	}
	return out, nil
}
