// Package postgres implements the Postgres storage backend for Cella, the
// production store behind the hosted backend. It uses pgx through
// database/sql.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/cella-health/cella/internal/sqlstore"
	"github.com/cella-health/cella/pkg/types"
)

const driverName = "pgx"

// Dialect is the Postgres dialect: "$n" placeholders, timestamptz and jsonb.
var Dialect = sqlstore.Dialect{
	Name:        types.BackendPostgres,
	Placeholder: sqlstore.DollarPlaceholder,
	ColumnType:  columnType,
	EncodeTime:  encodeTime,
}

// sqlOpen is swapped in tests.
var sqlOpen = sql.Open

// NewBackend creates a new Postgres backend instance.
// The backend is not attached; call Attach with a Config carrying a DSN.
func NewBackend(opts ...sqlstore.Option) *sqlstore.Backend {
	return sqlstore.NewBackend(Dialect, open, opts...)
}

func open(config types.Config) (*sql.DB, error) {
	db, err := sqlOpen(driverName, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func columnType(kind types.ColumnKind) string {
	switch kind {
	case types.KindInteger:
		return "BIGINT"
	case types.KindReal:
		return "DOUBLE PRECISION"
	case types.KindBool:
		return "BOOLEAN"
	case types.KindTime:
		return "TIMESTAMPTZ"
	case types.KindJSON:
		return "JSONB"
	default:
		return "TEXT"
	}
}

func encodeTime(t time.Time) any {
	return t.UTC()
}
