// Package sqlite implements the SQLite storage backend for Cella. It is the
// local and test backend; production deployments use internal/postgres.
package sqlite

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cella-health/cella/internal/sqlstore"
	"github.com/cella-health/cella/pkg/types"
)

// DBFileName is the database file created inside the data directory.
const DBFileName = "cella.db"

// timeLayout is fixed width so that stored times compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Dialect is the SQLite dialect: "?" placeholders, TEXT times and JSON.
var Dialect = sqlstore.Dialect{
	Name:        types.BackendSQLite,
	Placeholder: sqlstore.QuestionPlaceholder,
	ColumnType:  columnType,
	EncodeTime:  encodeTime,
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...sqlstore.Option) *sqlstore.Backend {
	return sqlstore.NewBackend(Dialect, open, opts...)
}

// open creates DataDir if needed and opens DataDir/cella.db. Unlike a cache
// database the file is kept across attaches.
func open(config types.Config) (*sql.DB, error) {
	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	dsn := "file:" + filepath.Join(dataDir, DBFileName) + "?" + q.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return db, nil
}

func columnType(kind types.ColumnKind) string {
	switch kind {
	case types.KindInteger, types.KindBool:
		return "INTEGER"
	case types.KindReal:
		return "REAL"
	default:
		// Times and JSON are stored as text.
		return "TEXT"
	}
}

func encodeTime(t time.Time) any {
	return t.UTC().Format(timeLayout)
}
