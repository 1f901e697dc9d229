// Package sqlstore implements the table reader and writer shared by the
// database/sql backends. Queries are built from the static table registry in
// pkg/types; identifiers never come from caller input.
package sqlstore

import (
	"strconv"
	"strings"
	"time"

	"github.com/cella-health/cella/pkg/types"
)

// Dialect captures what differs between the SQL engines behind a Store.
type Dialect struct {
	// Name is the backend name (types.BackendSQLite, types.BackendPostgres).
	Name string

	// Placeholder returns the bind parameter for the n-th argument (1-based).
	Placeholder func(n int) string

	// ColumnType returns the DDL type for a column kind.
	ColumnType func(kind types.ColumnKind) string

	// EncodeTime converts a time into the value bound for time columns.
	EncodeTime func(t time.Time) any
}

// QuestionPlaceholder renders "?" for every argument.
func QuestionPlaceholder(int) string { return "?" }

// DollarPlaceholder renders "$1", "$2", ...
func DollarPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

// quote renders a registry identifier as a quoted SQL identifier.
func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
