package sqlite

import "github.com/cella-health/cella/internal/sqlstore"

// SchemaDDL returns the CREATE statements applied on Attach.
func SchemaDDL() []string {
	return sqlstore.SchemaDDL(Dialect)
}
