package sqlstore

import (
	"fmt"
	"strings"

	"github.com/cella-health/cella/pkg/types"
)

// SchemaDDL returns the CREATE TABLE and CREATE INDEX statements for every
// registered table in the given dialect. Statements are idempotent.
func SchemaDDL(d Dialect) []string {
	var stmts []string
	for _, s := range types.Schemas() {
		stmts = append(stmts, createTable(d, s))
		stmts = append(stmts, createIndexes(s)...)
	}
	return stmts
}

func createTable(d Dialect, s types.Schema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", quote(string(s.Name)))
	for i, c := range s.Columns {
		fmt.Fprintf(&b, "    %s %s", quote(c.Name), d.ColumnType(c.Kind))
		if c.Name == types.ColumnID {
			b.WriteString(" PRIMARY KEY")
		}
		if i < len(s.Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(");")
	return b.String()
}

func createIndexes(s types.Schema) []string {
	var out []string
	if s.HasOwner() && s.OwnerColumn != types.ColumnID {
		out = append(out, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s);",
			quote("idx_"+string(s.Name)+"_owner"), quote(string(s.Name)), quote(s.OwnerColumn)))
	}
	if s.HasDay() {
		cols := quote(s.DayColumn)
		if s.HasOwner() {
			cols = quote(s.OwnerColumn) + ", " + cols
		}
		out = append(out, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s);",
			quote("idx_"+string(s.Name)+"_day"), quote(string(s.Name)), cols))
	}
	return out
}
