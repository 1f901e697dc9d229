package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cella-health/cella/internal/aggregate"
	"github.com/cella-health/cella/pkg/types"
)

type tableInfo struct {
	Name        types.TableName `json:"name"`
	OwnerColumn string          `json:"owner_column,omitempty"`
	DayColumn   string          `json:"day_column,omitempty"`
	Columns     []string        `json:"columns"`
}

func newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables, their owner and day columns, and the named views",
		RunE: func(cmd *cobra.Command, args []string) error {
			schemas := types.Schemas()
			if flags.jsonMode {
				out := struct {
					Tables []tableInfo                  `json:"tables"`
					Views  map[string][]types.TableName `json:"views"`
				}{Views: aggregate.Views}
				for _, s := range schemas {
					out.Tables = append(out.Tables, tableInfo{s.Name, s.OwnerColumn, s.DayColumn, s.ColumnNames()})
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TABLE\tOWNER\tDAY")
			for _, s := range schemas {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, dash(s.OwnerColumn), dash(s.DayColumn))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout())
			for _, name := range aggregate.ViewNames() {
				fmt.Fprintf(cmd.OutOrStdout(), "view %s: %v\n", name, aggregate.Views[name])
			}
			return nil
		},
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
