package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cella-health/cella/internal/snapshot"
	"github.com/cella-health/cella/pkg/types"
)

// snapshotTables parses --tables, defaulting to every table.
func snapshotTables(list string) ([]types.TableName, error) {
	if list == "" {
		return types.StandardTableNames, nil
	}
	return types.ParseTableList(list)
}

func newExportCmd() *cobra.Command {
	var owner, tableList string
	cmd := &cobra.Command{
		Use:   "export <dir>",
		Short: "Export tables to JSONL files",
		Long: "Export writes one <table>.jsonl file per table into dir. --owner limits\n" +
			"owned tables to one user's rows; global tables are exported whole.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := snapshotTables(tableList)
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := snapshot.Export(cmd.Context(), a.backend, args[0], types.OwnerFilter(owner), tables, a.logger)
			if err != nil {
				return err
			}
			return printSnapshot(cmd, "exported", tables, res)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "export only this user's rows")
	cmd.Flags().StringVar(&tableList, "tables", "", "comma-separated tables (default: all)")
	return cmd
}

func newImportCmd() *cobra.Command {
	var tableList string
	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Import tables from JSONL files",
		Long:  "Import inserts the rows of each <table>.jsonl in dir. Missing files are skipped.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := snapshotTables(tableList)
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := snapshot.Import(cmd.Context(), a.mutator, args[0], tables, a.logger)
			if err != nil {
				return err
			}
			return printSnapshot(cmd, "imported", tables, res)
		},
	}
	cmd.Flags().StringVar(&tableList, "tables", "", "comma-separated tables (default: all)")
	return cmd
}

func printSnapshot(cmd *cobra.Command, verb string, tables []types.TableName, res *snapshot.Result) error {
	if flags.jsonMode {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	for _, t := range tables {
		if n, ok := res.Rows[t]; ok {
			line := fmt.Sprintf("%s %d %s rows", verb, n, t)
			if s := res.Skipped[t]; s > 0 {
				line += fmt.Sprintf(" (%d malformed lines skipped)", s)
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
	}
	return nil
}
