package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cella-health/cella/internal/aggregate"
	"github.com/cella-health/cella/internal/cache"
	"github.com/cella-health/cella/pkg/types"
)

func newListCmd() *cobra.Command {
	var owner, day string
	cmd := &cobra.Command{
		Use:   "list <table>",
		Short: "List the rows of a table",
		Long: "List prints the rows of a table as JSON. --owner restricts the rows to one\n" +
			"user for tables that have an owner column; --day restricts them to one UTC\n" +
			"calendar day (YYYY-MM-DD) for tables that have a day column.\n\n" +
			"Valid table names: " + types.TableNamesString(),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := types.ParseTableName(args[0])
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			var rows []types.Row
			if day != "" {
				d, perr := time.Parse(cache.DayLayout, day)
				if perr != nil {
					return fmt.Errorf("invalid --day %q (expected YYYY-MM-DD)", day)
				}
				rows, err = a.query.ReadDay(cmd.Context(), table, types.OwnerFilter(owner), d)
			} else {
				rows, err = a.query.Read(cmd.Context(), table, types.OwnerFilter(owner))
			}
			if err != nil {
				return fmt.Errorf("list %s: %w", table, err)
			}
			return writeJSON(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "user id to filter by")
	cmd.Flags().StringVar(&day, "day", "", "UTC day to filter by (YYYY-MM-DD)")
	return cmd
}

func newBundleCmd() *cobra.Command {
	var view, tableList string
	cmd := &cobra.Command{
		Use:   "bundle <user>",
		Short: "Read several tables for a user at once",
		Long: "Bundle reads a set of tables for one user concurrently and prints\n" +
			"{data, errors, isLoading, isError}. Choose the set with --view or --tables.\n\n" +
			"Example:\n" +
			"  cella bundle warrior-1 --view warrior\n" +
			"  cella bundle warrior-1 --tables medications,medication_logs",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				tables []types.TableName
				err    error
			)
			switch {
			case view != "" && tableList != "":
				return errors.New("use either --view or --tables, not both")
			case view != "":
				tables, err = aggregate.View(view)
			case tableList != "":
				tables, err = types.ParseTableList(tableList)
			default:
				return errors.New("one of --view or --tables is required")
			}
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			bundle, err := a.query.Run(cmd.Context(), types.OwnerFilter(args[0]), tables)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), bundle)
		},
	}
	cmd.Flags().StringVar(&view, "view", "", "named view: warrior, crisis, circle, schedule")
	cmd.Flags().StringVar(&tableList, "tables", "", "comma-separated table names")
	return cmd
}

func newInsertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insert <table> <json>",
		Short: "Insert a row and print it as stored",
		Long: "Insert stores a JSON object in a table. id and created_at are filled in\n" +
			"when absent.\n\n" +
			"Example:\n" +
			`  cella insert hydration_logs '{"user_id":"warrior-1","amount_ml":500}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := types.ParseTableName(args[0])
			if err != nil {
				return err
			}
			row, err := parseRowArg(args[1])
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			stored, err := a.mutator.Insert(cmd.Context(), table, row)
			if err != nil {
				return fmt.Errorf("insert into %s: %w", table, err)
			}
			return writeJSON(cmd.OutOrStdout(), stored)
		},
	}
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <table> <id> <json>",
		Short: "Patch a row and print it as stored",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := types.ParseTableName(args[0])
			if err != nil {
				return err
			}
			patch, err := parseRowArg(args[2])
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			stored, err := a.mutator.Update(cmd.Context(), table, args[1], patch)
			if err != nil {
				if errors.Is(err, types.ErrNotFound) {
					return fmt.Errorf("%s row %q not found", table, args[1])
				}
				return fmt.Errorf("update %s: %w", table, err)
			}
			return writeJSON(cmd.OutOrStdout(), stored)
		},
	}
}
