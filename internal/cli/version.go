package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cella-health/cella/pkg/cella"
)

const modulePath = "github.com/cella-health/cella"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the cella version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"version": cella.Version, "module": modulePath})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cella v%s\nmodule: %s\n", cella.Version, modulePath)
			return nil
		},
	}
}
