// Package cli implements the cella command-line interface.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	debug     bool
}

var flags rootFlags

// NewRootCmd creates the top-level "cella" command with global flags and all
// subcommands registered.
func NewRootCmd() *cobra.Command {
	flags = rootFlags{}

	root := &cobra.Command{
		Use:   "cella",
		Short: "Cached health-tracking data for sickle cell warriors and caregivers",
		Long: "Cella reads and writes hydration, medication, meal, crisis, mood and\n" +
			"circle data through a query cache that refreshes after every write.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: ./.cella or the platform config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: ./.cella-db or the platform data dir)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "verbose development logging")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newTablesCmd(),
		newListCmd(),
		newBundleCmd(),
		newInsertCmd(),
		newUpdateCmd(),
		newServeCmd(),
		newAskCmd(),
		newSendCodeCmd(),
		newFlowCmd(),
		newExportCmd(),
		newImportCmd(),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(exitUserError)
	}
	os.Exit(exitSuccess)
}

// writeJSON writes v to w as indented JSON.
func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// parseRowArg decodes a JSON object given on the command line.
func parseRowArg(arg string) (map[string]any, error) {
	var row map[string]any
	if err := json.Unmarshal([]byte(arg), &row); err != nil {
		return nil, fmt.Errorf("invalid JSON object %q: %w", arg, err)
	}
	return row, nil
}
