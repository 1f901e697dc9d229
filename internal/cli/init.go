package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cella-health/cella/internal/config"
	"github.com/cella-health/cella/internal/paths"
	"github.com/cella-health/cella/internal/seed"
	"github.com/cella-health/cella/pkg/store"
)

func newInitCmd() *cobra.Command {
	var (
		demo     bool
		demoUser string
		demoName string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize cella storage",
		Long: "Create the configuration and data directories, write a default config.yaml,\n" +
			"and create every table. With --demo, also seed a demo warrior.",
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, err := paths.ResolveConfigDir(flags.configDir)
			if err != nil {
				return fmt.Errorf("resolve config dir: %w", err)
			}
			dataDir, err := paths.ResolveDataDir(flags.dataDir, "")
			if err != nil {
				return fmt.Errorf("resolve data dir: %w", err)
			}
			if err := config.WriteDefault(configDir, dataDir); err != nil {
				return err
			}
			settings, err := config.Load(configDir)
			if err != nil {
				return err
			}
			if settings.DataDir != "" && flags.dataDir == "" {
				dataDir = settings.DataDir
			}

			backend, err := store.Open(settings.StoreConfig(dataDir))
			if err != nil {
				return fmt.Errorf("initialize storage: %w", err)
			}
			defer backend.Detach()

			if demo {
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()
				wrote, err := seed.Warrior(ctx, backend, demoUser, demoName, time.Now())
				if err != nil {
					return err
				}
				if wrote {
					fmt.Fprintf(cmd.OutOrStdout(), "Seeded demo warrior %s\n", demoUser)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Cella initialized (config: %s, data: %s)\n", configDir, dataDir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "seed demo data")
	cmd.Flags().StringVar(&demoUser, "user", "demo-warrior", "user id for demo data")
	cmd.Flags().StringVar(&demoName, "name", "Demo Warrior", "full name for demo data")
	return cmd
}
