package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cella-health/cella/internal/flow"
)

func newFlowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flow <name> [state action]",
		Short: "Show a navigation flow or step it",
		Long: "With only a flow name, flow prints the initial state and the actions\n" +
			"available from each state. With a state and an action it prints the next\n" +
			"state and screen.\n\n" +
			"Flows: onboarding, caregiver, circle",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 && len(args) != 3 {
				return fmt.Errorf("expected <name> or <name> <state> <action>, got %d args", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := flow.Lookup(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 3 {
				state, screen, err := m.Next(flow.State(args[1]), flow.Action(args[2]))
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return writeJSON(out, map[string]string{"state": string(state), "screen": string(screen)})
				}
				fmt.Fprintf(out, "%s (%s)\n", state, screen)
				return nil
			}

			initial, screen := m.Initial()
			fmt.Fprintf(out, "%s starts at %s (%s)\n", m.Name(), initial, screen)
			for _, s := range m.States() {
				fmt.Fprintf(out, "  %s: %v\n", s, m.Actions(s))
			}
			return nil
		},
	}
}
