package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cella-health/cella/internal/assistant"
	"github.com/cella-health/cella/pkg/types"
)

func newAskCmd() *cobra.Command {
	var messageType string
	cmd := &cobra.Command{
		Use:   "ask <user> <question...>",
		Short: "Ask the Cella assistant a question",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mt, err := assistant.ParseMessageType(messageType)
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			user, question := args[0], strings.Join(args[1:], " ")
			reply, askErr := a.assistant.Ask(cmd.Context(), user, question, mt)
			if _, err := a.mutator.Insert(cmd.Context(), types.TableChatLogs, types.Row{
				"user_id":      user,
				"message_type": string(mt),
				"question":     question,
				"response":     reply,
			}); err != nil {
				return fmt.Errorf("record chat: %w", err)
			}

			if flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"response": reply, "fallback": askErr != nil})
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}
	cmd.Flags().StringVar(&messageType, "type", string(assistant.Question), "message type: question, emergency, general")
	return cmd
}

func newSendCodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send-code <email>",
		Short: "Email a six-digit verification code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			code, err := a.mailer.Dispatch(args[0])
			if err != nil {
				return err
			}
			a.mailer.Wait()
			if flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"email": args[0], "code": code})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Verification code for %s: %s\n", args[0], code)
			return nil
		},
	}
}
