package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/parksafe/parksafe/internal/dispatch"
	"github.com/parksafe/parksafe/internal/model"
	"github.com/spf13/cobra"
)

func newSendCmd(g *globals) *cobra.Command {
	var (
		to      string
		groupID string
	)

	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Send a direct or group message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := g.signedIn()
			if err != nil {
				return err
			}
			defer c.Close()

			req := dispatch.SendMessageRequest{Content: strings.Join(args, " ")}
			if to != "" {
				id, err := uuid.Parse(to)
				if err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
				req.RecipientID = &id
			}
			if groupID != "" {
				id, err := uuid.Parse(groupID)
				if err != nil {
					return fmt.Errorf("invalid --group: %w", err)
				}
				req.GroupID = &id
			}

			msg, err := dispatch.New(c, nil, nil).SendMessage(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent message %s\n", msg.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "recipient user ID")
	cmd.Flags().StringVar(&groupID, "group", "", "group ID")
	cmd.MarkFlagsMutuallyExclusive("to", "group")
	cmd.MarkFlagsOneRequired("to", "group")
	return cmd
}

func newBroadcastCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "broadcast [message]",
		Short: "Send an emergency message to everyone and raise an alert",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := g.signedIn()
			if err != nil {
				return err
			}
			defer c.Close()

			msg, alert, err := dispatch.New(c, nil, nil).BroadcastEmergency(cmd.Context(), strings.Join(args, " "))
			var berr *dispatch.BroadcastError
			if errors.As(err, &berr) {
				fmt.Fprintf(cmd.OutOrStdout(), "🚨 Broadcast %s sent, but the alert could not be raised\n", berr.Message.ID)
				return err
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🚨 Broadcast %s sent, alert %s active\n", msg.ID, alert.ID)
			return nil
		},
	}
}

func newResolveCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [alert-id]",
		Short: "Resolve one of your alerts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid alert id: %w", err)
			}
			c, _, err := g.signedIn()
			if err != nil {
				return err
			}

			alert, err := c.ResolveAlert(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Alert %s is %s\n", alert.ID, alert.Status)
			return nil
		},
	}
}

// messageTarget describes who a message went to
func messageTarget(m *model.Message) string {
	switch {
	case m.RecipientID != nil:
		return "direct"
	case m.GroupID != nil:
		return "group " + m.GroupID.String()[:8]
	default:
		return "everyone"
	}
}
