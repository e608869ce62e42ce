package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewEventCmd создаёт группу команд для управления событиями.
func NewEventCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Manage events",
	}

	cmd.AddCommand(
		newEventSendCmd(clientFn, outputFn),
		newEventListCmd(clientFn, outputFn),
		newEventShowCmd(clientFn, outputFn),
		newEventExecutionsCmd(clientFn, outputFn),
		newEventReprocessCmd(clientFn, outputFn),
	)

	return cmd
}

func eventHeaders() []string {
	return []string{"ID", "TYPE", "EVENT", "SOURCE", "STATUS", "TRIGGERED", "OCCURRED"}
}

func eventRow(e EventResponse) []string {
	return []string{
		e.ID,
		e.Type,
		e.Event,
		e.Source,
		e.Status,
		fmt.Sprintf("%d/%d", e.RulesTriggered, e.NotificationsCreated),
		e.OccurredAt,
	}
}

func newEventSendCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var eventType string
	var eventName string
	var source string
	var userID string
	var entityType string
	var entityID string
	var payload []string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send an event for processing",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := IngestEventRequest{
				Type:       eventType,
				Event:      eventName,
				Source:     source,
				UserID:     userID,
				EntityType: entityType,
				EntityID:   entityID,
			}

			if len(payload) > 0 {
				req.Payload = make(map[string]any)
				for _, kv := range payload {
					parts := strings.SplitN(kv, "=", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid payload format %q, expected KEY=VALUE", kv)
					}
					req.Payload[parts[0]] = parts[1]
				}
			}

			event, err := client.SendEvent(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Event accepted: %s", event.ID))
			out.Print(eventHeaders(), [][]string{eventRow(*event)}, event)
			return nil
		},
	}

	cmd.Flags().StringVar(&eventType, "type", "", "Event category (required)")
	cmd.Flags().StringVar(&eventName, "event", "", "Event name (required)")
	cmd.Flags().StringVar(&source, "source", "", "Originating system (required)")
	cmd.Flags().StringVar(&userID, "user-id", "", "User associated with the event")
	cmd.Flags().StringVar(&entityType, "entity-type", "", "Related entity type")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "Related entity ID")
	cmd.Flags().StringSliceVar(&payload, "data", nil, "Payload values as KEY=VALUE (repeatable)")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("event")
	cmd.MarkFlagRequired("source")

	return cmd
}

func newEventListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var status string
	var eventType string
	var source string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			events, err := client.ListEvents(ListEventsOpts{
				Status: status,
				Type:   eventType,
				Source: source,
				Limit:  limit,
			})
			if err != nil {
				return err
			}

			rows := make([][]string, len(events))
			for i, e := range events {
				rows[i] = eventRow(e)
			}

			out.Print(eventHeaders(), rows, events)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, PROCESSING, PROCESSED, FAILED)")
	cmd.Flags().StringVar(&eventType, "type", "", "Filter by event category")
	cmd.Flags().StringVar(&source, "source", "", "Filter by source")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newEventShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show event details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			event, err := client.GetEvent(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "TYPE", "EVENT", "SOURCE", "STATUS", "ERROR", "OCCURRED", "PROCESSED"},
				[][]string{{event.ID, event.Type, event.Event, event.Source, event.Status, event.ProcessingError, event.OccurredAt, event.ProcessedAt}},
				event,
			)
			return nil
		},
	}
}

func newEventExecutionsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "executions EVENT_ID",
		Short: "List rule executions for an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			execs, err := client.ListEventExecutions(args[0])
			if err != nil {
				return err
			}

			rows := make([][]string, len(execs))
			for i, e := range execs {
				rows[i] = executionRow(e)
			}

			out.Print(executionHeaders(), rows, execs)
			return nil
		},
	}
}

func newEventReprocessCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "reprocess ID",
		Short: "Requeue a failed event for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			event, err := client.ReprocessEvent(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Event requeued: %s", event.ID))
			return nil
		},
	}
}
