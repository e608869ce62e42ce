package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewExecutionCmd создаёт группу команд для просмотра записей исполнения.
func NewExecutionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execution",
		Short: "Inspect rule executions",
	}

	cmd.AddCommand(
		newExecutionListCmd(clientFn, outputFn),
		newExecutionShowCmd(clientFn, outputFn),
	)

	return cmd
}

func executionHeaders() []string {
	return []string{"ID", "RULE_ID", "STATUS", "RESULT", "TIME_MS", "EXECUTED"}
}

func executionRow(e ExecutionResponse) []string {
	return []string{
		e.ID,
		e.RuleID,
		e.Status,
		e.Result,
		strconv.FormatInt(e.ExecutionTimeMs, 10),
		e.ExecutedAt,
	}
}

func newExecutionListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var ruleID string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rule executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			execs, err := client.ListExecutions(ListExecutionsOpts{
				RuleID: ruleID,
				Status: status,
				Limit:  limit,
			})
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

	cmd.Flags().StringVar(&ruleID, "rule-id", "", "Filter by rule ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (SUCCESS, FAILURE, SKIPPED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newExecutionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show execution details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exec, err := client.GetExecution(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "EVENT_ID", "RULE_ID", "STATUS", "RESULT", "ERROR", "TIME_MS", "EXECUTED"},
				[][]string{{exec.ID, exec.EventID, exec.RuleID, exec.Status, exec.Result, exec.ErrorMessage, strconv.FormatInt(exec.ExecutionTimeMs, 10), exec.ExecutedAt}},
				exec,
			)
			return nil
		},
	}
}

// NewNotificationCmd создаёт группу команд для просмотра уведомлений.
func NewNotificationCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notification",
		Short: "Inspect notifications",
	}

	cmd.AddCommand(
		newNotificationListCmd(clientFn, outputFn),
		newNotificationShowCmd(clientFn, outputFn),
	)

	return cmd
}

func newNotificationListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var recipientID string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications for a recipient",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			items, err := client.ListNotifications(recipientID, limit)
			if err != nil {
				return err
			}

			headers := []string{"ID", "TITLE", "TYPE", "PRIORITY", "CREATED"}
			rows := make([][]string, len(items))
			for i, n := range items {
				rows[i] = []string{n.ID, n.Title, n.Type, n.Priority, n.CreatedAt}
			}

			out.Print(headers, rows, items)
			return nil
		},
	}

	cmd.Flags().StringVar(&recipientID, "recipient", "", "Recipient ID (required)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")
	cmd.MarkFlagRequired("recipient")

	return cmd
}

func newNotificationShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show notification details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			n, err := client.GetNotification(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "TITLE", "MESSAGE", "PRIORITY", "RECIPIENTS", "RULE_ID", "CREATED"},
				[][]string{{n.ID, n.Title, n.Message, n.Priority, n.RecipientType, n.RuleID, n.CreatedAt}},
				n,
			)
			return nil
		},
	}
}

// NewStatsCmd создаёт команду сводной статистики.
func NewStatsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show processing statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			stats, err := client.GetStats()
			if err != nil {
				return err
			}

			headers := []string{"EVENTS_PENDING", "EVENTS_PROCESSED", "EVENTS_FAILED", "EXECUTIONS", "AVG_TIME_MS"}
			rows := [][]string{{
				strconv.FormatInt(stats.Events["PENDING"], 10),
				strconv.FormatInt(stats.Events["PROCESSED"], 10),
				strconv.FormatInt(stats.Events["FAILED"], 10),
				strconv.FormatInt(stats.Executions.Total, 10),
				fmt.Sprintf("%.1f", stats.Executions.AvgTimeMs),
			}}

			out.Print(headers, rows, stats)
			return nil
		},
	}
}
