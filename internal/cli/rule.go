package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// NewRuleCmd создаёт группу команд для управления правилами.
func NewRuleCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Manage notification rules",
	}

	cmd.AddCommand(
		newRuleListCmd(clientFn, outputFn),
		newRuleCreateCmd(clientFn, outputFn),
		newRuleShowCmd(clientFn, outputFn),
		newRuleUpdateCmd(clientFn, outputFn),
		newRuleDeleteCmd(clientFn, outputFn),
		newRuleEnableCmd(clientFn, outputFn),
		newRuleDisableCmd(clientFn, outputFn),
		newRuleTestCmd(clientFn, outputFn),
	)

	return cmd
}

func ruleHeaders() []string {
	return []string{"ID", "NAME", "ACTIVE", "TRIGGER", "TRIGGERED", "LAST_TRIGGERED"}
}

func ruleRow(r RuleResponse) []string {
	trigger := ""
	if t, ok := r.Trigger["type"].(string); ok {
		trigger = t
	}
	if e, ok := r.Trigger["event"].(string); ok {
		trigger = trigger + "/" + e
	}
	return []string{
		r.ID,
		r.Name,
		strconv.FormatBool(r.IsActive),
		trigger,
		strconv.FormatInt(r.TriggerCount, 10),
		r.LastTriggered,
	}
}

func newRuleListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var active string
	var triggerType string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			opts := ListRulesOpts{
				TriggerType: triggerType,
				Limit:       limit,
			}
			if cmd.Flags().Changed("active") {
				b, err := strconv.ParseBool(active)
				if err != nil {
					return fmt.Errorf("invalid value for --active: %s", active)
				}
				opts.IsActive = &b
			}

			rules, err := client.ListRules(opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(rules))
			for i, r := range rules {
				rows[i] = ruleRow(r)
			}

			out.Print(ruleHeaders(), rows, rules)
			return nil
		},
	}

	cmd.Flags().StringVar(&active, "active", "", "Filter by active status (true/false)")
	cmd.Flags().StringVar(&triggerType, "trigger-type", "", "Filter by trigger type")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newRuleCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var ruleFile string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a rule from JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := os.ReadFile(ruleFile)
			if err != nil {
				return fmt.Errorf("failed to read rule file: %w", err)
			}

			// Валидируем что это валидный JSON
			if !json.Valid(data) {
				return fmt.Errorf("rule file is not valid JSON")
			}

			rule, err := client.CreateRule(json.RawMessage(data))
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Rule created: %s", rule.ID))
			out.Print(ruleHeaders(), [][]string{ruleRow(*rule)}, rule)
			return nil
		},
	}

	cmd.Flags().StringVar(&ruleFile, "file", "", "Path to rule JSON file (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newRuleShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show rule details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			rule, err := client.GetRule(args[0])
			if err != nil {
				return err
			}

			out.Print(ruleHeaders(), [][]string{ruleRow(*rule)}, rule)
			return nil
		},
	}
}

func newRuleUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var ruleFile string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a rule from JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := os.ReadFile(ruleFile)
			if err != nil {
				return fmt.Errorf("failed to read rule file: %w", err)
			}

			if !json.Valid(data) {
				return fmt.Errorf("rule file is not valid JSON")
			}

			rule, err := client.UpdateRule(args[0], json.RawMessage(data))
			if err != nil {
				return err
			}

			out.Success("Rule updated")
			out.Print(ruleHeaders(), [][]string{ruleRow(*rule)}, rule)
			return nil
		},
	}

	cmd.Flags().StringVar(&ruleFile, "file", "", "Path to rule JSON file (required)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newRuleDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteRule(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Rule deleted: %s", args[0]))
			return nil
		},
	}
}

func newRuleEnableCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "enable ID",
		Short: "Enable a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			rule, err := client.EnableRule(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Rule enabled: %s", rule.ID))
			return nil
		},
	}
}

func newRuleDisableCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "disable ID",
		Short: "Disable a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			rule, err := client.DisableRule(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Rule disabled: %s", rule.ID))
			return nil
		},
	}
}

func newRuleTestCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var eventFile string

	cmd := &cobra.Command{
		Use:   "test ID",
		Short: "Test a rule against a sample event without persisting anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := os.ReadFile(eventFile)
			if err != nil {
				return fmt.Errorf("failed to read event file: %w", err)
			}

			if !json.Valid(data) {
				return fmt.Errorf("event file is not valid JSON")
			}

			result, err := client.TestRule(args[0], json.RawMessage(data))
			if err != nil {
				return err
			}

			if result.TriggerMatched && result.ConditionsPassed {
				out.Success("Rule would fire")
			} else {
				out.Success("Rule would not fire")
			}

			rows := [][]string{{
				strconv.FormatBool(result.TriggerMatched),
				strconv.FormatBool(result.ConditionsPassed),
				result.RenderError,
			}}
			out.Print([]string{"TRIGGER_MATCHED", "CONDITIONS_PASSED", "RENDER_ERROR"}, rows, result)

			if result.Notification != nil {
				n := result.Notification
				out.Print(
					[]string{"TITLE", "MESSAGE", "PRIORITY", "RECIPIENTS"},
					[][]string{{n.Title, n.Message, n.Priority, n.RecipientType}},
					n,
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&eventFile, "event-file", "", "Path to sample event JSON file (required)")
	cmd.MarkFlagRequired("event-file")

	return cmd
}
