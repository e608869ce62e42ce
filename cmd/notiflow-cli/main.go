// Notiflow CLI — инструмент командной строки для управления
// правилами, событиями и уведомлениями через HTTP API.
//
// Использование:
//
//	notiflow [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	rule          Управление правилами
//	event         Управление событиями
//	execution     Просмотр записей исполнения
//	notification  Просмотр уведомлений
//	stats         Сводная статистика
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Notiflow/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "notiflow",
		Short:         "Notiflow CLI — notification rule engine tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewRuleCmd(clientFn, outputFn),
		cli.NewEventCmd(clientFn, outputFn),
		cli.NewExecutionCmd(clientFn, outputFn),
		cli.NewNotificationCmd(clientFn, outputFn),
		cli.NewStatsCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
