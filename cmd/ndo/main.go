// ndo — инструмент командной строки для процедур.
//
// Использование:
//
//	ndo [--api-url URL] [--json] [--verbose] <command> [flags]
//
// Команды:
//
//	exec       Выполнить процедуру локально
//	validate   Проверить файлы определений
//	procedure  Управление процедурами на ndo-runner
//	run        Управление runs на ndo-runner
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/ndo/internal/cli"
	"github.com/shaiso/ndo/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "ndo",
		Short:         "ndo — nested procedure runner",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", envOr("NDO_API_URL", "http://localhost:8080"), "Runner API URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every step of local runs")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }
	loggerFn := func() *slog.Logger {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		return telemetry.NewLogger(os.Stderr, "text", level)
	}

	rootCmd.AddCommand(
		cli.NewExecCmd(outputFn, loggerFn),
		cli.NewValidateCmd(outputFn),
		cli.NewProcedureCmd(clientFn, outputFn),
		cli.NewRunCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
