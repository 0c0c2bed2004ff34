package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/ndo/internal/domain"
	"github.com/shaiso/ndo/internal/engine"
	"github.com/shaiso/ndo/internal/procedure"
	"github.com/shaiso/ndo/internal/telemetry"
)

// NewExecCmd создаёт команду локального запуска процедуры.
func NewExecCmd(outputFn func() *Output, loggerFn func() *slog.Logger) *cobra.Command {
	var dir string
	var files []string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "exec NAME [ARGS...]",
		Short: "Run a procedure locally from definition files",
		Long: `Load definitions from --dir and --file, run NAME with ARGS in this process
and wait for it. The exit status reflects the outcome of the run.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			logger := loggerFn()

			defs, err := loadDefinitions(dir, files)
			if err != nil {
				return err
			}

			reg := engine.NewRegistry()
			if err := procedure.Install(reg, procedure.NewCompiler(nil), defs...); err != nil {
				return err
			}
			sched := engine.New(reg, engine.WithObserver(telemetry.NewLogObserver(logger)))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			name := args[0]
			start := time.Now()
			err = sched.RunByName(telemetry.WithLogger(ctx, logger), name, ParseArgs(args[1:])...).Wait(context.Background())
			elapsed := time.Since(start).Round(time.Millisecond)

			if err != nil {
				return fmt.Errorf("procedure %s failed after %s: %w", name, elapsed, err)
			}
			out.Success(fmt.Sprintf("Procedure %s succeeded in %s", name, elapsed))
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "procedures", "Directory with .json and .hcl definitions")
	cmd.Flags().StringSliceVarP(&files, "file", "f", nil, "Definition file (repeatable, used instead of --dir)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Cancel the run after this duration")

	return cmd
}

// NewValidateCmd создаёт команду проверки определений.
func NewValidateCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Parse, validate and compile definition files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			defs, err := procedure.LoadFiles(args...)
			if err != nil {
				return err
			}

			compiler := procedure.NewCompiler(nil)
			headers := []string{"NAME", "PARAMS", "STEPS"}
			rows := make([][]string, len(defs))
			for i, def := range defs {
				if _, err := compiler.Compile(def); err != nil {
					return fmt.Errorf("procedure %q: %w", def.Name, err)
				}
				rows[i] = []string{def.Name, strings.Join(def.Params, ","), strconv.Itoa(def.StepCount())}
			}

			out.Print(headers, rows, defs)
			out.Success(fmt.Sprintf("%d procedure(s) valid", len(defs)))
			return nil
		},
	}
}

func loadDefinitions(dir string, files []string) ([]*domain.ProcedureDef, error) {
	if len(files) > 0 {
		return procedure.LoadFiles(files...)
	}
	return procedure.LoadDir(dir)
}

// ParseArgs превращает позиционные аргументы командной строки в значения.
//
// Целые — int, дробные — float64, true/false — bool, значения,
// начинающиеся с [ { или ", — JSON. Остальное — строка как есть.
func ParseArgs(raw []string) []any {
	args := make([]any, len(raw))
	for i, s := range raw {
		args[i] = parseArg(s)
	}
	return args
}

func parseArg(s string) any {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if strings.ContainsAny(s, "0123456789") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	if b, err := strconv.ParseBool(s); err == nil && (s == "true" || s == "false") {
		return b
	}
	if s != "" && strings.ContainsRune("[{\"", rune(s[0])) {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	return s
}
