package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// NewRunCmd создаёт группу команд для управления runs.
func NewRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Manage runs on the runner",
	}

	cmd.AddCommand(
		newRunListCmd(clientFn, outputFn),
		newRunStartCmd(clientFn, outputFn),
		newRunShowCmd(clientFn, outputFn),
		newRunCancelCmd(clientFn, outputFn),
	)

	return cmd
}

var runHeaders = []string{"ID", "PROCEDURE", "SOURCE", "STATUS", "DURATION", "ERROR"}

func runRow(r RunResponse) []string {
	return []string{
		r.ID,
		r.Procedure,
		r.Source,
		r.Status,
		(time.Duration(r.DurationMs) * time.Millisecond).String(),
		r.Error,
	}
}

func newRunListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListRunsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := clientFn().ListRuns(opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = runRow(r)
			}
			outputFn().Print(runHeaders, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Procedure, "procedure", "", "Filter by procedure name")
	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (RUNNING, SUCCEEDED, FAILED, CANCELLED)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newRunStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var wait bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "start NAME [ARGS...]",
		Short: "Start a procedure on the runner",
		Long: `Start a procedure by name. Positional ARGS are passed to the procedure;
numbers, booleans and JSON values are decoded, everything else is a string.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.StartRun(args[0], ParseArgs(args[1:]))
			if err != nil {
				return err
			}
			out.Success(fmt.Sprintf("Run started: %s", run.ID))

			if wait {
				run, err = client.WaitRun(run.ID, 200*time.Millisecond, timeout)
				if err != nil {
					return err
				}
			}

			out.Print(runHeaders, [][]string{runRow(*run)}, run)
			if wait && run.Status != "SUCCEEDED" {
				return fmt.Errorf("run %s %s", run.ID, run.Status)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the run to finish")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "Maximum time to wait with --wait")

	return cmd
}

func newRunShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := clientFn().GetRun(args[0])
			if err != nil {
				return err
			}

			outputFn().Print(
				[]string{"ID", "PROCEDURE", "ARGS", "STATUS", "STARTED", "FINISHED", "ERROR"},
				[][]string{{run.ID, run.Procedure, strconv.Itoa(len(run.Args)), run.Status, run.StartedAt, run.FinishedAt, run.Error}},
				run,
			)
			return nil
		},
	}
}

func newRunCancelCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a running run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := clientFn().CancelRun(args[0])
			if err != nil {
				return err
			}

			outputFn().Success(fmt.Sprintf("Run cancelled: %s", run.ID))
			return nil
		},
	}
}
