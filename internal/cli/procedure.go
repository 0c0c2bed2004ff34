package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/ndo/internal/procedure"
)

// NewProcedureCmd создаёт группу команд для управления процедурами на runner.
func NewProcedureCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "procedure",
		Aliases: []string{"proc"},
		Short:   "Manage procedures on the runner",
	}

	cmd.AddCommand(
		newProcedureListCmd(clientFn, outputFn),
		newProcedureShowCmd(clientFn, outputFn),
		newProcedureApplyCmd(clientFn, outputFn),
		newProcedureDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func newProcedureListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered procedures",
		RunE: func(cmd *cobra.Command, args []string) error {
			procs, err := clientFn().ListProcedures()
			if err != nil {
				return err
			}

			headers := []string{"NAME", "PARAMS", "STEPS", "DECLARATIVE", "DESCRIPTION"}
			rows := make([][]string, len(procs))
			for i, p := range procs {
				rows[i] = []string{
					p.Name,
					strings.Join(p.Params, ","),
					strconv.Itoa(p.Steps),
					strconv.FormatBool(p.Declarative),
					p.Description,
				}
			}

			outputFn().Print(headers, rows, procs)
			return nil
		},
	}
}

func newProcedureShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show procedure definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := clientFn().GetProcedure(args[0])
			if err != nil {
				return err
			}
			outputFn().JSON(def)
			return nil
		},
	}
}

func newProcedureApplyCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "apply FILE...",
		Short: "Create or replace procedures from .json or .hcl files",
		Long: `Parse and validate definitions locally, then upload each one.
HCL files are converted to JSON before upload.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			defs, err := procedure.LoadFiles(args...)
			if err != nil {
				return err
			}

			for _, def := range defs {
				summary, err := client.ApplyProcedure(def.Name, def)
				if err != nil {
					return fmt.Errorf("apply %s: %w", def.Name, err)
				}
				out.Success(fmt.Sprintf("Procedure applied: %s (%d steps)", summary.Name, summary.Steps))
			}
			return nil
		},
	}
}

func newProcedureDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Unregister a procedure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().DeleteProcedure(args[0]); err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Procedure deleted: %s", args[0]))
			return nil
		},
	}
}
