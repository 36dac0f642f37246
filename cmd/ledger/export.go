package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"expensetracker/internal/export"
	"expensetracker/internal/log"
)

func newExportCmd(a *app) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every expense as CSV, JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			expenses, err := a.ledger.Expenses(cmd.Context())
			if err != nil {
				return err
			}

			var w io.Writer = a.out
			if out != "" {
				file, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				defer file.Close()
				w = file
			}

			if err := export.Write(w, f, expenses); err != nil {
				return fmt.Errorf("export %s: %w", f, err)
			}

			a.logger.Info("Expenses exported", log.FieldCount, len(expenses), "format", string(f), "out", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(export.CSV), "Output format: csv, json or yaml")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var format, in string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Append expenses read from a CSV, JSON or YAML export",
		Long: `Append every record of an export file to the ledger. Records get new IDs;
the IDs in the file are ignored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			var r io.Reader = a.in
			if in != "" && in != "-" {
				file, err := os.Open(in)
				if err != nil {
					return fmt.Errorf("open import file: %w", err)
				}
				defer file.Close()
				r = file
			}

			expenses, err := export.Read(r, f)
			if err != nil {
				return err
			}
			for _, e := range expenses {
				e.ID = 0
				if _, err := a.ledger.AddExpense(cmd.Context(), e); err != nil {
					return fmt.Errorf("import expense dated %s: %w", e.Date, err)
				}
			}

			fmt.Fprintf(a.out, "Imported %d expenses.\n", len(expenses))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(export.CSV), "Input format: csv, json or yaml")
	cmd.Flags().StringVarP(&in, "in", "i", "-", "Input file (default stdin)")
	return cmd
}
