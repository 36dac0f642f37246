package main

import (
	"strings"

	"github.com/spf13/cobra"

	"expensetracker/internal/menu"
	"expensetracker/internal/services"
)

func newAddCmd(a *app) *cobra.Command {
	var in services.Input

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record one expense",
		Long: `Record one expense. The date defaults to today and the category
to DEFAULT_CATEGORY. Categories are stored lower-case.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Category = strings.ToLower(in.Category)
			e, err := a.ledger.Add(cmd.Context(), in)
			if err != nil {
				return err
			}
			menu.PrintExpense(a.out, e)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in.Category, "category", "c", "", "Expense category")
	cmd.Flags().StringVarP(&in.Amount, "amount", "a", "", "Amount, dot or comma decimal separator")
	cmd.Flags().StringVarP(&in.Date, "date", "d", "", "Date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVarP(&in.Note, "note", "n", "", "Free-text note")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
