package main

import (
	"time"

	"github.com/spf13/cobra"

	"expensetracker/internal/menu"
)

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show totals per category and the top category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return menu.PrintSummary(cmd.Context(), a.ledger, a.out)
		},
	}
}

func newChartCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chart",
		Short: "Draw the share of each category as a text chart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return menu.PrintChart(cmd.Context(), a.ledger, a.out)
		},
	}
}

func newReportCmd(a *app) *cobra.Command {
	now := time.Now()
	var year, month int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "List the expenses of one calendar month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return menu.PrintReport(cmd.Context(), a.ledger, a.out, year, month)
		},
	}

	cmd.Flags().IntVar(&year, "year", now.Year(), "Report year")
	cmd.Flags().IntVar(&month, "month", int(now.Month()), "Report month (1-12)")
	return cmd
}
