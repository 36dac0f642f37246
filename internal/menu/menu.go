// Package menu implements the interactive text front end of the ledger.
package menu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"expensetracker/internal/core"
	"expensetracker/internal/services"
)

const header = `
--- Expense Tracker ---
1. Add Expense
2. Show Summary
3. Show Chart
4. Monthly Expense Report
5. Exit
`

const barWidth = 40

// Ledger is the part of services.Ledger the menu drives.
type Ledger interface {
	Add(ctx context.Context, in services.Input) (core.Expense, error)
	SummaryByCategory(ctx context.Context) ([]core.CategoryTotal, error)
	TopCategory(ctx context.Context) (core.CategoryTotal, error)
	MonthlyReport(ctx context.Context, year, month int) ([]core.Expense, error)
	CategoryTotalsForChart(ctx context.Context) (core.ChartData, error)
}

type Menu struct {
	ledger Ledger
	in     *bufio.Scanner
	out    io.Writer
}

func New(ledger Ledger, in io.Reader, out io.Writer) *Menu {
	return &Menu{ledger: ledger, in: bufio.NewScanner(in), out: out}
}

// Run loops until the user exits, input ends or ctx is cancelled.
// Errors from individual actions are printed and never end the loop.
func (m *Menu) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(m.out, header)
		choice, ok := m.prompt("Choose an option: ")
		if !ok {
			fmt.Fprintln(m.out)
			return m.in.Err()
		}

		var err error
		switch choice {
		case "1":
			err = m.add(ctx)
		case "2":
			err = m.summary(ctx)
		case "3":
			err = m.chart(ctx)
		case "4":
			err = m.report(ctx)
		case "5":
			fmt.Fprintln(m.out, "Goodbye!")
			return nil
		default:
			fmt.Fprintln(m.out, "Invalid choice, try again.")
			continue
		}

		if errors.Is(err, io.EOF) {
			fmt.Fprintln(m.out)
			return m.in.Err()
		}
		if err != nil {
			fmt.Fprintf(m.out, "Error: %v\n", err)
		}
	}
}

func (m *Menu) prompt(label string) (string, bool) {
	fmt.Fprint(m.out, label)
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

// ask prompts for each label in turn and stops at end of input.
func (m *Menu) ask(labels ...string) ([]string, error) {
	answers := make([]string, 0, len(labels))
	for _, label := range labels {
		v, ok := m.prompt(label)
		if !ok {
			return nil, io.EOF
		}
		answers = append(answers, v)
	}
	return answers, nil
}

func (m *Menu) add(ctx context.Context) error {
	a, err := m.ask(
		"Enter category: ",
		"Enter amount: ",
		"Enter date (YYYY-MM-DD) or leave blank for today: ",
		"Enter note: ",
	)
	if err != nil {
		return err
	}

	e, err := m.ledger.Add(ctx, services.Input{
		Category: strings.ToLower(a[0]),
		Amount:   a[1],
		Date:     a[2],
		Note:     a[3],
	})
	if err != nil {
		return err
	}

	PrintExpense(m.out, e)
	return nil
}

func (m *Menu) summary(ctx context.Context) error { return PrintSummary(ctx, m.ledger, m.out) }

func (m *Menu) chart(ctx context.Context) error { return PrintChart(ctx, m.ledger, m.out) }

// PrintExpense writes the confirmation shown after an add.
func PrintExpense(w io.Writer, e core.Expense) {
	fmt.Fprintf(w, "Expense Added!\n Date is %s\n Category is %s\n Note is %s\n Amount is %s\n",
		e.Date, e.Category, e.Note, core.FormatAmount(e.Amount))
}

// PrintSummary writes per-category totals followed by the top category.
func PrintSummary(ctx context.Context, ledger Ledger, w io.Writer) error {
	totals, err := ledger.SummaryByCategory(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "\n--- Expense Summary by Category ---")
	for _, t := range totals {
		fmt.Fprintf(w, "Category: %s Total Amount: %s\n", t.Category, core.FormatAmount(t.Total))
	}

	fmt.Fprintln(w, "\nMost money spent on:")
	top, err := ledger.TopCategory(ctx)
	if errors.Is(err, core.ErrEmpty) {
		fmt.Fprintln(w, "No expenses recorded yet.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Category: %s Amount: %s\n", top.Category, core.FormatAmount(top.Total))
	return nil
}

// PrintChart writes the text pie, or a notice when there is nothing to chart.
func PrintChart(ctx context.Context, ledger Ledger, w io.Writer) error {
	data, err := ledger.CategoryTotalsForChart(ctx)
	if errors.Is(err, core.ErrEmpty) {
		fmt.Fprintln(w, "No expenses to show chart!")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "\n--- Expenses by Category ---")
	fmt.Fprint(w, RenderPie(data))
	return nil
}

// RenderPie draws one bar per category sized by its share of the absolute total.
func RenderPie(data core.ChartData) string {
	var whole float64
	width := 0
	for i, a := range data.Amounts {
		whole += math.Abs(a)
		if l := len(data.Labels[i]); l > width {
			width = l
		}
	}

	var b strings.Builder
	for i, label := range data.Labels {
		share := 0.0
		if whole > 0 {
			share = math.Abs(data.Amounts[i]) / whole
		}
		bar := strings.Repeat("#", int(math.Round(share*barWidth)))
		fmt.Fprintf(&b, "%-*s %5.1f%% %-*s %s\n", width, label, share*100, barWidth, bar, core.FormatAmount(data.Amounts[i]))
	}
	fmt.Fprintf(&b, "%-*s %s\n", width, "Total", core.FormatAmount(data.Total()))
	return b.String()
}

func (m *Menu) report(ctx context.Context) error {
	a, err := m.ask("Enter Year (YYYY): ", "Enter Month (1-12): ")
	if err != nil {
		return err
	}
	year, err := strconv.Atoi(a[0])
	if err != nil {
		return &core.ValidationError{Field: "year", Value: a[0], Err: core.ErrInvalidYear}
	}
	month, err := strconv.Atoi(a[1])
	if err != nil {
		return &core.ValidationError{Field: "month", Value: a[1], Err: core.ErrInvalidMonth}
	}

	return PrintReport(ctx, m.ledger, m.out, year, month)
}

// PrintReport writes the records of one calendar month.
func PrintReport(ctx context.Context, ledger Ledger, w io.Writer, year, month int) error {
	expenses, err := ledger.MonthlyReport(ctx, year, month)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n--- Expense Report for %04d-%02d ---\n", year, month)
	if len(expenses) == 0 {
		fmt.Fprintln(w, "No expenses in this month.")
	}
	for _, e := range expenses {
		fmt.Fprintf(w, "Date: %s Category: %s Note: %s Amount: %s\n",
			e.Date, e.Category, e.Note, core.FormatAmount(e.Amount))
	}
	return nil
}
