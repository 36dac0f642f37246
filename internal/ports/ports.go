package ports

import (
	"context"

	"expensetracker/internal/core"
)

// Ports for storage adapters. Every backend returns *core.StorageError for
// engine failures and core.ErrEmpty where a read has nothing to report.
type (
	ExpenseWriter interface {
		// Append stores e and returns it with its newly assigned ID.
		Append(ctx context.Context, e core.Expense) (core.Expense, error)
	}

	// ExpenseLister returns full expense records, ordered by date then ID.
	ExpenseLister interface {
		ListExpenses(ctx context.Context) ([]core.Expense, error)
		// ListMonth returns the expenses dated within the given year and month.
		ListMonth(ctx context.Context, year int, month int) ([]core.Expense, error)
	}

	// SummaryReader provides category aggregates.
	SummaryReader interface {
		// SumByCategory groups every expense by category, ordered by category name.
		SumByCategory(ctx context.Context) ([]core.CategoryTotal, error)
		// TopCategory returns the category with the highest total or core.ErrEmpty.
		TopCategory(ctx context.Context) (core.CategoryTotal, error)
	}

	// Revisioner reports a cheap fingerprint of the stored set. Writers in
	// other processes change it, so it keys cached aggregates.
	Revisioner interface {
		Revision(ctx context.Context) (core.Revision, error)
	}

	// Clearer removes every expense atomically.
	Clearer interface {
		DeleteAll(ctx context.Context) (deleted int64, err error)
	}

	Store interface {
		ExpenseWriter
		ExpenseLister
		SummaryReader
		Clearer
		Revisioner
		Ping(ctx context.Context) error
		Close() error
	}
)
