package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"expensetracker/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

// DSN builds the modernc connection string: a busy timeout so concurrent
// writers wait for the lock, WAL so readers never block on a writer.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return core.NewStorageError("ping database", r.db.PingContext(ctx))
}

// Append implements ports.ExpenseWriter
func (r *SQLiteRepository) Append(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	row, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		Date:     e.Date.String(),
		Category: e.Category,
		Note:     e.Note,
		Amount:   e.Amount,
	})
	if err != nil {
		return core.Expense{}, core.NewStorageError("create expense", err)
	}

	slog.DebugContext(ctx, "Expense saved to SQLite",
		"id", row.ID,
		"category", row.Category,
		"amount", row.Amount,
		"date", row.Date)

	return toCore(row)
}

// ListExpenses implements ports.ExpenseLister
func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.queries.ListExpenses(ctx)
	if err != nil {
		return nil, core.NewStorageError("list expenses", err)
	}
	return toCoreSlice(rows)
}

// ListMonth implements ports.ExpenseLister
func (r *SQLiteRepository) ListMonth(ctx context.Context, year int, month int) ([]core.Expense, error) {
	key := core.MonthKey(year, month)
	rows, err := r.queries.ListExpensesInMonth(ctx, key)
	if err != nil {
		return nil, core.NewStorageError("list expenses for "+key, err)
	}
	return toCoreSlice(rows)
}

// SumByCategory implements ports.SummaryReader
func (r *SQLiteRepository) SumByCategory(ctx context.Context) ([]core.CategoryTotal, error) {
	sums, err := r.queries.GetCategorySums(ctx)
	if err != nil {
		return nil, core.NewStorageError("get category sums", err)
	}
	totals := make([]core.CategoryTotal, 0, len(sums))
	for _, cs := range sums {
		totals = append(totals, core.CategoryTotal{Category: cs.Category, Total: cs.Total})
	}
	return core.RoundTotals(totals), nil
}

// TopCategory implements ports.SummaryReader, picking from totals rounded to cents.
func (r *SQLiteRepository) TopCategory(ctx context.Context) (core.CategoryTotal, error) {
	totals, err := r.SumByCategory(ctx)
	if err != nil {
		return core.CategoryTotal{}, err
	}
	return core.TopOf(totals)
}

// Revision implements ports.Revisioner
func (r *SQLiteRepository) Revision(ctx context.Context) (core.Revision, error) {
	count, maxID, err := r.queries.GetRevision(ctx)
	if err != nil {
		return core.Revision{}, core.NewStorageError("get revision", err)
	}
	return core.Revision{Count: count, MaxID: maxID}, nil
}

// DeleteAll implements ports.Clearer. The delete runs in its own transaction
// and is rolled back on any failure.
func (r *SQLiteRepository) DeleteAll(ctx context.Context) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, core.NewStorageError("begin delete all", err)
	}
	defer tx.Rollback()

	n, err := r.queries.WithTx(tx).DeleteAllExpenses(ctx)
	if err != nil {
		return 0, core.NewStorageError("delete all expenses", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, core.NewStorageError("commit delete all", err)
	}

	slog.InfoContext(ctx, "All expenses deleted from SQLite", "deleted", n)
	return n, nil
}

func toCore(row Expense) (core.Expense, error) {
	d, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Expense{}, core.NewStorageError(fmt.Sprintf("decode date of expense %d", row.ID), err)
	}
	return core.Expense{
		ID:       row.ID,
		Date:     d,
		Category: row.Category,
		Note:     row.Note,
		Amount:   row.Amount,
	}, nil
}

func toCoreSlice(rows []Expense) ([]core.Expense, error) {
	expenses := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := toCore(row)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}
