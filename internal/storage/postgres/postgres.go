// Package postgres stores expenses in PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"expensetracker/internal/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS expenses (
    id BIGSERIAL PRIMARY KEY,
    date DATE NOT NULL,
    category TEXT NOT NULL,
    note TEXT NOT NULL DEFAULT '',
    amount DOUBLE PRECISION NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_expenses_date ON expenses(date);
CREATE INDEX IF NOT EXISTS idx_expenses_category ON expenses(category);`

type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository opens a pool for databaseURL and creates the schema if absent.
func NewRepository(ctx context.Context, databaseURL string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return core.NewStorageError("ping database", r.pool.Ping(ctx))
}

func (r *Repository) Append(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO expenses (date, category, note, amount) VALUES ($1, $2, $3, $4) RETURNING id`,
		e.Date.Time, e.Category, e.Note, e.Amount)
	if err := row.Scan(&e.ID); err != nil {
		return core.Expense{}, core.NewStorageError("create expense", err)
	}
	slog.DebugContext(ctx, "Expense saved to Postgres", "id", e.ID, "category", e.Category, "amount", e.Amount)
	return e, nil
}

func (r *Repository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, date, category, note, amount FROM expenses ORDER BY date, id`)
	if err != nil {
		return nil, core.NewStorageError("list expenses", err)
	}
	return collectExpenses(rows, "list expenses")
}

func (r *Repository) ListMonth(ctx context.Context, year int, month int) ([]core.Expense, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, date, category, note, amount FROM expenses
		  WHERE to_char(date, 'YYYY-MM') = $1
		  ORDER BY date, id`, core.MonthKey(year, month))
	op := "list expenses for " + core.MonthKey(year, month)
	if err != nil {
		return nil, core.NewStorageError(op, err)
	}
	return collectExpenses(rows, op)
}

func collectExpenses(rows pgx.Rows, op string) ([]core.Expense, error) {
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Expense, error) {
		var (
			e core.Expense
			d time.Time
		)
		if err := row.Scan(&e.ID, &d, &e.Category, &e.Note, &e.Amount); err != nil {
			return core.Expense{}, err
		}
		e.Date = core.NewDate(d.Year(), int(d.Month()), d.Day())
		return e, nil
	})
	if err != nil {
		return nil, core.NewStorageError(op, err)
	}
	return items, nil
}

func (r *Repository) SumByCategory(ctx context.Context) ([]core.CategoryTotal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT category, COALESCE(SUM(amount), 0) FROM expenses GROUP BY category ORDER BY category`)
	if err != nil {
		return nil, core.NewStorageError("get category sums", err)
	}
	totals, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.CategoryTotal, error) {
		var t core.CategoryTotal
		err := row.Scan(&t.Category, &t.Total)
		return t, err
	})
	if err != nil {
		return nil, core.NewStorageError("get category sums", err)
	}
	return core.RoundTotals(totals), nil
}

func (r *Repository) TopCategory(ctx context.Context) (core.CategoryTotal, error) {
	totals, err := r.SumByCategory(ctx)
	if err != nil {
		return core.CategoryTotal{}, err
	}
	return core.TopOf(totals)
}

func (r *Repository) Revision(ctx context.Context) (core.Revision, error) {
	var rev core.Revision
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(MAX(id), 0) FROM expenses`).Scan(&rev.Count, &rev.MaxID)
	if err != nil {
		return core.Revision{}, core.NewStorageError("get revision", err)
	}
	return rev, nil
}

// DeleteAll removes every row in one transaction; pgx.BeginFunc rolls back
// when the function or the commit fails.
func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	var deleted int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM expenses`)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, core.NewStorageError("delete all expenses", err)
	}
	slog.InfoContext(ctx, "All expenses deleted from Postgres", "deleted", deleted)
	return deleted, nil
}
