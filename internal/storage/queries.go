package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Expense is the row shape of the expenses table.
type Expense struct {
	ID       int64
	Date     string
	Category string
	Note     string
	Amount   float64
}

type CreateExpenseParams struct {
	Date     string
	Category string
	Note     string
	Amount   float64
}

const createExpense = `-- name: CreateExpense :one
INSERT INTO expenses (date, category, note, amount)
VALUES (?, ?, ?, ?)
RETURNING id, date, category, note, amount`

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, createExpense, arg.Date, arg.Category, arg.Note, arg.Amount)
	var i Expense
	err := row.Scan(&i.ID, &i.Date, &i.Category, &i.Note, &i.Amount)
	return i, err
}

const listExpenses = `-- name: ListExpenses :many
SELECT id, date, category, note, amount FROM expenses
ORDER BY date, id`

func (q *Queries) ListExpenses(ctx context.Context) ([]Expense, error) {
	return q.scanExpenses(ctx, listExpenses)
}

const listExpensesInMonth = `-- name: ListExpensesInMonth :many
SELECT id, date, category, note, amount FROM expenses
WHERE strftime('%Y-%m', date) = ?
ORDER BY date, id`

// ListExpensesInMonth returns rows whose date falls in month, given as YYYY-MM.
func (q *Queries) ListExpensesInMonth(ctx context.Context, month string) ([]Expense, error) {
	return q.scanExpenses(ctx, listExpensesInMonth, month)
}

func (q *Queries) scanExpenses(ctx context.Context, query string, args ...interface{}) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		var i Expense
		if err := rows.Scan(&i.ID, &i.Date, &i.Category, &i.Note, &i.Amount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type CategorySum struct {
	Category string
	Total    float64
}

const getCategorySums = `-- name: GetCategorySums :many
SELECT category, CAST(TOTAL(amount) AS REAL) AS total
FROM expenses
GROUP BY category
ORDER BY category`

func (q *Queries) GetCategorySums(ctx context.Context) ([]CategorySum, error) {
	rows, err := q.db.QueryContext(ctx, getCategorySums)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategorySum
	for rows.Next() {
		var i CategorySum
		if err := rows.Scan(&i.Category, &i.Total); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getRevision = `-- name: GetRevision :one
SELECT COUNT(*), COALESCE(MAX(id), 0) FROM expenses`

func (q *Queries) GetRevision(ctx context.Context) (count int64, maxID int64, err error) {
	err = q.db.QueryRowContext(ctx, getRevision).Scan(&count, &maxID)
	return count, maxID, err
}

const deleteAllExpenses = `-- name: DeleteAllExpenses :execrows
DELETE FROM expenses`

func (q *Queries) DeleteAllExpenses(ctx context.Context) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteAllExpenses)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
