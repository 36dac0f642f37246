package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/ports"
)

const totalsKey = "category_totals"

// Publisher announces ledger writes to other processes.
type Publisher interface {
	PublishExpenseCreated(ctx context.Context, e core.Expense) error
	PublishLedgerCleared(ctx context.Context, deleted int64) error
	Close() error
}

// Input is an expense as typed by a user. Every field is raw text.
type Input struct {
	Date     string
	Category string
	Note     string
	Amount   string
}

// Ledger owns the expense records and answers aggregate queries over them.
// Front ends never talk to storage directly.
type Ledger struct {
	store           ports.Store
	publisher       Publisher
	totals          *cache.LRUCache[[]core.CategoryTotal]
	defaultCategory string
	now             func() time.Time
	logger          *log.Logger
}

type Option func(*Ledger)

// WithPublisher enables ledger events.
func WithPublisher(p Publisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

// WithTotalsCache caches the category aggregation per store revision, so a
// write from any process that shares the store is seen on the next read.
func WithTotalsCache(c *cache.LRUCache[[]core.CategoryTotal]) Option {
	return func(l *Ledger) { l.totals = c }
}

func WithDefaultCategory(category string) Option {
	return func(l *Ledger) {
		if c := strings.TrimSpace(category); c != "" {
			l.defaultCategory = c
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithLogger(logger *log.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

func NewLedger(store ports.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:           store,
		defaultCategory: core.DefaultCategory,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = log.Default("ledger")
	}
	return l
}

// Add parses raw input and records one expense.
func (l *Ledger) Add(ctx context.Context, in Input) (core.Expense, error) {
	e := core.Expense{
		Category: strings.TrimSpace(in.Category),
		Note:     strings.TrimSpace(in.Note),
	}

	if raw := strings.TrimSpace(in.Date); raw != "" {
		d, err := core.ParseDate(raw)
		if err != nil {
			return core.Expense{}, &core.ValidationError{Field: "date", Value: raw, Err: core.ErrInvalidDate}
		}
		e.Date = d
	}

	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Expense{}, err
	}
	e.Amount = amount

	return l.AddExpense(ctx, e)
}

// AddExpense records e after applying the date and category defaults.
func (l *Ledger) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.Date.IsZero() {
		e.Date = core.Today(l.now())
	}
	e.Category = strings.TrimSpace(e.Category)
	if e.Category == "" {
		e.Category = l.defaultCategory
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	created, err := l.store.Append(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("add expense: %w", err)
	}
	l.invalidate()

	l.logger.InfoContext(ctx, "Expense recorded",
		log.FieldOperation, "add_expense",
		log.FieldExpenseID, created.ID,
		log.FieldCategory, created.Category,
		log.FieldAmount, core.FormatAmount(created.Amount),
		log.FieldDate, created.Date.String())

	if l.publisher != nil {
		if err := l.publisher.PublishExpenseCreated(ctx, created); err != nil {
			// The expense is stored; the event is best effort.
			l.logger.ErrorContext(ctx, "Failed to publish expense event",
				log.FieldExpenseID, created.ID, log.FieldError, err)
		}
	}
	return created, nil
}

// SummaryByCategory returns per-category totals ordered by category name.
func (l *Ledger) SummaryByCategory(ctx context.Context) ([]core.CategoryTotal, error) {
	load := func() ([]core.CategoryTotal, error) {
		return l.store.SumByCategory(ctx)
	}
	if l.totals == nil {
		return load()
	}

	rev, err := l.store.Revision(ctx)
	if err != nil {
		return nil, err
	}
	totals, hit, err := l.totals.GetOrLoad(totalsKey+":"+rev.String(), load)
	if err != nil {
		return nil, err
	}
	l.logger.DebugContext(ctx, "Category totals",
		log.FieldCacheHit, hit,
		log.FieldCount, len(totals),
		"revision", rev.String())

	// Callers may sort or append; the cached slice must stay untouched.
	out := make([]core.CategoryTotal, len(totals))
	copy(out, totals)
	return out, nil
}

// TopCategory returns the category with the highest total, or core.ErrEmpty.
func (l *Ledger) TopCategory(ctx context.Context) (core.CategoryTotal, error) {
	if l.totals != nil {
		totals, err := l.SummaryByCategory(ctx)
		if err != nil {
			return core.CategoryTotal{}, err
		}
		return core.TopOf(totals)
	}
	return l.store.TopCategory(ctx)
}

// MonthlyReport returns the expenses dated in the given month, ordered by date then ID.
func (l *Ledger) MonthlyReport(ctx context.Context, year, month int) ([]core.Expense, error) {
	if err := core.ValidateMonth(year, month); err != nil {
		return nil, err
	}
	return l.store.ListMonth(ctx, year, month)
}

// Expenses returns every record ordered by date then ID.
func (l *Ledger) Expenses(ctx context.Context) ([]core.Expense, error) {
	return l.store.ListExpenses(ctx)
}

// ClearAll deletes every record in one transaction. An empty ledger clears successfully.
func (l *Ledger) ClearAll(ctx context.Context) error {
	deleted, err := l.store.DeleteAll(ctx)
	if err != nil {
		return core.NewStorageError("clear ledger", err)
	}
	l.invalidate()

	l.logger.InfoContext(ctx, "Ledger cleared", log.FieldOperation, "clear_all", log.FieldCount, deleted)

	if l.publisher != nil {
		if err := l.publisher.PublishLedgerCleared(ctx, deleted); err != nil {
			l.logger.ErrorContext(ctx, "Failed to publish clear event", log.FieldError, err)
		}
	}
	return nil
}

// CategoryTotalsForChart reshapes the summary for a pie chart.
// An empty ledger returns core.ErrEmpty.
func (l *Ledger) CategoryTotalsForChart(ctx context.Context) (core.ChartData, error) {
	totals, err := l.SummaryByCategory(ctx)
	if err != nil {
		return core.ChartData{}, err
	}
	return core.NewChartData(totals)
}

// Ping reports whether storage is reachable.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.store.Ping(ctx)
}

// Close releases storage and the event publisher.
func (l *Ledger) Close() error {
	var errs []error

	if l.store != nil {
		if err := l.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if l.publisher != nil {
		if err := l.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger: %w", errors.Join(errs...))
	}
	return nil
}

// invalidate drops entries for revisions this process has moved past.
func (l *Ledger) invalidate() {
	if l.totals != nil {
		l.totals.Purge()
	}
}
