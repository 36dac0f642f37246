// Package worker keeps a mirror store in step with the primary ledger.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/ports"
)

// SyncWorker copies the primary ledger into a mirror store. Events only
// trigger a reconcile; the primary store is the source of truth, so a lost
// or repeated event never corrupts the mirror.
type SyncWorker struct {
	// mu serialises reconciles from the consumer and the ticker.
	mu     sync.Mutex
	source ports.ExpenseLister
	mirror ports.Store
	logger *log.Logger
}

func NewSyncWorker(source ports.ExpenseLister, mirror ports.Store, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	}
	return &SyncWorker{source: source, mirror: mirror, logger: logger}
}

// SyncResult reports what a reconcile changed.
type SyncResult struct {
	Appended int
	Rebuilt  bool
}

// HandleEvent processes a single ledger event from AMQP.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	w.logger.InfoContext(ctx, "Processing ledger event",
		"type", ev.Type,
		log.FieldExpenseID, ev.ExpenseID,
		"timestamp", ev.Timestamp)

	switch ev.Type {
	case amqp.EventExpenseCreated, amqp.EventLedgerCleared:
	default:
		w.logger.WarnContext(ctx, "Ignoring unknown ledger event", "type", ev.Type)
		return nil
	}

	if _, err := w.Reconcile(ctx); err != nil {
		return fmt.Errorf("reconcile after %s: %w", ev.Type, err)
	}
	return nil
}

// Reconcile brings the mirror in line with the source. When the mirror holds
// a prefix of the source only the missing tail is appended; any other
// difference rebuilds the mirror from scratch.
func (w *SyncWorker) Reconcile(ctx context.Context) (SyncResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	src, err := w.source.ListExpenses(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("list source expenses: %w", err)
	}
	dst, err := w.mirror.ListExpenses(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("list mirror expenses: %w", err)
	}

	var result SyncResult
	start := len(dst)
	if !isPrefix(dst, src) {
		deleted, err := w.mirror.DeleteAll(ctx)
		if err != nil {
			return SyncResult{}, fmt.Errorf("clear mirror: %w", err)
		}
		w.logger.InfoContext(ctx, "Mirror diverged, rebuilding", "deleted", deleted, log.FieldCount, len(src))
		result.Rebuilt = true
		start = 0
	}

	for _, e := range src[start:] {
		e.ID = 0
		if _, err := w.mirror.Append(ctx, e); err != nil {
			return result, fmt.Errorf("append to mirror: %w", err)
		}
		result.Appended++
	}

	if result.Appended > 0 || result.Rebuilt {
		w.logger.InfoContext(ctx, "Mirror synced",
			"appended", result.Appended,
			"rebuilt", result.Rebuilt,
			log.FieldCount, len(src))
	}
	return result, nil
}

// StartupSyncCheck reconciles once before consumption starts, recovering
// from events missed while the worker was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	start := time.Now()
	result, err := w.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup sync completed",
		"appended", result.Appended,
		"rebuilt", result.Rebuilt,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// isPrefix compares records by content; mirror IDs are assigned by the mirror.
func isPrefix(prefix, all []core.Expense) bool {
	if len(prefix) > len(all) {
		return false
	}
	for i := range prefix {
		if !sameRecord(prefix[i], all[i]) {
			return false
		}
	}
	return true
}

func sameRecord(a, b core.Expense) bool {
	return a.Date.String() == b.Date.String() &&
		a.Category == b.Category &&
		a.Note == b.Note &&
		a.Amount == b.Amount
}
