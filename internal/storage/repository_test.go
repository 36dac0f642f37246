package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/ports"
	"expensetracker/internal/storage/storetest"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "expenses.db"))
	require.NoError(t, err)
	return repo
}

func TestSQLiteConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.Store { return newTestRepo(t) })
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	_, err = repo.Append(context.Background(), storetest.Fixture()[0])
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	// Reopening must keep the data and not fail on existing schema.
	repo, err = NewSQLiteRepository(path)
	require.NoError(t, err)
	defer repo.Close()
	all, err := repo.ListExpenses(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "lunch", all[0].Note)
}

func TestDeleteAllRollsBackOnFailure(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	for _, e := range storetest.Fixture() {
		_, err := repo.Append(ctx, e)
		require.NoError(t, err)
	}

	// A cancelled context fails before anything is deleted.
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := repo.DeleteAll(cancelled)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrStorage), "expected storage error, got %v", err)

	all, err := repo.ListExpenses(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, repo.Close())
	_, err = repo.DeleteAll(ctx)
	assert.ErrorIs(t, err, core.ErrStorage)
}

func TestAppendRejectsInvalidExpense(t *testing.T) {
	repo := newTestRepo(t)
	defer repo.Close()
	_, err := repo.Append(context.Background(), core.Expense{Category: "food", Amount: 1})
	assert.ErrorIs(t, err, core.ErrValidation)
}
