// Package storetest holds the behavioural suite every ports.Store must pass.
package storetest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	"expensetracker/internal/ports"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) ports.Store

// Fixture is the three-expense data set used across the suite.
func Fixture() []core.Expense {
	return []core.Expense{
		{Date: core.NewDate(2024, 1, 5), Category: "food", Note: "lunch", Amount: 20},
		{Date: core.NewDate(2024, 1, 20), Category: "food", Note: "dinner", Amount: 30},
		{Date: core.NewDate(2024, 2, 1), Category: "transit", Note: "bus", Amount: 10},
	}
}

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("AppendAssignsIDs", func(t *testing.T) { testAppendAssignsIDs(t, newStore(t)) })
	t.Run("SummaryAndTop", func(t *testing.T) { testSummaryAndTop(t, newStore(t)) })
	t.Run("EmptyLedger", func(t *testing.T) { testEmptyLedger(t, newStore(t)) })
	t.Run("MonthlyReport", func(t *testing.T) { testMonthlyReport(t, newStore(t)) })
	t.Run("DeleteAll", func(t *testing.T) { testDeleteAll(t, newStore(t)) })
	t.Run("NegativeAndFractional", func(t *testing.T) { testNegativeAndFractional(t, newStore(t)) })
	t.Run("MonthAtCalendarEdges", func(t *testing.T) { testMonthAtCalendarEdges(t, newStore(t)) })
	t.Run("TotalsRoundedToCents", func(t *testing.T) { testTotalsRoundedToCents(t, newStore(t)) })
	t.Run("RevisionTracksWrites", func(t *testing.T) { testRevisionTracksWrites(t, newStore(t)) })
	t.Run("LongTextFields", func(t *testing.T) { testLongTextFields(t, newStore(t)) })
}

func seed(t *testing.T, s ports.Store, items []core.Expense) []core.Expense {
	t.Helper()
	out := make([]core.Expense, 0, len(items))
	for _, e := range items {
		created, err := s.Append(context.Background(), e)
		require.NoError(t, err)
		out = append(out, created)
	}
	return out
}

func testAppendAssignsIDs(t *testing.T, s ports.Store) {
	defer s.Close()
	ctx := context.Background()

	created := seed(t, s, Fixture())
	seen := map[int64]bool{}
	for i, e := range created {
		assert.NotZero(t, e.ID)
		assert.False(t, seen[e.ID], "duplicate id %d", e.ID)
		seen[e.ID] = true
		assert.Equal(t, Fixture()[i].Category, e.Category)
		assert.Equal(t, Fixture()[i].Note, e.Note)
		assert.Equal(t, Fixture()[i].Amount, e.Amount)
		assert.Equal(t, Fixture()[i].Date.String(), e.Date.String())
	}

	all, err := s.ListExpenses(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "lunch", all[0].Note)
	assert.Equal(t, "bus", all[2].Note)
	require.NoError(t, s.Ping(ctx))
}

func testSummaryAndTop(t *testing.T, s ports.Store) {
	defer s.Close()
	ctx := context.Background()

	// Insertion order must not matter.
	fx := Fixture()
	seed(t, s, []core.Expense{fx[2], fx[0], fx[1]})

	totals, err := s.SumByCategory(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.CategoryTotal{{Category: "food", Total: 50}, {Category: "transit", Total: 10}}, totals)

	top, err := s.TopCategory(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.CategoryTotal{Category: "food", Total: 50}, top)
}

func testEmptyLedger(t *testing.T, s ports.Store) {
	defer s.Close()
	ctx := context.Background()

	totals, err := s.SumByCategory(ctx)
	require.NoError(t, err)
	assert.Empty(t, totals)

	_, err = s.TopCategory(ctx)
	assert.ErrorIs(t, err, core.ErrEmpty)

	all, err := s.ListExpenses(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testMonthlyReport(t *testing.T, s ports.Store) {
	defer s.Close()
	ctx := context.Background()

	seed(t, s, Fixture())
	seed(t, s, []core.Expense{
		{Date: core.NewDate(2023, 12, 31), Category: "food", Amount: 1},
		{Date: core.NewDate(2023, 1, 15), Category: "food", Amount: 2},
	})

	jan, err := s.ListMonth(ctx, 2024, 1)
	require.NoError(t, err)
	require.Len(t, jan, 2)
	assert.Equal(t, "lunch", jan[0].Note)
	assert.Equal(t, "dinner", jan[1].Note)

	feb, err := s.ListMonth(ctx, 2024, 2)
	require.NoError(t, err)
	require.Len(t, feb, 1)
	assert.Equal(t, "transit", feb[0].Category)

	none, err := s.ListMonth(ctx, 2024, 3)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testDeleteAll(t *testing.T, s ports.Store) {
	defer s.Close()
	ctx := context.Background()

	before := seed(t, s, Fixture())

	n, err := s.DeleteAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	all, err := s.ListExpenses(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	totals, err := s.SumByCategory(ctx)
	require.NoError(t, err)
	assert.Empty(t, totals)
	_, err = s.TopCategory(ctx)
	assert.ErrorIs(t, err, core.ErrEmpty)

	n, err = s.DeleteAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	after := seed(t, s, Fixture()[:1])
	for _, old := range before {
		assert.NotEqual(t, old.ID, after[0].ID, "ids must not be reused after a clear")
	}
}

func testNegativeAndFractional(t *testing.T, s ports.Store) {
	defer s.Close()
	ctx := context.Background()

	seed(t, s, []core.Expense{
		{Date: core.NewDate(2024, 3, 1), Category: "refund", Amount: -12.5},
		{Date: core.NewDate(2024, 3, 2), Category: "refund", Amount: 2.25},
		{Date: core.NewDate(2024, 3, 3), Category: "misc", Amount: 0},
	})

	totals, err := s.SumByCategory(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.CategoryTotal{{Category: "misc", Total: 0}, {Category: "refund", Total: -10.25}}, totals)

	top, err := s.TopCategory(ctx)
	require.NoError(t, err)
	assert.Equal(t, "misc", top.Category)
}

func testMonthAtCalendarEdges(t *testing.T, s ports.Store) {
	defer s.Close()
	ctx := context.Background()

	seed(t, s, []core.Expense{
		{Date: core.NewDate(9999, 12, 5), Category: "far", Amount: 1},
		{Date: core.NewDate(9999, 11, 30), Category: "far", Amount: 2},
		{Date: core.NewDate(1, 1, 15), Category: "early", Amount: 3},
	})

	dec, err := s.ListMonth(ctx, 9999, 12)
	require.NoError(t, err)
	require.Len(t, dec, 1)
	assert.Equal(t, "9999-12-05", dec[0].Date.String())

	jan, err := s.ListMonth(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, jan, 1)
	assert.Equal(t, "early", jan[0].Category)
}

func testTotalsRoundedToCents(t *testing.T, s ports.Store) {
	defer s.Close()
	ctx := context.Background()

	seed(t, s, []core.Expense{
		{Date: core.NewDate(2024, 4, 1), Category: "b", Amount: 0.1},
		{Date: core.NewDate(2024, 4, 2), Category: "b", Amount: 0.2},
		{Date: core.NewDate(2024, 4, 3), Category: "a", Amount: 0.3},
	})

	totals, err := s.SumByCategory(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.CategoryTotal{{Category: "a", Total: 0.3}, {Category: "b", Total: 0.3}}, totals)

	top, err := s.TopCategory(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.CategoryTotal{Category: "a", Total: 0.3}, top, "equal totals go to the lexically first category")
}

func testRevisionTracksWrites(t *testing.T, s ports.Store) {
	defer s.Close()
	ctx := context.Background()

	empty, err := s.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Revision{}, empty)

	created := seed(t, s, Fixture())
	full, err := s.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Revision{Count: 3, MaxID: created[2].ID}, full)

	_, err = s.DeleteAll(ctx)
	require.NoError(t, err)
	cleared, err := s.Revision(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, cleared.Count)

	seed(t, s, Fixture())
	refilled, err := s.Revision(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, full, refilled, "a refill after a clear must not repeat a revision")
}

func testLongTextFields(t *testing.T, s ports.Store) {
	defer s.Close()
	ctx := context.Background()

	long := core.Expense{
		Date:     core.NewDate(2024, 5, 1),
		Category: strings.Repeat("c", 120),
		Note:     strings.Repeat("n", 1000),
		Amount:   1,
	}
	seed(t, s, []core.Expense{long})

	all, err := s.ListExpenses(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, long.Category, all[0].Category)
	assert.Equal(t, long.Note, all[0].Note)
}
