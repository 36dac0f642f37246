package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(dir, "ledger.db"))
	t.Setenv("CACHE_TTL", "0")
	t.Setenv("AMQP_URL", "")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return out.String(), err
}

func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, "", args...)
	require.NoError(t, err, "ledger %s", strings.Join(args, " "))
	return out
}

func seedFixture(t *testing.T) {
	t.Helper()
	mustExecute(t, "add", "--category", "Food", "--amount", "20", "--date", "2024-01-05", "--note", "lunch")
	mustExecute(t, "add", "-c", "food", "-a", "30", "-d", "2024-01-20", "-n", "dinner")
	mustExecute(t, "add", "-c", "transit", "-a", "10", "-d", "2024-02-01", "-n", "bus")
}

func TestAddAndSummary(t *testing.T) {
	setupEnv(t)

	out := mustExecute(t, "add", "--category", "Food", "--amount", "20", "--date", "2024-01-05", "--note", "lunch")
	assert.Contains(t, out, "Expense Added!")
	assert.Contains(t, out, "Category is food")
	assert.Contains(t, out, "Amount is 20.00")

	mustExecute(t, "add", "-c", "food", "-a", "30", "-d", "2024-01-20", "-n", "dinner")
	mustExecute(t, "add", "-c", "transit", "-a", "10", "-d", "2024-02-01", "-n", "bus")

	out = mustExecute(t, "summary")
	assert.Contains(t, out, "Category: food Total Amount: 50.00")
	assert.Contains(t, out, "Category: transit Total Amount: 10.00")
	assert.Contains(t, out, "Most money spent on:\nCategory: food Amount: 50.00")
}

func TestAddValidation(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "", "add", "--category", "food", "--amount", "abc")
	require.ErrorIs(t, err, core.ErrValidation)

	_, err = execute(t, "", "add", "--amount", "1", "--date", "2024-13-01")
	require.ErrorIs(t, err, core.ErrValidation)

	_, err = execute(t, "", "add", "--category", "food")
	require.Error(t, err, "--amount is required")

	out := mustExecute(t, "summary")
	assert.Contains(t, out, "No expenses recorded yet.")
}

func TestReportAndChart(t *testing.T) {
	setupEnv(t)
	seedFixture(t)

	out := mustExecute(t, "report", "--year", "2024", "--month", "1")
	assert.Contains(t, out, "--- Expense Report for 2024-01 ---")
	assert.Contains(t, out, "Note: lunch")
	assert.Contains(t, out, "Note: dinner")
	assert.NotContains(t, out, "Note: bus")

	out = mustExecute(t, "report", "--year", "2023", "--month", "1")
	assert.Contains(t, out, "No expenses in this month.")

	_, err := execute(t, "", "report", "--year", "2024", "--month", "13")
	assert.ErrorIs(t, err, core.ErrValidation)

	out = mustExecute(t, "chart")
	assert.Contains(t, out, "83.3%")
	assert.Contains(t, out, "16.7%")
}

func TestChartEmpty(t *testing.T) {
	setupEnv(t)
	assert.Contains(t, mustExecute(t, "chart"), "No expenses to show chart!")
}

func TestExportAndImport(t *testing.T) {
	dir := setupEnv(t)
	seedFixture(t)

	out := mustExecute(t, "export", "--format", "json")
	var records []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 3)
	assert.Equal(t, "lunch", records[0]["note"])

	file := filepath.Join(dir, "expenses.csv")
	mustExecute(t, "export", "-f", "csv", "-o", file)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "id,date,category,note,amount\n"))

	_, err = execute(t, "", "export", "--format", "xml")
	assert.ErrorIs(t, err, core.ErrValidation)

	mustExecute(t, "clear", "--yes")
	out = mustExecute(t, "import", "--format", "csv", "--in", file)
	assert.Contains(t, out, "Imported 3 expenses.")
	assert.Contains(t, mustExecute(t, "summary"), "Category: food Total Amount: 50.00")
}

func TestClear(t *testing.T) {
	setupEnv(t)
	seedFixture(t)

	_, err := execute(t, "", "clear")
	require.Error(t, err)
	assert.Contains(t, mustExecute(t, "summary"), "Category: food", "nothing is deleted without --yes")

	assert.Contains(t, mustExecute(t, "clear", "--yes"), "All expenses deleted.")
	assert.Contains(t, mustExecute(t, "summary"), "No expenses recorded yet.")
	mustExecute(t, "clear", "--yes")
}

func TestMenuIsDefault(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "1\nFood\n12,5\n2024-03-01\ncoffee\n2\n5\n")
	require.NoError(t, err)
	assert.Contains(t, out, "--- Expense Tracker ---")
	assert.Contains(t, out, "Category is food")
	assert.Contains(t, out, "Category: food Total Amount: 12.50")
	assert.Contains(t, out, "Goodbye!")
}

func TestInvalidConfig(t *testing.T) {
	setupEnv(t)
	t.Setenv("DATA_BACKEND", "mongo")

	_, err := execute(t, "", "summary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid data backend")
}
