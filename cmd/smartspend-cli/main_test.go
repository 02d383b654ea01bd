package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"smartspend/internal/store/memory"
)

func writeSeed(t *testing.T) string {
	t.Helper()
	raw, err := memory.EncodeSeed(memory.DemoExpenses())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "expenses.yaml")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DEFAULT_CURRENCY", "")
	t.Setenv("SEED_FILE", "")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSummary(t *testing.T) {
	out, err := run(t, "summary", "--file", writeSeed(t))
	require.NoError(t, err)

	assert.Contains(t, out, "Total Spent:     ₹1,000 (3 transactions)")
	assert.Contains(t, out, "Average Expense: ₹333.33")
	assert.Contains(t, out, "Top Category:    Entertainment (₹600)")
	assert.Contains(t, out, "60%")
}

func TestSummaryJSONInUSD(t *testing.T) {
	out, err := run(t, "summary", "--json", "--currency", "usd", "--file", writeSeed(t))
	require.NoError(t, err)

	var got summaryOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "USD", string(got.Currency))
	assert.Equal(t, 3, got.Count)
	assert.Equal(t, int64(100000), got.TotalCents)
	assert.Equal(t, "Entertainment", got.Top)
	require.Len(t, got.ByCategory, 3)
	assert.Equal(t, "Food & Dining", got.ByCategory[0].Category)
}

func TestSummaryEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("[]\n"), 0o644))

	out, err := run(t, "summary", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No expenses yet")
}

func TestSummaryMissingFileUsesDemo(t *testing.T) {
	out, err := run(t, "summary", "--file", filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "3 transactions")
}

func TestSummaryMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- title: Coffee\n  amount: abc\n  date: 2024-01-15\n"), 0o644))

	_, err := run(t, "summary", "--file", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load expenses")
}

func TestInsight(t *testing.T) {
	out, err := run(t, "insight", "--no-delay", "--file", writeSeed(t))
	require.NoError(t, err)

	assert.Contains(t, out, "Your Spending Insights (INR)")
	assert.Contains(t, out, "- Your total spending is ₹1000.00 across 3 transactions.")
	assert.Contains(t, out, "- Your highest spending category is Entertainment with ₹600.00.")
}

func TestExport(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.xlsx")
	out, err := run(t, "export", "--out", dest, "--file", writeSeed(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 3 expenses")

	f, err := excelize.OpenFile(dest)
	require.NoError(t, err)
	defer f.Close()
	assert.NotEmpty(t, f.GetSheetList())
}

func TestUnknownCommand(t *testing.T) {
	_, err := run(t, "budget")
	assert.Error(t, err)
}
