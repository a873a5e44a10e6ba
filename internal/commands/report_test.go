package commands_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotal(t *testing.T) {
	dir := newWorkspace(t)
	addExpense(t, dir, "12.50", "GBP", "Grocery")
	addExpense(t, dir, "10", "USD", "Gas")

	out, stderr, err := tallyIn(t, dir, "total")
	require.NoError(t, err)
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "25.82")
	assert.Contains(t, out, "(2)")
	assert.Contains(t, stderr, "fallback")
}

func TestTotal_ByCategory(t *testing.T) {
	dir := newWorkspace(t)
	addExpense(t, dir, "12.50", "GBP", "Grocery")
	addExpense(t, dir, "10", "USD", "Gas")
	addExpense(t, dir, "5", "USD", "Gas")

	out, _, err := tallyIn(t, dir, "total", "--by-category")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Grocery"), "largest first")
	assert.Contains(t, lines[0], "15.82")
	assert.True(t, strings.HasPrefix(lines[1], "Gas"))
	assert.Contains(t, lines[1], "15.00")
	assert.True(t, strings.HasPrefix(lines[2], "TOTAL"))
	assert.Contains(t, lines[2], "30.82")
}

func TestRates_Offline(t *testing.T) {
	dir := newWorkspace(t)

	out, stderr, err := tallyIn(t, dir, "rates")
	require.NoError(t, err)
	assert.Contains(t, out, "Base: USD (source: fallback)")
	assert.Contains(t, out, "GBP")
	assert.Contains(t, out, "0.79")
	assert.Contains(t, out, "48.5")
	assert.NotContains(t, stderr, "live rates unavailable")
}

func TestRates_All(t *testing.T) {
	dir := newWorkspace(t)
	cfg := "rates:\n  fallback:\n    USD: \"1\"\n    GBP: \"0.79\"\n    EUR: \"0.92\"\n    EGP: \"48.50\"\n    JPY: \"150\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tally.yaml"), []byte(cfg), 0o644))

	out, _, err := tallyIn(t, dir, "rates")
	require.NoError(t, err)
	assert.NotContains(t, out, "JPY", "only offered currencies by default")

	out, _, err = tallyIn(t, dir, "rates", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "JPY")
	assert.Contains(t, out, "150")
}

func TestTotal_WarnsOffline(t *testing.T) {
	dir := newWorkspace(t)
	addExpense(t, dir, "1", "USD", "Gas")

	_, stderr, err := tallyIn(t, dir, "total")
	require.NoError(t, err)
	assert.Contains(t, stderr, "warning: using fallback currency rates (offline)")
}

func TestLog(t *testing.T) {
	dir := newWorkspace(t)

	out, _, err := tallyIn(t, dir, "log")
	require.NoError(t, err)
	assert.Contains(t, out, "No activity yet.")

	short := addExpense(t, dir, "1", "USD", "Gas")
	_, _, err = tallyIn(t, dir, "delete", short)
	require.NoError(t, err)

	out, _, err = tallyIn(t, dir, "log")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "add")
	assert.Contains(t, lines[1], short)
	assert.Contains(t, lines[2], "delete")

	out, _, err = tallyIn(t, dir, "log", "-n", "1")
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "delete")
}
