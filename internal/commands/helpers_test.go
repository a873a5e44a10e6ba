package commands_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tally-dev/tally/internal/commands"
	"github.com/tally-dev/tally/internal/model"
)

// runTally executes the CLI in-process and returns stdout and stderr.
func runTally(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := commands.NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// newWorkspace initializes a workspace and returns its directory.
func newWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, _, err := runTally(t, "init", dir)
	require.NoError(t, err)
	return dir
}

// tallyIn runs a command against dir without touching the network.
func tallyIn(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	return runTally(t, append([]string{"--dir", dir, "--offline"}, args...)...)
}

func readExpenses(t *testing.T, dir string) []model.Expense {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "expenses.json"))
	require.NoError(t, err)
	var list []model.Expense
	require.NoError(t, json.Unmarshal(data, &list))
	return list
}

func addExpense(t *testing.T, dir, amount, currency, category string) string {
	t.Helper()
	out, _, err := tallyIn(t, dir, "add",
		"--amount", amount, "--currency", currency, "--category", category,
		"--payment", "Cash", "--date", "2025-03-01")
	require.NoError(t, err)
	fields := strings.Fields(out)
	require.GreaterOrEqual(t, len(fields), 2)
	return fields[1]
}
