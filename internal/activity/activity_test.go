package activity

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp:  testTime,
		Action:     "add",
		ExpenseIDs: []string{"3f1c2a9e-1111-4c1e-9d2b-000000000001"},
		Details:    "12.50 GBP Grocery via Cash on 2025-01-15",
		CommitHash: "abc1234",
	}
}

func TestAppend_NewFile(t *testing.T) {
	log := New(t.TempDir())
	require.NoError(t, log.Append(testEntry()))

	entries, err := log.Read()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "add", entries[0].Action)

	data, err := os.ReadFile(log.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), Header+"\n")
}

func TestAppend_ExistingFile(t *testing.T) {
	log := New(t.TempDir())
	require.NoError(t, log.Append(testEntry()))

	e2 := testEntry()
	e2.Action = "delete"
	e2.ExpenseIDs = []string{"a", "b"}
	require.NoError(t, log.Append(e2))

	entries, err := log.Read()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "add", entries[0].Action)
	assert.Equal(t, []string{"a", "b"}, entries[1].ExpenseIDs)
}

func TestRead_RoundTrip(t *testing.T) {
	log := New(t.TempDir())
	original := testEntry()
	original.Details = `quoted "details", with comma`
	require.NoError(t, log.Append(original))

	entries, err := log.Read()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.True(t, original.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, original.Action, got.Action)
	assert.Equal(t, original.ExpenseIDs, got.ExpenseIDs)
	assert.Equal(t, original.Details, got.Details)
	assert.Equal(t, original.CommitHash, got.CommitHash)
}

func TestRead_NoIDs(t *testing.T) {
	log := New(t.TempDir())
	e := testEntry()
	e.Action = "clear"
	e.ExpenseIDs = nil
	require.NoError(t, log.Append(e))

	entries, err := log.Read()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].ExpenseIDs)
}

func TestRead_NotFound(t *testing.T) {
	entries, err := New(t.TempDir()).Read()
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestRead_Malformed(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "logs"), 0o755))
	content := Header + "\nyesterday,add,,x,\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "logs", "activity.csv"), []byte(content), 0o644))

	_, err := New(root).Read()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestTail(t *testing.T) {
	log := New(t.TempDir())
	for _, action := range []string{"add", "update", "delete"} {
		e := testEntry()
		e.Action = action
		require.NoError(t, log.Append(e))
	}

	last, err := log.Tail(2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "update", last[0].Action)
	assert.Equal(t, "delete", last[1].Action)

	all, err := log.Tail(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
