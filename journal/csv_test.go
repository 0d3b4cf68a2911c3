package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVJournal_WritesHeadersAndRows(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	execPath := filepath.Join(dir, "executions.csv")
	eqPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(execPath, eqPath)
	require.NoError(t, err)

	require.NoError(t, j.RecordExecution(sampleExecution()))
	require.NoError(t, j.RecordEquity(EquitySnapshot{
		Time:   time.Date(2025, 3, 10, 9, 15, 0, 0, time.UTC),
		Equity: 100_000,
	}))
	require.NoError(t, j.Close())

	execRows := readCSV(t, execPath)
	require.Len(t, execRows, 2)
	assert.Equal(t, "trade_id", execRows[0][0])
	assert.Equal(t, "exit_iv", execRows[0][len(execRows[0])-1])
	assert.Equal(t, "01HXYZ", execRows[1][0])
	assert.Equal(t, "BUY", execRows[1][1])
	assert.Equal(t, "true", execRows[1][10])

	eqRows := readCSV(t, eqPath)
	require.Len(t, eqRows, 2)
	assert.Equal(t, []string{"time", "equity"}, eqRows[0])
	assert.Equal(t, "2025-03-10T09:15:00Z", eqRows[1][0])
}

func TestCSVJournal_FlushPerRecord(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	execPath := filepath.Join(dir, "executions.csv")
	j, err := NewCSV(execPath, filepath.Join(dir, "equity.csv"))
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.RecordExecution(sampleExecution()))

	// Visible on disk before Close.
	rows := readCSV(t, execPath)
	assert.Len(t, rows, 2)
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}
