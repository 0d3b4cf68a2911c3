package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleExecution() ExecutionRecord {
	return ExecutionRecord{
		TradeID:    "01HXYZ",
		Side:       "BUY",
		EntryPrice: 100,
		ExitPrice:  130,
		Quantity:   50,
		OpenTime:   time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC),
		CloseTime:  time.Date(2025, 3, 10, 10, 5, 0, 0, time.UTC),
		PnL:        1500,
		ReturnPct:  30,
		Reason:     "PARTIAL_TARGET",
		Partial:    true,
		Strike:     22500,
		EntryIV:    24.5,
		ExitIV:     26.1,
	}
}

func TestSQLiteJournal_RoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.sqlite")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	defer j.Close()

	rec := sampleExecution()
	require.NoError(t, j.RecordExecution(rec))

	second := rec
	second.TradeID = "01HABC"
	second.Partial = false
	second.CloseTime = rec.CloseTime.Add(5 * time.Minute)
	require.NoError(t, j.RecordExecution(second))

	got, err := j.ListExecutions()
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "01HXYZ", got[0].TradeID)
	assert.Equal(t, "BUY", got[0].Side)
	assert.True(t, got[0].Partial)
	assert.InDelta(t, 1500.0, got[0].PnL, 1e-9)
	assert.InDelta(t, 24.5, got[0].EntryIV, 1e-9)
	assert.Equal(t, "01HABC", got[1].TradeID)
	assert.False(t, got[1].Partial)
}

func TestSQLiteJournal_Equity(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.sqlite")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	defer j.Close()

	base := time.Date(2025, 3, 10, 9, 15, 0, 0, time.UTC)
	for i, eq := range []float64{100_000, 101_500, 101_000} {
		require.NoError(t, j.RecordEquity(EquitySnapshot{
			Time:   base.Add(time.Duration(i) * time.Minute),
			Equity: eq,
		}))
	}

	got, err := j.ListEquity()
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.InDelta(t, 100_000.0, got[0].Equity, 1e-9)
	assert.InDelta(t, 101_000.0, got[2].Equity, 1e-9)
}

func TestSQLiteJournal_Reopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.sqlite")

	j, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, j.RecordExecution(sampleExecution()))
	require.NoError(t, j.Close())

	// Schema creation is idempotent and data survives reopen.
	j2, err := NewSQLite(path)
	require.NoError(t, err)
	defer j2.Close()

	got, err := j2.ListExecutions()
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
