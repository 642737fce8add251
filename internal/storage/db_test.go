package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelbill/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestInsertAndListRuns(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)

	require.NoError(t, db.InsertRun(internal.RunRecord{
		ID:          "run-1",
		InputPath:   "/bills/march.xlsx",
		OutputPath:  "/bills/march_处理结果.xlsx",
		InputHash:   "abc",
		HeaderRow:   2,
		ColumnMap:   map[string]int{"flight_date": 1, "route": 2},
		Counts:      map[string]int{"total": 3, "emitted": 2},
		Status:      internal.RunOK,
		StartedAt:   base,
		FinishedAt:  base.Add(1500 * time.Millisecond),
		DurationsMs: map[string]float64{"totalMs": 1500},
	}))
	require.NoError(t, db.InsertRun(internal.RunRecord{
		ID:         "run-2",
		InputPath:  "/bills/april.xlsx",
		InputHash:  "def",
		Status:     internal.RunFailed,
		Error:      "no valid rows",
		StartedAt:  base.Add(time.Hour),
		FinishedAt: base.Add(time.Hour),
	}))

	runs, err := db.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, internal.RunFailed, runs[0].Status)
	assert.Equal(t, "no valid rows", runs[0].Error)
	assert.Empty(t, runs[0].Counts)

	first := runs[1]
	assert.Equal(t, 2, first.HeaderRow)
	assert.Equal(t, map[string]int{"flight_date": 1, "route": 2}, first.ColumnMap)
	assert.Equal(t, 2, first.Counts["emitted"])
	assert.InDelta(t, 1500, first.DurationsMs["totalMs"], 0.001)
	assert.True(t, base.Equal(first.StartedAt))

	runs, err = db.ListRuns(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestHasProcessedOnlyCountsSuccess(t *testing.T) {
	db := openTestDB(t)
	now := time.Now()
	require.NoError(t, db.InsertRun(internal.RunRecord{ID: "a", InputPath: "x", InputHash: "ok-hash", Status: internal.RunOK, StartedAt: now, FinishedAt: now}))
	require.NoError(t, db.InsertRun(internal.RunRecord{ID: "b", InputPath: "y", InputHash: "bad-hash", Status: internal.RunFailed, StartedAt: now, FinishedAt: now}))

	for hash, want := range map[string]bool{"ok-hash": true, "bad-hash": false, "unknown": false, "": false} {
		got, err := db.HasProcessed(hash)
		require.NoError(t, err)
		assert.Equal(t, want, got, hash)
	}
}

func TestMetadata(t *testing.T) {
	db := openTestDB(t)

	v, err := db.GetMetadata("watcher.lastCycleAt")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, db.SetMetadata("watcher.lastCycleAt", "2024-03-05T08:00:00Z"))
	require.NoError(t, db.SetMetadata("watcher.lastCycleAt", "2024-03-05T09:00:00Z"))
	v, err = db.GetMetadata("watcher.lastCycleAt")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "2024-03-05T09:00:00Z", *v)
}

func TestInsertRunRejectsDuplicateID(t *testing.T) {
	db := openTestDB(t)
	run := internal.RunRecord{ID: "dup", InputPath: "x", Status: internal.RunOK, StartedAt: time.Now(), FinishedAt: time.Now()}
	require.NoError(t, db.InsertRun(run))
	assert.Error(t, db.InsertRun(run))
}
