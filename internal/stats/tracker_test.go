package stats

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T, now time.Time) *Tracker {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "stats.db"), "test")
	require.NoError(t, err)
	tracker, err := NewTracker(store, "12:01")
	require.NoError(t, err)
	tracker.now = func() time.Time { return now }
	return tracker
}

func TestTrackerWritesOncePastCutoff(t *testing.T) {
	tracker := newTestTracker(t, time.Date(2026, 8, 28, 13, 0, 0, 0, time.UTC))

	_, err := tracker.Update(1.5, 100, 8000, true)
	require.NoError(t, err)

	// A later cycle the same day must not overwrite the record.
	_, err = tracker.Update(9.9, 999, 9999, true)
	require.NoError(t, err)

	ring, err := tracker.store.Load()
	require.NoError(t, err)
	day := DayKey(tracker.now())
	require.NotNil(t, ring.Get(day))
	assert.Equal(t, 1.5, ring.Get(day).MarginBalance)
}

func TestTrackerSkipsBeforeCutoff(t *testing.T) {
	tracker := newTestTracker(t, time.Date(2026, 8, 28, 11, 0, 0, 0, time.UTC))

	_, err := tracker.Update(1.5, 100, 8000, true)
	require.NoError(t, err)

	ring, err := tracker.store.Load()
	require.NoError(t, err)
	assert.Empty(t, ring.Days)
}

func TestTrackerReadOnly(t *testing.T) {
	tracker := newTestTracker(t, time.Date(2026, 8, 28, 13, 0, 0, 0, time.UTC))

	today, err := tracker.Update(1.5, 100, 8000, false)
	require.NoError(t, err)
	assert.Equal(t, 1.5, today.MarginBalance)

	ring, err := tracker.store.Load()
	require.NoError(t, err)
	assert.Empty(t, ring.Days)
}

func TestTrackerChangesAcrossDays(t *testing.T) {
	tracker := newTestTracker(t, time.Date(2026, 8, 27, 13, 0, 0, 0, time.UTC))
	_, err := tracker.Update(2, 100, 8000, true)
	require.NoError(t, err)

	tracker.now = func() time.Time { return time.Date(2026, 8, 28, 13, 0, 0, 0, time.UTC) }
	today, err := tracker.Update(3, 110, 8800, true)
	require.NoError(t, err)

	require.NotNil(t, today.MarginBalanceChange)
	assert.Equal(t, 50.0, *today.MarginBalanceChange)
	require.NotNil(t, today.PriceChange)
	assert.Equal(t, 10.0, *today.PriceChange)
}

func TestStoreRoundtrip(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "stats.db"), "test")
	require.NoError(t, err)

	ring, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, ring.Days)

	ring.Add(2026100, DailyStat{MarginBalance: 1.5, Price: 8000})
	require.NoError(t, store.Save(ring))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded.Get(2026100))
	assert.Equal(t, 8000.0, loaded.Get(2026100).Price)
}
