package scraper

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProgressTrackerLifecycle(t *testing.T) {
	tracker := NewProgressTracker()

	_, ok := tracker.Get(1)
	require.False(t, ok, "venue that never ran has no snapshot")

	tracker.Begin(1, 10)
	tracker.AddSaved(1)
	tracker.AddSaved(1)
	tracker.AddSkipped(1)
	tracker.AddFailed(1)

	snapshot, ok := tracker.Get(1)
	require.True(t, ok)
	require.True(t, snapshot.Running)
	require.Equal(t, 10, snapshot.Total)
	require.Equal(t, 2, snapshot.Saved)
	require.Equal(t, 1, snapshot.Skipped)
	require.Equal(t, 1, snapshot.Failed)

	tracker.Finish(1)
	snapshot, _ = tracker.Get(1)
	require.False(t, snapshot.Running)
}

func TestProgressTrackerNewRunOverwrites(t *testing.T) {
	tracker := NewProgressTracker()

	tracker.Begin(1, 5)
	tracker.AddSaved(1)
	tracker.Finish(1)

	tracker.Begin(1, 3)
	snapshot, ok := tracker.Get(1)
	require.True(t, ok)
	require.Equal(t, 3, snapshot.Total)
	require.Equal(t, 0, snapshot.Saved)
	require.True(t, snapshot.Running)
}

func TestProgressTrackerIgnoresUnknownVenue(t *testing.T) {
	tracker := NewProgressTracker()
	tracker.AddSaved(42) // no Begin, must not panic

	_, ok := tracker.Get(42)
	require.False(t, ok)
}
