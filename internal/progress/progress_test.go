package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSnapshot_CountsAndETA(t *testing.T) {
	t.Parallel()

	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := newTracker(func() time.Time { return clock })

	tr.AddPending(10)
	clock = clock.Add(20 * time.Second)
	for i := 0; i < 4; i++ {
		tr.ItemDone(25, false)
	}
	tr.ItemDone(0, true)
	tr.ItemSkipped()

	snap := tr.Snapshot()
	require.Equal(t, 5, snap.Completed)
	require.Equal(t, 1, snap.Failed)
	require.Equal(t, 1, snap.Skipped)
	require.Equal(t, 5, snap.Pending)
	require.Equal(t, 100, snap.Holdings, "failed items contribute no holdings")
	require.Equal(t, 20*time.Second, snap.Elapsed)
	require.Equal(t, 4*time.Second, snap.AvgPerItem)
	require.Equal(t, 20*time.Second, snap.ETA, "5 pending at 4s per item")
	require.Equal(t, "00:00:20", snap.ElapsedText)
	require.Equal(t, "00:00:20", snap.ETAText)
}

func TestSnapshot_NoCompletedItems(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.AddPending(100)

	snap := tr.Snapshot()
	require.Equal(t, 100, snap.Pending)
	require.Zero(t, snap.AvgPerItem)
	require.Zero(t, snap.ETA)
	require.Equal(t, "00:00:00", snap.ETAText)
}

func TestItemDone_PendingNeverNegative(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.ItemDone(1, false)
	require.Equal(t, 0, tr.Snapshot().Pending)
}

func TestFormatClock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{59 * time.Second, "00:00:59"},
		{61 * time.Second, "00:01:01"},
		{3*time.Hour + 25*time.Minute + 45*time.Second, "03:25:45"},
		{-time.Minute, "00:00:00"},
		{26 * time.Hour, "26:00:00"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, FormatClock(tt.d))
	}
}
