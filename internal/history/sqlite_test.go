package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_RecordAndQuery(t *testing.T) {
	store, err := NewSQLiteStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	sessions := []UsageSession{
		{ID: "s1", App: "com.example.feed", Start: base, End: base.Add(10 * time.Minute), Duration: 10 * time.Minute},
		{ID: "s2", App: "com.example.feed", Start: base.Add(time.Hour), End: base.Add(70 * time.Minute), Duration: 10 * time.Minute},
		{ID: "s3", App: "com.example.video", Start: base.Add(2 * time.Hour), End: base.Add(130 * time.Minute), Duration: 10 * time.Minute},
		{ID: "s4", App: "com.example.feed", Start: base.Add(26 * time.Hour), End: base.Add(26*time.Hour + 5*time.Minute), Duration: 5 * time.Minute},
	}
	for _, s := range sessions {
		require.NoError(t, store.RecordSession(ctx, s))
	}

	day, err := store.SessionsBetween(ctx, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, day, 3)

	feed, err := store.AppSessions(ctx, "com.example.feed", base, base.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, feed, 3)
	require.Equal(t, "s1", feed[0].ID)
	require.Equal(t, 10*time.Minute, feed[0].Duration)
}

func TestSQLiteStore_GoalRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	g, err := store.Goal(ctx, "com.example.feed")
	require.NoError(t, err)
	require.Nil(t, g, "unset goal should be nil, not an error")

	require.NoError(t, store.SetGoal(ctx, Goal{App: "com.example.feed", DailyLimitMinutes: 60, StreakDays: 4}))
	require.NoError(t, store.SetGoal(ctx, Goal{App: "com.example.feed", DailyLimitMinutes: 45, StreakDays: 5}))

	g, err = store.Goal(ctx, "com.example.feed")
	require.NoError(t, err)
	require.NotNil(t, g)
	require.Equal(t, 45, g.DailyLimitMinutes)
	require.Equal(t, 5, g.StreakDays)
}

func TestSQLiteStore_InstallDateStable(t *testing.T) {
	dir := t.TempDir()

	store, err := NewSQLiteStore(dir)
	require.NoError(t, err)
	first, err := store.InstallDate(context.Background())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopen: install date must not move.
	store, err = NewSQLiteStore(dir)
	require.NoError(t, err)
	defer store.Close()
	again, err := store.InstallDate(context.Background())
	require.NoError(t, err)
	require.True(t, first.Equal(again), "install date changed across reopen")
}
