package decisionlog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nudge/internal/types"
)

func explanation(id string, allowed bool, ts time.Time) types.DecisionExplanation {
	return types.DecisionExplanation{
		ID:               id,
		Timestamp:        ts,
		App:              "com.example.feed",
		Type:             types.TypeSustainedUse,
		Allowed:          allowed,
		DecisionSource:   types.SourceApproved,
		OpportunityScore: 80,
		OpportunityLevel: "EXCELLENT",
		OpportunityBreakdown: map[string]int{
			"time_receptiveness": 20, "session_pattern": 25,
			"cognitive_load": 20, "historical_success": 10, "user_state": 5,
		},
		Persona:           "heavy",
		PersonaConfidence: "medium",
		PersonaPolicy:     "CONSERVATIVE",
		Gates: []types.GateResult{
			{Gate: "session_floor", Passed: true},
			{Gate: "global_cooldown", Passed: true},
		},
		BurdenScore:       0.2,
		BurdenLevel:       "low",
		BurdenReliable:    true,
		AppliedMultiplier: 1.2,
		SessionDuration:   45 * time.Minute,
		Summary:           "heavy persona, excellent moment",
	}
}

func TestSQLiteStore_AppendAndRecent(t *testing.T) {
	store, err := NewSQLiteStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	now := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)

	want := explanation("d1", true, now)
	require.NoError(t, store.Append(ctx, want))
	require.NoError(t, store.Append(ctx, explanation("d2", false, now.Add(time.Minute))))

	got, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "d2", got[0].ID, "newest first")

	// Full breakdown and gates survive the round trip.
	if diff := cmp.Diff(want.OpportunityBreakdown, got[1].OpportunityBreakdown); diff != "" {
		t.Fatalf("breakdown mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.Gates, got[1].Gates); diff != "" {
		t.Fatalf("gates mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteStore_ShownAndFeedbackSince(t *testing.T) {
	store, err := NewSQLiteStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	now := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, explanation("d1", true, now.Add(-2*time.Hour))))
	require.NoError(t, store.Append(ctx, explanation("d2", false, now.Add(-90*time.Minute))))
	require.NoError(t, store.Append(ctx, explanation("d3", true, now.Add(-time.Hour))))
	require.NoError(t, store.Append(ctx, explanation("d4", true, now.Add(-100*time.Hour))))

	shown, last, err := store.ShownSince(ctx, now.Add(-72*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 2, shown, "skipped decisions and old decisions excluded")
	require.True(t, last.Equal(now.Add(-time.Hour)))

	require.NoError(t, store.RecordFeedback(ctx, types.FeedbackHelpful, now.Add(-time.Hour)))
	require.NoError(t, store.RecordFeedback(ctx, types.FeedbackDisruptive, now.Add(-50*time.Minute)))
	require.NoError(t, store.RecordFeedback(ctx, types.FeedbackDisruptive, now.Add(-40*time.Minute)))

	helpful, disruptive, err := store.FeedbackSince(ctx, now.Add(-72*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, helpful)
	require.Equal(t, 2, disruptive)
}

func TestSQLiteStore_SuccessRate(t *testing.T) {
	store, err := NewSQLiteStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	rate, samples, err := store.SuccessRate(ctx, "com.example.feed", 14)
	require.NoError(t, err)
	require.Zero(t, samples, "no history degrades to zero samples, not an error")
	require.Zero(t, rate)

	require.NoError(t, store.RecordOutcome(ctx, "d1", "com.example.feed", 14, true))
	require.NoError(t, store.RecordOutcome(ctx, "d2", "com.example.feed", 14, true))
	require.NoError(t, store.RecordOutcome(ctx, "d3", "com.example.feed", 14, false))
	require.NoError(t, store.RecordOutcome(ctx, "d4", "com.example.feed", 20, true))

	rate, samples, err = store.SuccessRate(ctx, "com.example.feed", 14)
	require.NoError(t, err)
	require.Equal(t, 3, samples)
	require.InDelta(t, 2.0/3.0, rate, 1e-9)
}

// slowSink blocks until released, to fill the logger queue.
type slowSink struct {
	mu       sync.Mutex
	appended []string
	release  chan struct{}
}

func (s *slowSink) Append(_ context.Context, e types.DecisionExplanation) error {
	<-s.release
	s.mu.Lock()
	s.appended = append(s.appended, e.ID)
	s.mu.Unlock()
	return nil
}

func (s *slowSink) Close() error { return nil }

func TestLogger_DropsInsteadOfBlocking(t *testing.T) {
	sink := &slowSink{release: make(chan struct{})}
	l := NewLogger(sink, zap.NewNop(), 2)

	// One entry is taken by the writer and parks in Append; two fill the
	// queue; the rest must drop without blocking this goroutine.
	for i := 0; i < 10; i++ {
		l.Log(types.DecisionExplanation{ID: "e"})
	}
	if l.Dropped() == 0 {
		t.Fatal("expected drops with a full queue")
	}

	close(sink.release)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, l.Close(ctx))
}

type failingSink struct{}

func (failingSink) Append(context.Context, types.DecisionExplanation) error {
	return errors.New("disk full")
}
func (failingSink) Close() error { return nil }

func TestLogger_SinkFailureNeverPropagates(t *testing.T) {
	l := NewLogger(failingSink{}, zap.NewNop(), 4)

	// Must not panic or block.
	l.Log(types.DecisionExplanation{ID: "x"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, l.Close(ctx))

	// Logging after close is counted, not panicking.
	l.Log(types.DecisionExplanation{ID: "y"})
	require.GreaterOrEqual(t, l.Dropped(), int64(1))
}

func TestLogger_CloseFlushesPending(t *testing.T) {
	sink := &slowSink{release: make(chan struct{})}
	l := NewLogger(sink, zap.NewNop(), 8)

	l.Log(types.DecisionExplanation{ID: "a"})
	l.Log(types.DecisionExplanation{ID: "b"})
	close(sink.release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, l.Close(ctx))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.appended, 2)
}