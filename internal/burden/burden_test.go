package burden

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"nudge/internal/config"
)

type fakeSource struct {
	shown      int
	lastShown  time.Time
	helpful    int
	disruptive int
	err        error
}

func (f *fakeSource) ShownSince(context.Context, time.Time) (int, time.Time, error) {
	return f.shown, f.lastShown, f.err
}

func (f *fakeSource) FeedbackSince(context.Context, time.Time) (int, int, error) {
	return f.helpful, f.disruptive, f.err
}

func cfg() config.ScoringConfig {
	return config.ScoringConfig{BurdenWindow: "72h", BurdenMinSamples: 5}
}

func TestTracker_UnreliableBelowMinSamples(t *testing.T) {
	tr := NewTracker(&fakeSource{shown: 3}, cfg(), zap.NewNop())

	m := tr.Current(context.Background())
	if m.Reliable {
		t.Fatal("3 samples should be unreliable with min 5")
	}
	if got := m.RecommendedMultiplier(); got != 1.0 {
		t.Fatalf("unreliable multiplier=%v, want neutral 1.0", got)
	}
}

func TestTracker_MultiplierGrowsWithBurden(t *testing.T) {
	now := time.Now()

	light := NewTracker(&fakeSource{shown: 5, lastShown: now.Add(-24 * time.Hour), helpful: 4, disruptive: 1}, cfg(), zap.NewNop())
	heavy := NewTracker(&fakeSource{shown: 12, lastShown: now.Add(-10 * time.Minute), helpful: 0, disruptive: 6}, cfg(), zap.NewNop())

	ml := light.Current(context.Background())
	mh := heavy.Current(context.Background())

	if !ml.Reliable || !mh.Reliable {
		t.Fatal("both samples should be reliable")
	}
	if ml.RecommendedMultiplier() >= mh.RecommendedMultiplier() {
		t.Fatalf("light=%v heavy=%v: multiplier must rise with burden",
			ml.RecommendedMultiplier(), mh.RecommendedMultiplier())
	}
	if ml.RecommendedMultiplier() < 1.0 {
		t.Fatalf("multiplier %v below 1.0", ml.RecommendedMultiplier())
	}
	if mh.RecommendedMultiplier() > 2.0 {
		t.Fatalf("multiplier %v above cap 2.0", mh.RecommendedMultiplier())
	}
	if mh.Level != LevelHigh {
		t.Fatalf("heavy burden level=%s, want high", mh.Level)
	}
}

func TestTracker_LookupFailureDegrades(t *testing.T) {
	tr := NewTracker(&fakeSource{err: errors.New("sink gone")}, cfg(), zap.NewNop())

	m := tr.Current(context.Background())
	if m.Reliable {
		t.Fatal("failed lookup must be unreliable")
	}
	if got := m.RecommendedMultiplier(); got != 1.0 {
		t.Fatalf("multiplier=%v, want 1.0", got)
	}
}
