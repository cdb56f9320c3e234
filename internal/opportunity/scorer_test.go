package opportunity

import (
	"testing"
	"time"

	"nudge/internal/snapshot"
)

func midday(dur time.Duration) *snapshot.InterventionContext {
	return &snapshot.InterventionContext{
		App:             "com.example.feed",
		Now:             time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC),
		SessionDuration: dur,
	}
}

func TestScore_BoundsAndBreakdownSum(t *testing.T) {
	contexts := []*snapshot.InterventionContext{
		midday(45 * time.Minute),
		midday(30 * time.Second),
		{
			Now:              time.Date(2026, 3, 14, 2, 0, 0, 0, time.UTC),
			SessionDuration:  time.Minute,
			UnusualHour:      true,
			RapidSwitching:   true,
			CompulsiveReopen: true,
		},
		{
			Now:               time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
			SessionDuration:   2 * time.Hour,
			ExcessiveUnlocks:  true,
			LongScreenOn:      true,
			HistoricalSuccess: 1.0,
			SuccessSamples:    20,
		},
	}

	for i, ic := range contexts {
		a := Score(ic)
		if a.Score < 0 || a.Score > 100 {
			t.Fatalf("case %d: score %d out of [0,100]", i, a.Score)
		}
		sum := 0
		for name, v := range a.Breakdown {
			if v < 0 {
				t.Fatalf("case %d: component %s negative", i, name)
			}
			sum += v
		}
		if sum != a.Score && a.Score != 100 {
			t.Fatalf("case %d: breakdown sums to %d, score %d", i, sum, a.Score)
		}
		if len(a.Breakdown) != 5 {
			t.Fatalf("case %d: breakdown has %d components, want 5", i, len(a.Breakdown))
		}
	}
}

func TestScore_ComponentCeilings(t *testing.T) {
	ic := &snapshot.InterventionContext{
		Now:               time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		SessionDuration:   3 * time.Hour,
		TodaySessionCount: 2,
		UsageToday:        20 * time.Minute,
		ExcessiveUnlocks:  true,
		LongScreenOn:      true,
		HistoricalSuccess: 1.0,
		SuccessSamples:    50,
	}
	a := Score(ic)

	ceilings := map[string]int{
		ComponentTime:      20,
		ComponentSession:   25,
		ComponentLoad:      20,
		ComponentHistory:   20,
		ComponentUserState: 15,
	}
	for name, ceil := range ceilings {
		if a.Breakdown[name] > ceil {
			t.Fatalf("component %s=%d exceeds ceiling %d", name, a.Breakdown[name], ceil)
		}
	}
}

func TestLevelThresholdsMonotonic(t *testing.T) {
	order := map[Level]int{LevelPoor: 0, LevelModerate: 1, LevelGood: 2, LevelExcellent: 3}
	prev := LevelPoor
	for score := 0; score <= 100; score++ {
		lvl := LevelFor(score)
		if order[lvl] < order[prev] {
			t.Fatalf("level dropped from %s to %s at score %d", prev, lvl, score)
		}
		prev = lvl
	}
	if LevelFor(24) != LevelPoor || LevelFor(25) != LevelModerate {
		t.Fatal("POOR/MODERATE boundary wrong")
	}
	if LevelFor(49) != LevelModerate || LevelFor(50) != LevelGood {
		t.Fatal("MODERATE/GOOD boundary wrong")
	}
	if LevelFor(74) != LevelGood || LevelFor(75) != LevelExcellent {
		t.Fatal("GOOD/EXCELLENT boundary wrong")
	}
}

func TestScore_HintSkipOnlyBelowThreshold(t *testing.T) {
	// Night + frazzled + tiny session: poor moment.
	bad := Score(&snapshot.InterventionContext{
		Now:              time.Date(2026, 3, 14, 3, 0, 0, 0, time.UTC),
		SessionDuration:  time.Minute,
		UnusualHour:      true,
		RapidSwitching:   true,
		CompulsiveReopen: true,
	})
	if bad.Hint != HintSkip {
		t.Fatalf("score %d level %s: want SKIP hint", bad.Score, bad.Level)
	}

	// Midday long session: good moment.
	good := Score(midday(45 * time.Minute))
	if good.Hint != HintShow {
		t.Fatalf("score %d level %s: want SHOW hint", good.Score, good.Level)
	}
}

func TestScore_HistoricalSuccessNeutralWithoutHistory(t *testing.T) {
	a := Score(midday(10 * time.Minute))
	if a.Breakdown[ComponentHistory] != 10 {
		t.Fatalf("no-history success component=%d, want neutral 10", a.Breakdown[ComponentHistory])
	}
}

func TestScore_Deterministic(t *testing.T) {
	ic := midday(20 * time.Minute)
	first := Score(ic)
	for i := 0; i < 10; i++ {
		if got := Score(ic); got.Score != first.Score {
			t.Fatalf("score changed across calls: %d vs %d", got.Score, first.Score)
		}
	}
}
