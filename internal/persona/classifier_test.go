package persona

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nudge/internal/config"
	"nudge/internal/history"
)

func scoringCfg() config.ScoringConfig {
	return config.ScoringConfig{
		NightStartHour:       22,
		NightEndHour:         7,
		PersonaCacheValidity: "6h",
		BurdenMinSamples:     5,
	}
}

// seedDaily writes perDay usage split into two sessions per day for days
// days ending at now.
func seedDaily(t *testing.T, store history.Store, days int, perDay time.Duration, now time.Time) {
	t.Helper()
	ctx := context.Background()
	for d := 1; d <= days; d++ {
		day := now.AddDate(0, 0, -d)
		for i := 0; i < 2; i++ {
			start := day.Add(time.Duration(10+i*4) * time.Hour)
			require.NoError(t, store.RecordSession(ctx, history.UsageSession{
				ID:       fmt.Sprintf("s-%d-%d", d, i),
				App:      "com.example.feed",
				Start:    start,
				End:      start.Add(perDay / 2),
				Duration: perDay / 2,
			}))
		}
	}
}

func TestClassifier_NewInstallIsNewUser(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	store := history.NewMemoryStore(now.AddDate(0, 0, -1))

	c := NewClassifier(store, scoringCfg(), zap.NewNop())
	c.now = func() time.Time { return now }

	a := c.Detect(context.Background(), false)
	require.Equal(t, PersonaNewUser, a.Persona)
	require.Equal(t, ConfidenceLow, a.Confidence)
	require.Equal(t, PolicyOnboarding, PolicyFor(a.Persona))
}

func TestClassifier_UsageTiers(t *testing.T) {
	cases := []struct {
		perDay time.Duration
		want   Persona
	}{
		{5 * time.Hour, PersonaAddicted},
		{3 * time.Hour, PersonaHeavy},
		{90 * time.Minute, PersonaRegular},
		{30 * time.Minute, PersonaCasual},
		{5 * time.Minute, PersonaConscious},
	}

	for _, tc := range cases {
		t.Run(string(tc.want), func(t *testing.T) {
			now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
			store := history.NewMemoryStore(now.AddDate(0, 0, -60))
			seedDaily(t, store, 25, tc.perDay, now)

			c := NewClassifier(store, scoringCfg(), zap.NewNop())
			c.now = func() time.Time { return now }

			a := c.Detect(context.Background(), false)
			require.Equal(t, tc.want, a.Persona, "avg daily %v", a.AvgDailyUsage)
		})
	}
}

func TestClassifier_CacheAndForceRefresh(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	store := history.NewMemoryStore(now.AddDate(0, 0, -60))
	seedDaily(t, store, 25, 5*time.Hour, now)

	c := NewClassifier(store, scoringCfg(), zap.NewNop())
	c.now = func() time.Time { return now }

	first := c.Detect(context.Background(), false)
	require.Equal(t, PersonaAddicted, first.Persona)

	// Usage pattern collapses, but the cache still serves the old result.
	store2 := history.NewMemoryStore(now.AddDate(0, 0, -60))
	seedDaily(t, store2, 25, 5*time.Minute, now)
	c.store = store2

	cached := c.Detect(context.Background(), false)
	require.Equal(t, PersonaAddicted, cached.Persona)
	require.Equal(t, first.ComputedAt, cached.ComputedAt)

	refreshed := c.Detect(context.Background(), true)
	require.Equal(t, PersonaConscious, refreshed.Persona)
}

func TestClassifier_CacheExpires(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	store := history.NewMemoryStore(now.AddDate(0, 0, -60))
	seedDaily(t, store, 25, 5*time.Hour, now)

	c := NewClassifier(store, scoringCfg(), zap.NewNop())
	c.now = func() time.Time { return now }
	first := c.Detect(context.Background(), false)

	c.now = func() time.Time { return now.Add(7 * time.Hour) }
	second := c.Detect(context.Background(), false)
	require.True(t, second.ComputedAt.After(first.ComputedAt), "expired cache should recompute")
}

func TestPolicyTables_EveryPersonaBound(t *testing.T) {
	personas := []Persona{
		PersonaAddicted, PersonaHeavy, PersonaRegular,
		PersonaCasual, PersonaConscious, PersonaNewUser,
	}
	for _, p := range personas {
		name := PolicyFor(p)
		if _, ok := Rules[name]; !ok {
			t.Fatalf("persona %s bound to unknown policy %s", p, name)
		}
		if CooldownBase(p) <= 0 {
			t.Fatalf("persona %s has non-positive cooldown base", p)
		}
	}
}
