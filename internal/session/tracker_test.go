package session

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"nudge/internal/config"
)

func testCfg() config.SessionConfig {
	return config.SessionConfig{
		GraceWindow:       "45s",
		BaseThreshold:     "20m",
		MinSessionGap:     "2m",
		CompulsiveWindow:  "5m",
		CompulsiveReopens: 3,
	}
}

type recorder struct {
	events []Event
}

func (r *recorder) record(e Event) { r.events = append(r.events, e) }

func (r *recorder) kinds() []EventKind {
	out := make([]EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func TestTracker_StartContinueAccumulate(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(testCfg(), zap.NewNop(), rec.record)

	t0 := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	tr.OnForegroundSignal("com.example.feed", t0)
	tr.OnForegroundSignal("com.example.feed", t0.Add(5*time.Second))
	tr.OnForegroundSignal("com.example.feed", t0.Add(10*time.Second))

	cur := tr.Current()
	if cur == nil {
		t.Fatal("expected open session")
	}
	if cur.Accumulated != 10*time.Second {
		t.Fatalf("Accumulated=%v, want 10s", cur.Accumulated)
	}
	if got := rec.kinds(); len(got) != 3 || got[0] != EventStarted || got[1] != EventContinued {
		t.Fatalf("events=%v", got)
	}
}

func TestTracker_SingleOpenSessionAppSwitch(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(testCfg(), zap.NewNop(), rec.record)

	t0 := time.Now()
	tr.OnForegroundSignal("com.example.feed", t0)
	tr.OnForegroundSignal("com.example.video", t0.Add(10*time.Second))

	cur := tr.Current()
	if cur == nil || cur.App != "com.example.video" {
		t.Fatalf("Current=%+v, want open session for video app", cur)
	}

	kinds := rec.kinds()
	want := []EventKind{EventStarted, EventEnded, EventStarted}
	if len(kinds) != len(want) {
		t.Fatalf("events=%v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("events=%v, want %v", kinds, want)
		}
	}
	if rec.events[1].Session.EndReason != ReasonAppSwitch {
		t.Fatalf("EndReason=%q, want app_switch", rec.events[1].Session.EndReason)
	}
}

func TestTracker_TimeoutClosesAfterGraceWindow(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(testCfg(), zap.NewNop(), rec.record)

	t0 := time.Now()
	tr.OnForegroundSignal("com.example.feed", t0)

	// Inside grace window: session survives.
	tr.CheckTimeout(t0.Add(30 * time.Second))
	if tr.Current() == nil {
		t.Fatal("session ended inside grace window")
	}

	tr.CheckTimeout(t0.Add(50 * time.Second))
	if tr.Current() != nil {
		t.Fatal("session not ended after grace window")
	}
	last := rec.events[len(rec.events)-1]
	if last.Kind != EventEnded || last.Session.EndReason != ReasonTimeout {
		t.Fatalf("last event=%+v, want ended/timeout", last)
	}
}

func TestTracker_ScreenOffForceEndsImmediately(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(testCfg(), zap.NewNop(), rec.record)

	t0 := time.Now()
	tr.OnForegroundSignal("com.example.feed", t0)
	tr.ForceEnd(ReasonScreenOff, t0.Add(time.Second))

	if tr.Current() != nil {
		t.Fatal("session still open after screen off")
	}
	last := rec.events[len(rec.events)-1]
	if last.Session.EndReason != ReasonScreenOff {
		t.Fatalf("EndReason=%q, want screen_off", last.Session.EndReason)
	}

	// ForceEnd with no open session is a no-op.
	n := len(rec.events)
	tr.ForceEnd(ReasonShutdown, t0.Add(2*time.Second))
	if len(rec.events) != n {
		t.Fatal("ForceEnd emitted an event with no open session")
	}
}

func TestTracker_ThresholdFiresOncePerSession(t *testing.T) {
	cfg := testCfg()
	cfg.BaseThreshold = "30s"
	rec := &recorder{}
	tr := NewTracker(cfg, zap.NewNop(), rec.record)

	t0 := time.Now()
	now := t0
	tr.OnForegroundSignal("com.example.feed", now)
	for i := 0; i < 10; i++ {
		now = now.Add(10 * time.Second)
		tr.OnForegroundSignal("com.example.feed", now)
	}

	var fired int
	for _, e := range rec.events {
		if e.Kind == EventThresholdReached {
			fired++
		}
	}
	if fired != 1 {
		t.Fatalf("threshold fired %d times, want 1", fired)
	}

	// New session re-arms the threshold.
	tr.ForceEnd(ReasonScreenOff, now)
	now = now.Add(time.Minute)
	tr.OnForegroundSignal("com.example.feed", now)
	for i := 0; i < 5; i++ {
		now = now.Add(10 * time.Second)
		tr.OnForegroundSignal("com.example.feed", now)
	}
	fired = 0
	for _, e := range rec.events {
		if e.Kind == EventThresholdReached {
			fired++
		}
	}
	if fired != 2 {
		t.Fatalf("threshold fired %d times across two sessions, want 2", fired)
	}
}

func TestTracker_ThresholdMultiplierMovesNagPoint(t *testing.T) {
	cfg := testCfg()
	cfg.BaseThreshold = "1m"
	tr := NewTracker(cfg, zap.NewNop(), nil)

	tr.SetThresholdMultiplier(2.0)
	if got := tr.EffectiveThreshold(); got != 2*time.Minute {
		t.Fatalf("EffectiveThreshold=%v, want 2m", got)
	}

	// Clamped at both ends.
	tr.SetThresholdMultiplier(10)
	if got := tr.EffectiveThreshold(); got != 3*time.Minute {
		t.Fatalf("EffectiveThreshold=%v, want 3m (clamped)", got)
	}
	tr.SetThresholdMultiplier(0.1)
	if got := tr.EffectiveThreshold(); got != 30*time.Second {
		t.Fatalf("EffectiveThreshold=%v, want 30s (clamped)", got)
	}
}

func TestTracker_GapLongerThanGraceNotCredited(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(testCfg(), zap.NewNop(), rec.record)

	t0 := time.Now()
	tr.OnForegroundSignal("com.example.feed", t0)
	// Signal resumes after a 5 minute dark period without CheckTimeout.
	tr.OnForegroundSignal("com.example.feed", t0.Add(5*time.Minute))

	cur := tr.Current()
	if cur.Accumulated > 45*time.Second {
		t.Fatalf("Accumulated=%v, dark period was credited", cur.Accumulated)
	}
}
