package snapshot

import (
	"testing"
	"time"
)

func TestSignals_RapidSwitching(t *testing.T) {
	s := testSignals()
	now := time.Now()

	s.RecordForeground("a", now.Add(-20*time.Second))
	s.RecordForeground("b", now.Add(-15*time.Second))
	if s.RapidSwitching(now) {
		t.Fatal("two apps should not flag rapid switching")
	}

	s.RecordForeground("c", now.Add(-5*time.Second))
	if !s.RapidSwitching(now) {
		t.Fatal("three distinct apps in 30s should flag rapid switching")
	}

	// Outside the 30s window the flag clears.
	if s.RapidSwitching(now.Add(40 * time.Second)) {
		t.Fatal("flag should clear once switches age out")
	}
}

func TestSignals_CompulsiveReopen(t *testing.T) {
	s := testSignals()
	base := time.Now()
	app := "com.example.feed"

	// Three reopens, each within 2 minutes of the prior end.
	for i := 0; i < 3; i++ {
		offset := time.Duration(i) * 90 * time.Second
		s.RecordSessionEnd(app, base.Add(offset))
		s.RecordSessionStart(app, base.Add(offset+30*time.Second))
	}

	if !s.CompulsiveReopen(app, base.Add(5*time.Minute)) {
		t.Fatal("expected compulsive reopen flag")
	}
	if s.CompulsiveReopen("com.example.other", base.Add(5*time.Minute)) {
		t.Fatal("flag leaked to a different app")
	}
}

func TestSignals_CompulsiveReopenNeedsShortGaps(t *testing.T) {
	s := testSignals()
	base := time.Now().Add(-20 * time.Minute)
	app := "com.example.feed"

	// Reopens with 3 minute gaps do not count.
	for i := 0; i < 4; i++ {
		offset := time.Duration(i) * 4 * time.Minute
		s.RecordSessionEnd(app, base.Add(offset))
		s.RecordSessionStart(app, base.Add(offset+3*time.Minute))
	}

	if s.CompulsiveReopen(app, base.Add(16*time.Minute)) {
		t.Fatal("slow reopens should not flag compulsive pattern")
	}
}

func TestSignals_ExcessiveUnlocksAndScreenOn(t *testing.T) {
	s := testSignals()
	now := time.Now()

	for i := 0; i < 12; i++ {
		s.RecordUnlock(now.Add(-time.Duration(i) * 4 * time.Minute))
	}
	if !s.ExcessiveUnlocks(now) {
		t.Fatal("12 unlocks in an hour should flag")
	}

	s.ScreenOn(now.Add(-45 * time.Minute))
	if !s.LongScreenOn(now) {
		t.Fatal("45 continuous minutes should flag long screen-on")
	}
	s.ScreenOff()
	if s.LongScreenOn(now) {
		t.Fatal("flag should clear on screen off")
	}
}
