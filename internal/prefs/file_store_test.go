package prefs

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestFileStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFileStore(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	s.SetFloat(KeyCooldownMultiplier, 1.5)
	s.SetTime(KeyLastIntervention, now)
	s.SetTimes(KeyShownTimestamps, []time.Time{now.Add(-time.Hour), now})

	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	// Reopen and verify persistence.
	s2, err := NewFileStore(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileStore reopen: %v", err)
	}
	if got := s2.GetFloat(KeyCooldownMultiplier, 1.0); got != 1.5 {
		t.Fatalf("GetFloat=%v, want 1.5", got)
	}
	got, ok := s2.GetTime(KeyLastIntervention)
	if !ok || !got.Equal(now) {
		t.Fatalf("GetTime=(%v,%v), want (%v,true)", got, ok, now)
	}
	if ts := s2.GetTimes(KeyShownTimestamps); len(ts) != 2 {
		t.Fatalf("GetTimes len=%d, want 2", len(ts))
	}
}

func TestFileStore_DefaultsWhenUnset(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if got := s.GetFloat(KeyCooldownMultiplier, 1.0); got != 1.0 {
		t.Fatalf("GetFloat default=%v, want 1.0", got)
	}
	if _, ok := s.GetTime(KeyLastIntervention); ok {
		t.Fatal("GetTime on unset key reported ok")
	}
	if ts := s.GetTimes(KeyShownTimestamps); len(ts) != 0 {
		t.Fatalf("GetTimes on unset key=%v, want empty", ts)
	}
}

func TestFileStore_ListIsolation(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	in := []time.Time{time.Now()}
	s.SetTimes(KeyShownTimestamps, in)
	in[0] = time.Time{} // caller mutation must not leak into the store

	out := s.GetTimes(KeyShownTimestamps)
	if len(out) != 1 || out[0].IsZero() {
		t.Fatalf("stored list aliased caller slice: %v", out)
	}
}
