package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoadReturnsDefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Limits.DailyCap != 6 {
		t.Fatalf("DailyCap=%d, want 6", cfg.Limits.DailyCap)
	}
	if got := cfg.Session.GraceWindowDuration(); got != 45*time.Second {
		t.Fatalf("GraceWindow=%v, want 45s", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nudge.yaml")

	cfg := DefaultConfig()
	cfg.MonitoredApps = []string{"com.example.feed"}
	cfg.Limits.HourlyCap = 1
	cfg.Limits.DailyCap = 3
	cfg.Session.BaseThreshold = "25m"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.MonitoredApps) != 1 || loaded.MonitoredApps[0] != "com.example.feed" {
		t.Fatalf("MonitoredApps=%v", loaded.MonitoredApps)
	}
	if loaded.Limits.DailyCap != 3 {
		t.Fatalf("DailyCap=%d, want 3", loaded.Limits.DailyCap)
	}
	if got := loaded.Session.BaseThresholdDuration(); got != 25*time.Minute {
		t.Fatalf("BaseThreshold=%v, want 25m", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NUDGE_DAILY_CAP", "9")
	t.Setenv("NUDGE_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Limits.DailyCap != 9 {
		t.Fatalf("DailyCap=%d, want 9 (env override)", cfg.Limits.DailyCap)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("Level=%q, want debug", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Limits.HourlyCap = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for hourly_cap=0")
	}

	cfg = DefaultConfig()
	cfg.Limits.DailyCap = 1
	cfg.Limits.HourlyCap = 2
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for daily_cap < hourly_cap")
	}
}

func TestIsNightHourWrapsMidnight(t *testing.T) {
	s := ScoringConfig{NightStartHour: 22, NightEndHour: 7}

	cases := []struct {
		hour int
		want bool
	}{
		{21, false}, {22, true}, {23, true}, {0, true},
		{3, true}, {6, true}, {7, false}, {12, false},
	}
	for _, tc := range cases {
		if got := s.IsNightHour(tc.hour); got != tc.want {
			t.Errorf("IsNightHour(%d)=%v, want %v", tc.hour, got, tc.want)
		}
	}
}
