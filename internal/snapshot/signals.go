package snapshot

import (
	"sync"
	"time"
)

const (
	rapidSwitchWindow   = 30 * time.Second
	rapidSwitchApps     = 3
	unlockWindow        = time.Hour
	excessiveUnlocks    = 12
	longScreenOnMinimum = 30 * time.Minute
	signalRetention     = 30 * time.Minute
)

type appEvent struct {
	app string
	at  time.Time
}

// Signals is the short in-memory history of foreground switches, unlocks
// and screen state. The poller feeds it; the builder derives behavioral
// flags from it. Entries older than the retention window are pruned on
// every write.
type Signals struct {
	mu sync.Mutex

	foregrounds   []appEvent
	unlocks       []time.Time
	starts        []appEvent
	ends          []appEvent
	screenOnSince time.Time

	reopenGap        time.Duration
	compulsiveWindow time.Duration
	compulsiveCount  int
}

// NewSignals creates a signal history with the given compulsive-reopen
// tuning (gap below which a reopen counts, window, and required count).
func NewSignals(reopenGap, compulsiveWindow time.Duration, compulsiveCount int) *Signals {
	return &Signals{
		reopenGap:        reopenGap,
		compulsiveWindow: compulsiveWindow,
		compulsiveCount:  compulsiveCount,
	}
}

// RecordForeground notes that app came to the foreground at t.
// Consecutive duplicates are collapsed.
func (s *Signals) RecordForeground(app string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.foregrounds); n > 0 && s.foregrounds[n-1].app == app {
		return
	}
	s.foregrounds = append(s.foregrounds, appEvent{app, t})
	s.pruneLocked(t)
}

// RecordUnlock notes a device unlock.
func (s *Signals) RecordUnlock(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlocks = append(s.unlocks, t)
	s.pruneLocked(t)
}

// ScreenOn marks the screen as continuously on since t (no-op when
// already on).
func (s *Signals) ScreenOn(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screenOnSince.IsZero() {
		s.screenOnSince = t
	}
}

// ScreenOff clears the continuous screen-on marker.
func (s *Signals) ScreenOff() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screenOnSince = time.Time{}
}

// RecordSessionStart notes a session start for reopen detection.
func (s *Signals) RecordSessionStart(app string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts = append(s.starts, appEvent{app, t})
	s.pruneLocked(t)
}

// RecordSessionEnd notes a session end for reopen detection.
func (s *Signals) RecordSessionEnd(app string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ends = append(s.ends, appEvent{app, t})
	s.pruneLocked(t)
}

func (s *Signals) pruneLocked(now time.Time) {
	cutoff := now.Add(-signalRetention)
	s.foregrounds = pruneEvents(s.foregrounds, cutoff)
	s.starts = pruneEvents(s.starts, cutoff)
	s.ends = pruneEvents(s.ends, cutoff)

	unlockCutoff := now.Add(-unlockWindow)
	keep := s.unlocks[:0]
	for _, t := range s.unlocks {
		if t.After(unlockCutoff) {
			keep = append(keep, t)
		}
	}
	s.unlocks = keep
}

func pruneEvents(evs []appEvent, cutoff time.Time) []appEvent {
	keep := evs[:0]
	for _, e := range evs {
		if e.at.After(cutoff) {
			keep = append(keep, e)
		}
	}
	return keep
}

// RapidSwitching reports whether 3+ distinct apps were foregrounded within
// the last 30 seconds.
func (s *Signals) RapidSwitching(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-rapidSwitchWindow)
	seen := make(map[string]struct{})
	for _, e := range s.foregrounds {
		if e.at.After(cutoff) {
			seen[e.app] = struct{}{}
		}
	}
	return len(seen) >= rapidSwitchApps
}

// CompulsiveReopen reports whether app was reopened compulsively: enough
// starts within the window, each following the prior end by less than the
// reopen gap.
func (s *Signals) CompulsiveReopen(app string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.compulsiveWindow)

	var reopens int
	for _, start := range s.starts {
		if start.app != app || !start.at.After(cutoff) {
			continue
		}
		// Find the closest prior end of the same app.
		var prevEnd time.Time
		for _, end := range s.ends {
			if end.app == app && end.at.Before(start.at) && end.at.After(prevEnd) {
				prevEnd = end.at
			}
		}
		if !prevEnd.IsZero() && start.at.Sub(prevEnd) < s.reopenGap {
			reopens++
		}
	}
	return reopens >= s.compulsiveCount
}

// LongScreenOn reports whether the screen has been continuously on for at
// least 30 minutes.
func (s *Signals) LongScreenOn(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.screenOnSince.IsZero() && now.Sub(s.screenOnSince) >= longScreenOnMinimum
}

// ExcessiveUnlocks reports whether unlock frequency over the trailing hour
// is abnormal.
func (s *Signals) ExcessiveUnlocks(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-unlockWindow)
	var n int
	for _, t := range s.unlocks {
		if t.After(cutoff) {
			n++
		}
	}
	return n >= excessiveUnlocks
}
