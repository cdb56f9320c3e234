// Package session converts raw foreground/background signals into discrete
// session lifecycle events. The tracker is the only component that owns
// session state; everything downstream sees immutable snapshots.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nudge/internal/config"
)

// EndReason records why a session was closed.
type EndReason string

const (
	ReasonTimeout   EndReason = "timeout"
	ReasonScreenOff EndReason = "screen_off"
	ReasonAppSwitch EndReason = "app_switch"
	ReasonShutdown  EndReason = "shutdown"
)

// Session is one contiguous period of foreground use of a monitored app.
type Session struct {
	ID          string
	App         string
	Start       time.Time
	LastActive  time.Time
	Accumulated time.Duration
	EndReason   EndReason // empty while the session is open
}

// EventKind identifies a session lifecycle transition.
type EventKind string

const (
	EventStarted          EventKind = "started"
	EventContinued        EventKind = "continued"
	EventThresholdReached EventKind = "threshold_reached"
	EventEnded            EventKind = "ended"
)

// Event is emitted on every lifecycle transition. Session is a snapshot,
// safe to retain.
type Event struct {
	Kind    EventKind
	Session Session
	At      time.Time
}

// Tracker is a single-owner state machine over the current session.
// All methods are safe for concurrent use; events are emitted outside
// the lock, in transition order.
type Tracker struct {
	mu     sync.Mutex
	cfg    config.SessionConfig
	logger *zap.Logger
	emit   func(Event)

	current        *Session
	thresholdFired bool
	thresholdMult  float64
}

// NewTracker creates a tracker. onEvent may be nil.
func NewTracker(cfg config.SessionConfig, logger *zap.Logger, onEvent func(Event)) *Tracker {
	if onEvent == nil {
		onEvent = func(Event) {}
	}
	return &Tracker{
		cfg:           cfg,
		logger:        logger.Named("session"),
		emit:          onEvent,
		thresholdMult: 1.0,
	}
}

// UpdateConfig swaps the session tunables, typically after a config file
// reload. The open session keeps its accumulated time.
func (t *Tracker) UpdateConfig(cfg config.SessionConfig) {
	t.mu.Lock()
	t.cfg = cfg
	t.mu.Unlock()
}

// SetThresholdMultiplier adjusts the effective threshold without touching
// the polling cadence. Clamped to [0.5, 3.0].
func (t *Tracker) SetThresholdMultiplier(m float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if m < 0.5 {
		m = 0.5
	}
	if m > 3.0 {
		m = 3.0
	}
	t.thresholdMult = m
}

// EffectiveThreshold returns the base threshold scaled by the adaptive
// multiplier.
func (t *Tracker) EffectiveThreshold() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.effectiveThresholdLocked()
}

func (t *Tracker) effectiveThresholdLocked() time.Duration {
	base := t.cfg.BaseThresholdDuration()
	return time.Duration(float64(base) * t.thresholdMult)
}

// OnForegroundSignal processes one "app is in foreground" observation.
func (t *Tracker) OnForegroundSignal(app string, now time.Time) {
	t.mu.Lock()
	var events []Event

	switch {
	case t.current == nil:
		events = append(events, t.startLocked(app, now))

	case t.current.App == app:
		delta := now.Sub(t.current.LastActive)
		if delta < 0 {
			delta = 0
		}
		// A gap longer than the grace window means CheckTimeout was not
		// called in between; do not credit the dark period.
		if grace := t.cfg.GraceWindowDuration(); delta > grace {
			delta = grace
		}
		t.current.Accumulated += delta
		t.current.LastActive = now
		events = append(events, Event{Kind: EventContinued, Session: *t.current, At: now})

		if !t.thresholdFired && t.current.Accumulated >= t.effectiveThresholdLocked() {
			t.thresholdFired = true
			events = append(events, Event{Kind: EventThresholdReached, Session: *t.current, At: now})
		}

	default:
		events = append(events, t.endLocked(ReasonAppSwitch, now))
		events = append(events, t.startLocked(app, now))
	}

	t.mu.Unlock()
	for _, e := range events {
		t.emit(e)
	}
}

// OnForegroundLost marks the target app as no longer visible. The session
// is kept alive (optimistic continuity); CheckTimeout closes it once the
// grace window has elapsed without a new signal. This avoids flicker-induced
// false session splits.
func (t *Tracker) OnForegroundLost(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil {
		t.logger.Debug("foreground lost, holding session through grace window",
			zap.String("app", t.current.App))
	}
}

// CheckTimeout ends the current session if no signal arrived within the
// grace window. Call on every poll tick.
func (t *Tracker) CheckTimeout(now time.Time) {
	t.mu.Lock()
	if t.current == nil || now.Sub(t.current.LastActive) <= t.cfg.GraceWindowDuration() {
		t.mu.Unlock()
		return
	}
	ev := t.endLocked(ReasonTimeout, now)
	t.mu.Unlock()
	t.emit(ev)
}

// ForceEnd closes the current session unconditionally (screen off, shutdown).
// No-op when no session is open.
func (t *Tracker) ForceEnd(reason EndReason, now time.Time) {
	t.mu.Lock()
	if t.current == nil {
		t.mu.Unlock()
		return
	}
	ev := t.endLocked(reason, now)
	t.mu.Unlock()
	t.emit(ev)
}

// Current returns a snapshot of the open session, or nil.
func (t *Tracker) Current() *Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return nil
	}
	s := *t.current
	return &s
}

func (t *Tracker) startLocked(app string, now time.Time) Event {
	t.current = &Session{
		ID:         uuid.New().String(),
		App:        app,
		Start:      now,
		LastActive: now,
	}
	t.thresholdFired = false
	t.logger.Debug("session started", zap.String("app", app), zap.String("id", t.current.ID))
	return Event{Kind: EventStarted, Session: *t.current, At: now}
}

func (t *Tracker) endLocked(reason EndReason, now time.Time) Event {
	s := t.current
	s.EndReason = reason
	t.current = nil
	t.thresholdFired = false
	t.logger.Debug("session ended",
		zap.String("app", s.App),
		zap.String("reason", string(reason)),
		zap.Duration("accumulated", s.Accumulated))
	return Event{Kind: EventEnded, Session: *s, At: now}
}
