package foreground

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"
)

// ReplayEvent is one scripted signal change.
type ReplayEvent struct {
	// AfterMS is the offset from replay start at which the event applies.
	AfterMS int64  `json:"after_ms"`
	Kind    string `json:"kind"` // foreground, background, screen_on, screen_off
	App     string `json:"app,omitempty"`
}

// ReplaySource replays a recorded signal script against the wall clock.
// Sample returns the state as of now, applying every event whose offset
// has elapsed since Start.
type ReplaySource struct {
	mu      sync.Mutex
	events  []ReplayEvent
	start   time.Time
	applied int
	state   State

	// Injected in tests.
	now func() time.Time
}

// NewReplaySource creates a source from scripted events. The initial state
// is screen on, nothing in the foreground.
func NewReplaySource(events []ReplayEvent) *ReplaySource {
	sorted := make([]ReplayEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].AfterMS < sorted[j].AfterMS })
	return &ReplaySource{
		events: sorted,
		state:  State{ScreenOn: true},
		now:    time.Now,
	}
}

// LoadReplayFile reads a JSONL script, one event per line. Blank lines and
// lines starting with # are skipped.
func LoadReplayFile(path string) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay file: %w", err)
	}
	defer f.Close()

	var events []ReplayEvent
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if len(text) == 0 || text[0] == '#' {
			continue
		}
		var ev ReplayEvent
		if err := json.Unmarshal([]byte(text), &ev); err != nil {
			return nil, fmt.Errorf("replay file line %d: %w", line, err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read replay file: %w", err)
	}
	return NewReplaySource(events), nil
}

// Sample applies elapsed events and returns the current state.
func (r *ReplaySource) Sample(context.Context) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if r.start.IsZero() {
		r.start = now
	}
	elapsed := now.Sub(r.start).Milliseconds()

	for r.applied < len(r.events) && r.events[r.applied].AfterMS <= elapsed {
		ev := r.events[r.applied]
		r.applied++
		switch ev.Kind {
		case "foreground":
			r.state.App = ev.App
		case "background":
			r.state.App = ""
		case "screen_on":
			r.state.ScreenOn = true
		case "screen_off":
			r.state.ScreenOn = false
			r.state.App = ""
		}
	}
	return r.state, nil
}

// Done reports whether every scripted event has been applied.
func (r *ReplaySource) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applied == len(r.events)
}
