// Package foreground abstracts the "what is on screen right now" signal
// the engine polls. Platform integrations implement Source; the replay
// source drives demos and tests from a recorded script.
package foreground

import "context"

// State is one foreground sample.
type State struct {
	// App currently in the foreground; empty when none or unknown.
	App string
	// ScreenOn is false when the display is off.
	ScreenOn bool
}

// Source samples the current foreground state. An error means the signal
// is unavailable this tick; callers treat that as "no change", never as a
// session end.
type Source interface {
	Sample(ctx context.Context) (State, error)
}

// Static is a Source that always returns a fixed state. Useful in tests.
type Static struct {
	State State
	Err   error
}

func (s *Static) Sample(context.Context) (State, error) {
	return s.State, s.Err
}
