package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"nudge/internal/foreground"
	"nudge/internal/history"
)

// scriptedSource is a foreground source the test mutates between ticks.
type scriptedSource struct {
	mu  sync.Mutex
	st  foreground.State
	err error
}

func (s *scriptedSource) Sample(context.Context) (foreground.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st, s.err
}

func (s *scriptedSource) set(app string, screenOn bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st = foreground.State{App: app, ScreenOn: screenOn}
	s.err = nil
}

func newTestPoller(t *testing.T, f *fixture, hist history.Store, src foreground.Source) *Poller {
	t.Helper()
	f.cfg.MonitoredApps = []string{"com.social.feed"}
	f.cfg.Poll.ActiveInterval = "10ms"
	f.cfg.Poll.IdleInterval = "10ms"
	f.cfg.Poll.ScreenOffInterval = "10ms"
	return NewPoller(f.cfg, src, f.signals, f.eng, hist, nil, zap.NewNop())
}

func TestPollerTracksAndFlushesOnStop(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	base := daytimeBase()
	hist := history.NewMemoryStore(base.AddDate(0, 0, -30))
	f := newFixture(t, hist, staticSuccess{}, base)

	src := &scriptedSource{st: foreground.State{App: "com.social.feed", ScreenOn: true}}
	p := newTestPoller(t, f, hist, src)

	p.Start(context.Background())
	require.Eventually(t, func() bool {
		return p.Tracker().Current() != nil
	}, 2*time.Second, 5*time.Millisecond, "session never started")

	p.Stop()

	// Stop force-ends the open session and persists it.
	assert.Nil(t, p.Tracker().Current())
	sessions, err := hist.AppSessions(context.Background(), "com.social.feed",
		time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestPollerScreenOffEndsSession(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	base := daytimeBase()
	hist := history.NewMemoryStore(base.AddDate(0, 0, -30))
	f := newFixture(t, hist, staticSuccess{}, base)

	src := &scriptedSource{st: foreground.State{App: "com.social.feed", ScreenOn: true}}
	p := newTestPoller(t, f, hist, src)

	p.Start(context.Background())
	require.Eventually(t, func() bool {
		return p.Tracker().Current() != nil
	}, 2*time.Second, 5*time.Millisecond)

	src.set("", false)
	require.Eventually(t, func() bool {
		return p.Tracker().Current() == nil
	}, 2*time.Second, 5*time.Millisecond, "session never ended on screen off")

	p.Stop()

	sessions, err := hist.AppSessions(context.Background(), "com.social.feed",
		time.Now().Add(-time.Minute), time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestPollerIgnoresUnmonitoredApps(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	base := daytimeBase()
	hist := history.NewMemoryStore(base.AddDate(0, 0, -30))
	f := newFixture(t, hist, staticSuccess{}, base)

	src := &scriptedSource{st: foreground.State{App: "com.other.app", ScreenOn: true}}
	p := newTestPoller(t, f, hist, src)

	p.Start(context.Background())
	time.Sleep(100 * time.Millisecond)
	assert.Nil(t, p.Tracker().Current())
	p.Stop()
}

func TestPollerStopIsIdempotent(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	base := daytimeBase()
	hist := history.NewMemoryStore(base.AddDate(0, 0, -30))
	f := newFixture(t, hist, staticSuccess{}, base)

	src := &scriptedSource{st: foreground.State{ScreenOn: true}}
	p := newTestPoller(t, f, hist, src)

	p.Start(context.Background())
	p.Stop()
	p.Stop()
}
