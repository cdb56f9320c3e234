package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"nudge/internal/config"
	"nudge/internal/foreground"
	"nudge/internal/history"
	"nudge/internal/session"
	"nudge/internal/snapshot"
	"nudge/internal/types"
)

// NotifyFunc receives approved verdicts so the presentation layer can
// render the prompt.
type NotifyFunc func(v types.Verdict, s session.Session)

// Poller is the long-lived adaptive polling loop. All ticks run on one
// goroutine so tracker state transitions stay race-free; the interval
// shortens while a monitored app is active and stretches when the device
// is idle or the screen is off.
type Poller struct {
	logger  *zap.Logger
	source  foreground.Source
	tracker *session.Tracker
	signals *snapshot.Signals
	engine  *Engine
	store   history.Store
	notify  NotifyFunc

	mu           sync.Mutex
	running      bool
	prevScreenOn bool
	poll         config.PollConfig
	apps         []string
	stopCh       chan struct{}
	doneCh       chan struct{}

	// Injected in tests.
	now func() time.Time
}

// NewPoller wires the polling loop. notify may be nil.
func NewPoller(
	cfg *config.Config,
	source foreground.Source,
	signals *snapshot.Signals,
	eng *Engine,
	store history.Store,
	notify NotifyFunc,
	logger *zap.Logger,
) *Poller {
	p := &Poller{
		logger:       logger.Named("poller"),
		source:       source,
		signals:      signals,
		engine:       eng,
		store:        store,
		notify:       notify,
		prevScreenOn: true,
		poll:         cfg.Poll,
		apps:         cfg.MonitoredApps,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
		now:          time.Now,
	}
	p.tracker = session.NewTracker(cfg.Session, logger, p.handleEvent)
	return p
}

// Tracker exposes the session tracker (read-only use expected).
func (p *Poller) Tracker() *session.Tracker {
	return p.tracker
}

// UpdateConfig re-applies the tunable knobs after a config file reload:
// polling cadence, monitored apps and session thresholds. Takes effect on
// the next tick.
func (p *Poller) UpdateConfig(cfg *config.Config) {
	p.mu.Lock()
	p.poll = cfg.Poll
	p.apps = cfg.MonitoredApps
	p.mu.Unlock()
	p.tracker.UpdateConfig(cfg.Session)
}

// Start launches the loop. Non-blocking; call Stop to shut down.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	go p.run(ctx)
}

// Stop halts the loop and deterministically flushes the open session.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	close(p.stopCh)
	<-p.doneCh
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.doneCh)

	timer := time.NewTimer(p.interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.shutdown()
			return
		case <-p.stopCh:
			p.shutdown()
			return
		case <-timer.C:
			p.tick(ctx)
			timer.Reset(p.interval())
		}
	}
}

func (p *Poller) shutdown() {
	p.tracker.ForceEnd(session.ReasonShutdown, p.now())
	p.logger.Info("poller stopped")
}

// tick runs one polling cycle.
func (p *Poller) tick(ctx context.Context) {
	now := p.now()

	st, err := p.source.Sample(ctx)
	if err != nil {
		// Signal unavailability is "no change", never a session end; the
		// grace window bounds how long we coast.
		p.logger.Debug("foreground signal unavailable", zap.Error(err))
		p.tracker.CheckTimeout(now)
		return
	}

	p.mu.Lock()
	prevOn := p.prevScreenOn
	p.prevScreenOn = st.ScreenOn
	p.mu.Unlock()

	if !st.ScreenOn {
		if prevOn {
			p.signals.ScreenOff()
			p.tracker.ForceEnd(session.ReasonScreenOff, now)
		}
		return
	}
	p.signals.ScreenOn(now)
	if !prevOn {
		// Off-to-on transition doubles as an unlock marker.
		p.signals.RecordUnlock(now)
	}

	switch {
	case st.App == "":
		p.tracker.OnForegroundLost(now)
	case p.monitored(st.App):
		p.signals.RecordForeground(st.App, now)
		p.tracker.SetThresholdMultiplier(p.engine.ThresholdMultiplier())
		p.tracker.OnForegroundSignal(st.App, now)
	default:
		p.signals.RecordForeground(st.App, now)
		p.tracker.OnForegroundLost(now)
	}

	p.tracker.CheckTimeout(now)
}

// handleEvent reacts to session lifecycle transitions. Runs on the
// polling goroutine.
func (p *Poller) handleEvent(ev session.Event) {
	ctx := context.Background()

	switch ev.Kind {
	case session.EventStarted:
		p.signals.RecordSessionStart(ev.Session.App, ev.At)

	case session.EventEnded:
		p.signals.RecordSessionEnd(ev.Session.App, ev.At)
		us := history.UsageSession{
			ID:       ev.Session.ID,
			App:      ev.Session.App,
			Start:    ev.Session.Start,
			End:      ev.At,
			Duration: ev.Session.Accumulated,
		}
		if err := p.store.RecordSession(ctx, us); err != nil {
			p.logger.Warn("failed to persist ended session", zap.Error(err))
		}
		p.engine.ObserveSessionEnd(ctx, ev.Session, ev.At)

	case session.EventThresholdReached:
		v := p.engine.Evaluate(ctx, ev.Session.App, ev.Session.Accumulated, types.TypeSustainedUse)
		if v.Allowed && p.notify != nil {
			p.notify(v, ev.Session)
		}
	}
}

func (p *Poller) interval() time.Duration {
	p.mu.Lock()
	screenOn := p.prevScreenOn
	poll := p.poll
	p.mu.Unlock()

	switch {
	case !screenOn:
		return poll.ScreenOffIntervalDuration()
	case p.tracker.Current() != nil:
		return poll.ActiveIntervalDuration()
	default:
		return poll.IdleIntervalDuration()
	}
}

func (p *Poller) monitored(app string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range p.apps {
		if m == app {
			return true
		}
	}
	return false
}
