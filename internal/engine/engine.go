// Package engine orchestrates persona classification, opportunity scoring,
// burden tracking and rate limiting into a single allow/skip verdict per
// intervention moment, with a full audit trail. The engine never lets a
// subsystem failure escape Evaluate: every internal failure degrades to a
// conservative default, and doubt prefers SKIP.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nudge/internal/burden"
	"nudge/internal/config"
	"nudge/internal/decisionlog"
	"nudge/internal/opportunity"
	"nudge/internal/persona"
	"nudge/internal/ratelimit"
	"nudge/internal/session"
	"nudge/internal/snapshot"
	"nudge/internal/types"
)

// Combined persona × feedback × burden multiplier ceiling. Each factor has
// its own cap; the product gets an explicit one as well so stacked
// penalties cannot push cooldowns into absurd territory.
const combinedMultiplierCeiling = 4.0

// Short fixed cooldown applied when the opportunity hint alone rejects,
// independent of the persona cooldown.
const hintSkipCooldown = 5 * time.Minute

// Disengagement within this span after a shown intervention counts as a
// success for the learned signal.
const disengageWindow = 5 * time.Minute

// Consecutive disruptive feedback before the limiter escalates outright.
const escalateAfterDisruptive = 3

// FeedbackRecorder persists feedback events for the burden tracker.
type FeedbackRecorder interface {
	RecordFeedback(ctx context.Context, outcome types.FeedbackOutcome, ts time.Time) error
}

// OutcomeRecorder persists observed post-intervention outcomes for the
// learned historical-success signal.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, decisionID, app string, hour int, disengaged bool) error
}

// Engine is the adaptive intervention decision engine.
type Engine struct {
	cfg    *config.Config
	logger *zap.Logger

	builder    *snapshot.Builder
	classifier *persona.Classifier
	burden     *burden.Tracker
	limiter    *ratelimit.Limiter
	dlog       *decisionlog.Logger
	feedback   FeedbackRecorder
	outcomes   OutcomeRecorder

	mu                    sync.Mutex
	lastShown             *shownRecord
	consecutiveDisruptive int

	// Injected in tests.
	now func() time.Time
}

type shownRecord struct {
	decisionID string
	app        string
	at         time.Time
}

// New wires the engine. feedback and outcomes may be nil.
func New(
	cfg *config.Config,
	builder *snapshot.Builder,
	classifier *persona.Classifier,
	burdenTracker *burden.Tracker,
	limiter *ratelimit.Limiter,
	dlog *decisionlog.Logger,
	feedback FeedbackRecorder,
	outcomes OutcomeRecorder,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		cfg:        cfg,
		logger:     logger.Named("engine"),
		builder:    builder,
		classifier: classifier,
		burden:     burdenTracker,
		limiter:    limiter,
		dlog:       dlog,
		feedback:   feedback,
		outcomes:   outcomes,
		now:        time.Now,
	}
}

// Evaluate decides whether an intervention of type t may interrupt the
// current session of app. Exactly one DecisionExplanation is emitted per
// call, approved or not.
func (e *Engine) Evaluate(ctx context.Context, app string, sessionDuration time.Duration, t types.InterventionType) types.Verdict {
	now := e.now()

	// Persona and opportunity always run first, even on a path that will
	// ultimately skip: every decision must be explainable.
	s := &session.Session{App: app, Start: now.Add(-sessionDuration), Accumulated: sessionDuration}
	ic := e.builder.Build(ctx, s, now)
	pa := e.classifier.Detect(ctx, false)
	oa := opportunity.Score(ic)

	bm := e.burden.Current(ctx)
	burdenMult := bm.RecommendedMultiplier()
	feedbackMult := e.limiter.Multiplier()
	policyName := persona.PolicyFor(pa.Persona)

	expl := types.DecisionExplanation{
		ID:                   uuid.New().String(),
		Timestamp:            now,
		App:                  app,
		Type:                 t,
		OpportunityScore:     oa.Score,
		OpportunityLevel:     string(oa.Level),
		OpportunityBreakdown: oa.Breakdown,
		Persona:              string(pa.Persona),
		PersonaConfidence:    string(pa.Confidence),
		PersonaPolicy:        string(policyName),
		BurdenScore:          bm.Score,
		BurdenLevel:          string(bm.Level),
		BurdenReliable:       bm.Reliable,
		AppliedMultiplier:    feedbackMult,
		SessionDuration:      sessionDuration,
	}

	verdict := types.Verdict{
		Persona:           string(pa.Persona),
		PersonaConfidence: string(pa.Confidence),
		OpportunityScore:  oa.Score,
		OpportunityLevel:  string(oa.Level),
	}

	// Gate 1: hard rate limits.
	rl := e.limiter.CanShow(t, sessionDuration, now)
	expl.Gates = rl.Gates
	if !rl.Allowed {
		verdict.Allowed = false
		verdict.Reason = "basic rate limit: " + rl.Reason
		verdict.CooldownRemaining = rl.CooldownRemaining
		verdict.DecisionSource = types.SourceRateLimit
		e.finish(&expl, verdict)
		return verdict
	}

	daytime := !e.cfg.Scoring.IsNightHour(now.Hour())
	policyInput := persona.PolicyInput{Score: oa.Score, Level: oa.Level, Daytime: daytime}

	// Gate 2: persona frequency policy.
	if !persona.Allows(policyName, policyInput) {
		combined := persona.CooldownBase(pa.Persona) * feedbackMult * burdenMult
		if combined > combinedMultiplierCeiling {
			combined = combinedMultiplierCeiling
		}
		cooldown := time.Duration(float64(e.cfg.Limits.GlobalCooldownValue()) * combined)

		verdict.Allowed = false
		verdict.Reason = fmt.Sprintf("%s policy rejected %s moment (score %d)", policyName, oa.Level, oa.Score)
		verdict.CooldownRemaining = cooldown
		verdict.DecisionSource = types.SourcePersonaPolicy
		expl.AppliedMultiplier = combined
		e.finish(&expl, verdict)
		return verdict
	}

	// Gate 3: the scorer's own hint as a final filter.
	if oa.Hint == opportunity.HintSkip {
		verdict.Allowed = false
		verdict.Reason = fmt.Sprintf("opportunity hint SKIP (score %d)", oa.Score)
		verdict.CooldownRemaining = time.Duration(float64(hintSkipCooldown) * burdenMult)
		verdict.DecisionSource = types.SourceOpportunityHint
		expl.AppliedMultiplier = burdenMult
		e.finish(&expl, verdict)
		return verdict
	}

	// All gates passed.
	verdict.Allowed = true
	verdict.Reason = fmt.Sprintf("%s persona (%s), %s moment (score %d)",
		pa.Persona, policyName, oa.Level, oa.Score)
	verdict.DecisionSource = types.SourceApproved

	e.limiter.Record(t, now)
	e.mu.Lock()
	e.lastShown = &shownRecord{decisionID: expl.ID, app: app, at: now}
	e.mu.Unlock()

	e.finish(&expl, verdict)
	return verdict
}

// finish stamps the verdict into the explanation and dispatches it
// asynchronously; logging failures never block the decision.
func (e *Engine) finish(expl *types.DecisionExplanation, v types.Verdict) {
	expl.Allowed = v.Allowed
	expl.DecisionSource = v.DecisionSource
	if v.Allowed {
		expl.Summary = "allowed: " + v.Reason
	} else {
		expl.BlockingReason = v.Reason
		expl.Summary = "skipped: " + v.Reason
	}
	e.dlog.Log(*expl)

	e.logger.Debug("decision",
		zap.String("app", expl.App),
		zap.Bool("allowed", v.Allowed),
		zap.String("source", string(v.DecisionSource)),
		zap.Int("score", v.OpportunityScore),
		zap.String("persona", v.Persona))
}

// RecordShown refreshes the rate-limit timestamps when the presentation
// layer actually renders a prompt outside an Evaluate flow.
func (e *Engine) RecordShown(t types.InterventionType) {
	e.limiter.Record(t, e.now())
}

// AdjustForFeedback nudges the cooldown multiplier by a fixed percentage
// per outcome. Three disruptive outcomes in a row escalate the multiplier
// outright; a helpful outcome breaks the streak.
func (e *Engine) AdjustForFeedback(ctx context.Context, outcome types.FeedbackOutcome) float64 {
	mult := e.limiter.AdjustForFeedback(outcome)

	e.mu.Lock()
	if outcome == types.FeedbackDisruptive {
		e.consecutiveDisruptive++
		if e.consecutiveDisruptive >= escalateAfterDisruptive {
			e.consecutiveDisruptive = 0
			e.mu.Unlock()
			mult = e.limiter.Escalate()
			e.mu.Lock()
		}
	} else {
		e.consecutiveDisruptive = 0
	}
	e.mu.Unlock()

	if e.feedback != nil {
		if err := e.feedback.RecordFeedback(ctx, outcome, e.now()); err != nil {
			e.logger.Warn("failed to record feedback", zap.Error(err))
		}
	}
	return mult
}

// ResetCooldown snaps the multiplier back to 1.0 on positive engagement.
func (e *Engine) ResetCooldown() {
	e.limiter.Reset()
}

// ThresholdMultiplier is the adaptive-frequency multiplier applied to the
// session tracker's nag threshold.
func (e *Engine) ThresholdMultiplier() float64 {
	return e.limiter.Multiplier()
}

// ObserveSessionEnd feeds the learned historical-success signal: a session
// that ends shortly after a shown intervention counts as disengagement.
func (e *Engine) ObserveSessionEnd(ctx context.Context, s session.Session, endedAt time.Time) {
	e.mu.Lock()
	shown := e.lastShown
	if shown != nil && shown.app == s.App {
		e.lastShown = nil
	}
	e.mu.Unlock()

	if shown == nil || shown.app != s.App || e.outcomes == nil {
		return
	}
	if shown.at.Before(s.Start) {
		return
	}
	disengaged := endedAt.Sub(shown.at) <= disengageWindow
	if err := e.outcomes.RecordOutcome(ctx, shown.decisionID, shown.app, shown.at.Hour(), disengaged); err != nil {
		e.logger.Warn("failed to record outcome", zap.Error(err))
	}
}
