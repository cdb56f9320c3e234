// Package types provides shared type definitions used across nudge packages.
// This package exists to break import cycles between the engine, the scoring
// subsystems, and the decision log. Types here are foundational value types
// with no complex dependencies.
package types

import (
	"fmt"
	"time"
)

// InterventionType identifies the kind of prompt being gated.
type InterventionType string

const (
	TypeReminder     InterventionType = "reminder"
	TypeSustainedUse InterventionType = "sustained_use"
	TypeTimerAlert   InterventionType = "timer_alert"
)

// Valid reports whether t is a known intervention type.
func (t InterventionType) Valid() bool {
	switch t {
	case TypeReminder, TypeSustainedUse, TypeTimerAlert:
		return true
	}
	return false
}

// ParseInterventionType converts a CLI/config string into an InterventionType.
func ParseInterventionType(s string) (InterventionType, error) {
	t := InterventionType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown intervention type %q", s)
	}
	return t, nil
}

// FeedbackOutcome is the user's reaction to a shown intervention.
type FeedbackOutcome string

const (
	FeedbackHelpful    FeedbackOutcome = "helpful"
	FeedbackDisruptive FeedbackOutcome = "disruptive"
)

// ParseFeedbackOutcome converts a CLI string into a FeedbackOutcome.
func ParseFeedbackOutcome(s string) (FeedbackOutcome, error) {
	switch FeedbackOutcome(s) {
	case FeedbackHelpful:
		return FeedbackHelpful, nil
	case FeedbackDisruptive:
		return FeedbackDisruptive, nil
	}
	return "", fmt.Errorf("unknown feedback outcome %q", s)
}

// DecisionSource names the gate that produced the final verdict.
type DecisionSource string

const (
	SourceRateLimit       DecisionSource = "rate_limit"
	SourcePersonaPolicy   DecisionSource = "persona_policy"
	SourceOpportunityHint DecisionSource = "opportunity_hint"
	SourceApproved        DecisionSource = "approved"
)

// Verdict is the result of one engine evaluation, consumed by the
// presentation layer to decide whether to render a prompt.
type Verdict struct {
	Allowed           bool
	Reason            string
	CooldownRemaining time.Duration
	Persona           string
	PersonaConfidence string
	OpportunityScore  int
	OpportunityLevel  string
	DecisionSource    DecisionSource
}

// GateResult records one rate-limit gate's pass/fail for the audit trail.
type GateResult struct {
	Gate   string `json:"gate"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DecisionExplanation is the append-only audit record for one evaluation.
// Created exactly once per decision, successful or not, and never mutated.
type DecisionExplanation struct {
	ID        string           `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	App       string           `json:"app"`
	Type      InterventionType `json:"type"`

	Allowed        bool           `json:"allowed"`
	BlockingReason string         `json:"blocking_reason,omitempty"`
	DecisionSource DecisionSource `json:"decision_source"`

	OpportunityScore     int            `json:"opportunity_score"`
	OpportunityLevel     string         `json:"opportunity_level"`
	OpportunityBreakdown map[string]int `json:"opportunity_breakdown"`

	Persona           string `json:"persona"`
	PersonaConfidence string `json:"persona_confidence"`
	PersonaPolicy     string `json:"persona_policy"`

	Gates []GateResult `json:"gates,omitempty"`

	BurdenScore       float64 `json:"burden_score"`
	BurdenLevel       string  `json:"burden_level"`
	BurdenReliable    bool    `json:"burden_reliable"`
	AppliedMultiplier float64 `json:"applied_multiplier"`

	SessionDuration time.Duration `json:"session_duration"`
	Summary         string        `json:"summary"`
}
