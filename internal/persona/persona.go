// Package persona classifies the user into a coarse behavioral category
// from aggregate usage statistics, and binds each category to an
// intervention-frequency policy. Persona→policy and policy→rule are two
// separate lookup tables so each is testable on its own.
package persona

import "time"

// Persona is a behavioral category, ordered from most to least
// usage-problematic.
type Persona string

const (
	PersonaAddicted  Persona = "addicted"
	PersonaHeavy     Persona = "heavy"
	PersonaRegular   Persona = "regular"
	PersonaCasual    Persona = "casual"
	PersonaConscious Persona = "conscious"
	PersonaNewUser   Persona = "new_user"
)

// Confidence reflects how much history backs the classification.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Assessment is one classification result.
type Assessment struct {
	Persona    Persona
	Confidence Confidence

	// Supporting statistics, carried for explainability.
	AvgDailyUsage  time.Duration
	SampleSessions int
	SampleDays     int
	TenureDays     int

	ComputedAt time.Time
}

// PolicyName identifies a frequency policy.
type PolicyName string

const (
	PolicyMinimal      PolicyName = "MINIMAL"
	PolicyConservative PolicyName = "CONSERVATIVE"
	PolicyBalanced     PolicyName = "BALANCED"
	PolicyModerate     PolicyName = "MODERATE"
	PolicyAdaptive     PolicyName = "ADAPTIVE"
	PolicyOnboarding   PolicyName = "ONBOARDING"
)

// policyByPersona binds each persona to exactly one frequency policy.
var policyByPersona = map[Persona]PolicyName{
	PersonaAddicted:  PolicyMinimal,
	PersonaHeavy:     PolicyConservative,
	PersonaRegular:   PolicyBalanced,
	PersonaCasual:    PolicyModerate,
	PersonaConscious: PolicyAdaptive,
	PersonaNewUser:   PolicyOnboarding,
}

// cooldownBaseByPersona is the persona-specific cooldown base multiplier
// applied when the persona policy rejects a moment.
var cooldownBaseByPersona = map[Persona]float64{
	PersonaAddicted:  2.0,
	PersonaHeavy:     1.5,
	PersonaRegular:   1.2,
	PersonaCasual:    1.0,
	PersonaConscious: 1.0,
	PersonaNewUser:   1.5,
}

// PolicyFor returns the frequency policy bound to p.
func PolicyFor(p Persona) PolicyName {
	if name, ok := policyByPersona[p]; ok {
		return name
	}
	return PolicyConservative
}

// CooldownBase returns the persona cooldown base multiplier.
func CooldownBase(p Persona) float64 {
	if m, ok := cooldownBaseByPersona[p]; ok {
		return m
	}
	return 1.0
}
